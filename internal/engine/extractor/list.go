package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Fetch retrieves one page's artifact. The executor (HTTP or Browser)
// supplies this; the extractor stays transport-agnostic.
type Fetch func(pageURL string) (Artifact, error)

// ExtractList runs the full §4.2 step 2/3 algorithm: walk item links across
// paginated list pages, follow each to its detail page, and extract one
// Record per detail page, bounded by max_pages and max_items.
func (e *Extractor) ExtractList(first Artifact, list models.ListConfig, fields map[string]models.FieldMap, fetch Fetch) ([]*models.Record, error) {
	// max_items=0 means the list page itself is the target: no item links
	// are followed, and zero detail records is success, not a failure.
	if list.MaxItems == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var records []*models.Record

	page := first
	pages := 0
	for {
		pages++
		links, err := e.ItemLinks(page, list.ItemLinksSelector)
		if err != nil {
			return records, fmt.Errorf("extractor: item links on page %d: %w", pages, err)
		}

		for _, link := range links {
			if len(records) >= list.MaxItems {
				return records, nil
			}
			norm := normalizeURL(link)
			if seen[norm] {
				continue
			}
			seen[norm] = true

			detail, err := fetch(link)
			if err != nil {
				e.logger.Warn().Err(err).Str("url", link).Msg("failed to fetch detail page")
				continue
			}
			record, err := e.ExtractSingle(detail, fields)
			if err != nil {
				e.logger.Warn().Err(err).Str("url", link).Msg("failed to extract detail page")
				continue
			}
			if record == nil {
				continue
			}
			records = append(records, record)
		}

		if list.MaxPages > 0 && pages >= list.MaxPages {
			return records, nil
		}
		next := e.NextPageURL(page, list.PaginationSelector)
		if next == "" {
			return records, nil
		}
		page, err = fetch(next)
		if err != nil {
			return records, fmt.Errorf("extractor: fetch page %d: %w", pages+1, err)
		}
	}
}

// normalizeURL lower-cases the host, drops a trailing slash and fragment,
// for the within-run dedup set (§4.2: "detail URLs are URL-normalized and
// tracked in a set").
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
