package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/typer"
)

func testExtractor() *Extractor {
	return New(config.GetLogger(), typer.Context{
		DefaultRegion: "US", Locale: "en", Timezone: "UTC", Now: time.Now(),
	})
}

const singlePageHTML = `
<html><body>
  <h1 class="title">Acme Widget</h1>
  <span class="price">$19.99</span>
  <a class="stock" data-state="in-stock">In stock</a>
</body></html>`

func fieldMap(name string, sel models.SelectorSpec, ft models.FieldType) models.FieldMap {
	return models.FieldMap{FieldName: name, Selector: sel, FieldType: ft}
}

func TestExtractSingle_ResolvesDeclaredFields(t *testing.T) {
	e := testExtractor()
	fields := map[string]models.FieldMap{
		"title": fieldMap("title", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".title", Mode: models.SelectorModeText}, models.FieldTypeString),
		"price": fieldMap("price", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".price", Mode: models.SelectorModeText}, models.FieldTypeMoney),
		"stock": fieldMap("stock", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".stock", Mode: models.SelectorModeAttribute, Attribute: "data-state"}, models.FieldTypeBoolean),
	}

	record, err := e.ExtractSingle(Artifact{HTML: singlePageHTML, URL: "https://example.com/item/1"}, fields)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "Acme Widget", record.Data["title"])
	assert.NotNil(t, record.Data["price"])
	assert.Equal(t, true, record.Data["stock"])
	assert.Len(t, record.Evidence, 3)
}

func TestExtractSingle_MissingSelectorYieldsNullNotError(t *testing.T) {
	e := testExtractor()
	fields := map[string]models.FieldMap{
		"missing": fieldMap("missing", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".does-not-exist", Mode: models.SelectorModeText}, models.FieldTypeString),
		"title":   fieldMap("title", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".title", Mode: models.SelectorModeText}, models.FieldTypeString),
	}
	record, err := e.ExtractSingle(Artifact{HTML: singlePageHTML, URL: "https://example.com/item/1"}, fields)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Nil(t, record.Data["missing"])
	assert.Contains(t, record.Evidence["missing"].Errors, "empty_value")
}

func TestExtractSingle_NoFieldsResolve_YieldsNilRecord(t *testing.T) {
	e := testExtractor()
	fields := map[string]models.FieldMap{
		"missing": fieldMap("missing", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".nope", Mode: models.SelectorModeText}, models.FieldTypeString),
	}
	record, err := e.ExtractSingle(Artifact{HTML: singlePageHTML, URL: "https://example.com/item/1"}, fields)
	require.NoError(t, err)
	assert.Nil(t, record)
}

const listPageHTML = `
<html><body>
  <a class="item" href="/item/1">Item 1</a>
  <a class="item" href="/item/2">Item 2</a>
  <a class="next" href="/page/2">Next</a>
</body></html>`

func TestItemLinks_ResolvesRelativeToAbsolute(t *testing.T) {
	e := testExtractor()
	sel := models.SelectorSpec{Language: models.SelectorCSS, Expression: "a.item", Mode: models.SelectorModeAttribute, Attribute: "href", All: true}
	links, err := e.ItemLinks(Artifact{HTML: listPageHTML, URL: "https://example.com/list"}, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/item/1", "https://example.com/item/2"}, links)
}

func TestNextPageURL_ResolvesAbsolute(t *testing.T) {
	e := testExtractor()
	sel := models.SelectorSpec{Language: models.SelectorCSS, Expression: "a.next", Mode: models.SelectorModeAttribute, Attribute: "href"}
	next := e.NextPageURL(Artifact{HTML: listPageHTML, URL: "https://example.com/list"}, sel)
	assert.Equal(t, "https://example.com/page/2", next)
}

func TestExtractList_DedupesAndRespectsMaxItems(t *testing.T) {
	e := testExtractor()
	list := models.ListConfig{
		ItemLinksSelector: models.SelectorSpec{Language: models.SelectorCSS, Expression: "a.item", Mode: models.SelectorModeAttribute, Attribute: "href", All: true},
		MaxItems:          1,
		MaxPages:          1,
	}
	fields := map[string]models.FieldMap{
		"title": fieldMap("title", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".title", Mode: models.SelectorModeText}, models.FieldTypeString),
	}
	fetchCount := 0
	fetch := func(u string) (Artifact, error) {
		fetchCount++
		return Artifact{HTML: singlePageHTML, URL: u}, nil
	}

	records, err := e.ExtractList(Artifact{HTML: listPageHTML, URL: "https://example.com/list"}, list, fields, fetch)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, fetchCount)
}

func TestExtractList_MaxItemsZeroSkipsDetailFetches(t *testing.T) {
	e := testExtractor()
	list := models.ListConfig{
		ItemLinksSelector: models.SelectorSpec{Language: models.SelectorCSS, Expression: "a.item", Mode: models.SelectorModeAttribute, Attribute: "href", All: true},
		MaxItems:          0,
	}
	fields := map[string]models.FieldMap{
		"title": fieldMap("title", models.SelectorSpec{Language: models.SelectorCSS, Expression: ".title", Mode: models.SelectorModeText}, models.FieldTypeString),
	}
	fetchCount := 0
	fetch := func(u string) (Artifact, error) {
		fetchCount++
		return Artifact{HTML: singlePageHTML, URL: u}, nil
	}

	records, err := e.ExtractList(Artifact{HTML: listPageHTML, URL: "https://example.com/list"}, list, fields, fetch)
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.Equal(t, 0, fetchCount)
}
