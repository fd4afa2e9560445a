package extractor

import (
	"regexp"
	"sync"
)

var (
	captureMu    sync.Mutex
	captureCache = make(map[string]*regexp.Regexp)
)

// applyCapture extracts regex group 1 from raw if the pattern matches, per
// the SelectorSpec.RegexCapture contract (§4.2). Returns raw unchanged if the
// pattern fails to compile or does not match.
func applyCapture(raw, pattern string) string {
	captureMu.Lock()
	re, ok := captureCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			re = nil
		}
		captureCache[pattern] = re
	}
	captureMu.Unlock()

	if re == nil {
		return raw
	}
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return raw
	}
	return m[1]
}
