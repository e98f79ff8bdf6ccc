// internal/assistant/expand-query/handler.go
package expandquery

import (
	"strings"

	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/textnorm"
)

const (
	ComponentName = "expand-query"
)

// Expander maps canonical domain keywords to search phrasings.
type Expander struct {
	table      map[string][]string
	maxQueries int
	logger     logger.Logger
}

func NewExpander(config *Config, log logger.Logger) *Expander {
	table := make(map[string][]string, len(config.Expansions))
	for term, phrasings := range config.Expansions {
		table[textnorm.Normalize(term)] = append([]string(nil), phrasings...)
	}
	return &Expander{
		table:      table,
		maxQueries: config.MaxQueries,
		logger:     logger.ForComponent(log, ComponentName),
	}
}

// Expand returns the phrasings for keyword, or [keyword] when it has none.
func (e *Expander) Expand(keyword string) []string {
	if phrasings, ok := e.table[textnorm.Normalize(keyword)]; ok {
		return append([]string(nil), phrasings...)
	}
	return []string{keyword}
}

// Queries builds the ordered search query list: the question itself, then the
// expansions of every keyword, deduplicated and capped at max (or the configured
// limit when max <= 0).
func (e *Expander) Queries(question string, keywords []string, max int) []string {
	if max <= 0 {
		max = e.maxQueries
	}

	var out []string
	seen := make(map[string]bool)
	add := func(q string) bool {
		q = strings.TrimSpace(q)
		key := textnorm.Normalize(q)
		if key == "" || seen[key] {
			return true
		}
		if max > 0 && len(out) >= max {
			return false
		}
		seen[key] = true
		out = append(out, q)
		return true
	}

	if !add(question) {
		return out
	}
	for _, kw := range keywords {
		for _, q := range e.Expand(kw) {
			if !add(q) {
				e.logger.Debug("query list capped", map[string]interface{}{"max": max})
				return out
			}
		}
	}
	return out
}
