// internal/assistant/classify-query/handler.go
package classifyquery

import (
	"sort"

	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/textnorm"
	"garage-assistant/internal/models"
)

const (
	ComponentName = "classify-query"
)

// Classifier tags questions by keyword matching. It holds pre-normalized
// tables and is safe for concurrent use.
type Classifier struct {
	triggers   []string
	domain     []domainTerm
	pricing    []string
	diagnostic []string
	safety     []string
	lookupCues []string
	entities   []entityNouns
	logger     logger.Logger
}

func NewClassifier(config *Config, log logger.Logger) *Classifier {
	kw := config.Keywords
	c := &Classifier{
		triggers:   normalizeAll(kw.Triggers),
		pricing:    normalizeAll(kw.Pricing),
		diagnostic: normalizeAll(kw.Diagnostic),
		safety:     normalizeAll(kw.Safety),
		lookupCues: normalizeAll(kw.LookupCues),
		logger:     logger.ForComponent(log, ComponentName),
	}

	// sorted so DomainKeywords and Tables are deterministic
	for _, term := range sortedKeys(kw.Domain) {
		variants := normalizeAll(append([]string{term}, kw.Domain[term]...))
		c.domain = append(c.domain, domainTerm{canonical: textnorm.Normalize(term), variants: variants})
	}
	for _, table := range models.Tables {
		if nouns, ok := kw.Entities[table]; ok {
			c.entities = append(c.entities, entityNouns{table: table, nouns: normalizeAll(nouns)})
		}
	}
	return c
}

// Classify returns the deduplicated intent tags of question, [general] when nothing matches.
func (c *Classifier) Classify(question string) models.Intents {
	return c.Analyze(question).Intents
}

func (c *Classifier) Analyze(question string) Analysis {
	text := textnorm.Normalize(question)
	a := Analysis{Normalized: text}

	for _, term := range c.domain {
		if matchAny(text, term.variants) {
			a.DomainKeywords = append(a.DomainKeywords, term.canonical)
		}
	}

	if matchAny(text, c.lookupCues) {
		for _, e := range c.entities {
			if matchAny(text, e.nouns) {
				a.Tables = append(a.Tables, e.table)
			}
		}
	}

	if matchAny(text, c.triggers) {
		a.Intents = append(a.Intents, models.IntentWebSearch)
	}
	if len(a.DomainKeywords) > 0 {
		a.Intents = append(a.Intents, models.IntentTechnical)
	}
	if matchAny(text, c.diagnostic) {
		a.Intents = append(a.Intents, models.IntentDiagnostic)
	}
	if matchAny(text, c.safety) {
		a.Intents = append(a.Intents, models.IntentSafety)
	}
	if matchAny(text, c.pricing) {
		a.Intents = append(a.Intents, models.IntentPricing)
	}
	if len(a.Tables) > 0 {
		a.Intents = append(a.Intents, models.IntentDatabaseLookup)
	}
	if len(a.Intents) == 0 {
		a.Intents = models.Intents{models.IntentGeneral}
	}

	c.logger.Debug("question classified", map[string]interface{}{
		"intents":  a.Intents.Strings(),
		"keywords": a.DomainKeywords,
		"tables":   a.Tables,
	})
	return a
}

func matchAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if textnorm.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		n := textnorm.Normalize(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
