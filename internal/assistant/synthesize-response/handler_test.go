// internal/assistant/synthesize-response/handler_test.go
package synthesizeresponse

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garage-assistant/internal/common/config"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestSynthesizer(t *testing.T) (*Synthesizer, config.SynthesisTables) {
	k := config.MustDefaultKnowledge()
	cfg := LoadConfig(k, nil)
	return NewSynthesizer(cfg, logger.NewTestLogger(t)), k.Synthesis
}

func webHits(n int) []models.SearchResult {
	hits := make([]models.SearchResult, n)
	for i := range hits {
		hits[i] = models.SearchResult{
			Query:   "plaquettes de frein",
			Title:   "Changer ses plaquettes",
			Snippet: "Démontez la roue puis l'étrier.",
			URL:     "https://example.com/plaquettes/" + string(rune('a'+i)),
		}
	}
	return hits
}

func mechanicCount(n int64) models.ContextRecord {
	return models.ContextRecord{
		Table: models.TableEmployees,
		Kind:  models.RecordKindAggregate,
		Name:  string(models.AggregateMechanicCount),
		Value: n,
	}
}

// ==========================
// With Completion
// ==========================

func TestSynthesize_WithCompletion(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	answer := s.Synthesize(Input{
		Intents:    models.Intents{models.IntentWebSearch, models.IntentTechnical},
		Web:        webHits(2),
		Completion: &models.CompletionResult{Text: "Démontez la roue.", ModelUsed: "gpt-4o", TokenUsage: models.TokenUsage{Total: 42}},
	})

	assert.True(t, answer.AI)
	assert.Equal(t, models.ProvenanceWeb, answer.Provenance)
	assert.Equal(t, "Démontez la roue.\n\n"+tables.Banners.WithAI["web"], answer.Text)
	assert.Equal(t, tables.Advisories["technical"], answer.AdvisoryNote)
	assert.Equal(t, models.StrategyLLM, answer.ModelMeta.Strategy)
	assert.Equal(t, "gpt-4o", answer.ModelMeta.Model)
	assert.Equal(t, 42, answer.ModelMeta.TokenUsage.Total)
	assert.Len(t, answer.Sources.Web, 2)
	assert.Empty(t, answer.ModelMeta.DegradedNote)
}

func TestSynthesize_FallbackModelAddsDegradedNote(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	answer := s.Synthesize(Input{
		Intents:    models.Intents{models.IntentDatabaseLookup},
		DB:         []models.ContextRecord{mechanicCount(3)},
		Completion: &models.CompletionResult{Text: "Vous avez 3 mécaniciens.", ModelUsed: "gpt-4o-mini", UsedFallback: true},
	})

	assert.Equal(t, models.StrategyFallbackModel, answer.ModelMeta.Strategy)
	assert.True(t, answer.ModelMeta.UsedFallback)
	assert.Equal(t, tables.DegradedNote, answer.ModelMeta.DegradedNote)
	assert.Equal(t, "Vous avez 3 mécaniciens.\n\n"+tables.DegradedNote+"\n"+tables.Banners.WithAI["db"], answer.Text)
	assert.Equal(t, models.ProvenanceDB, answer.Provenance)
}

func TestSynthesize_CompletionWithoutEvidence(t *testing.T) {
	s, _ := newTestSynthesizer(t)

	answer := s.Synthesize(Input{
		Intents:    models.Intents{models.IntentGeneral},
		Completion: &models.CompletionResult{Text: "  Bonjour !  ", ModelUsed: "gpt-4o"},
	})

	assert.Equal(t, "Bonjour !", answer.Text)
	assert.Equal(t, models.ProvenanceNone, answer.Provenance)
	assert.Empty(t, answer.AdvisoryNote)
}

func TestSynthesize_AdvisoryPriority(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	tests := []struct {
		name     string
		intents  models.Intents
		expected string
	}{
		{"safety wins over everything", models.Intents{models.IntentTechnical, models.IntentPricing, models.IntentDiagnostic, models.IntentSafety}, tables.Advisories["safety"]},
		{"diagnostic over pricing", models.Intents{models.IntentPricing, models.IntentDiagnostic}, tables.Advisories["diagnostic"]},
		{"pricing over technical", models.Intents{models.IntentTechnical, models.IntentPricing}, tables.Advisories["pricing"]},
		{"technical alone", models.Intents{models.IntentTechnical}, tables.Advisories["technical"]},
		{"lookup has none", models.Intents{models.IntentDatabaseLookup}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := s.Synthesize(Input{
				Intents:    tt.intents,
				Completion: &models.CompletionResult{Text: "ok"},
			})
			assert.Equal(t, tt.expected, answer.AdvisoryNote)
		})
	}
}

// ==========================
// Without Completion
// ==========================

func TestSynthesize_EvidenceOnly(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	answer := s.Synthesize(Input{
		Intents: models.Intents{models.IntentDatabaseLookup, models.IntentWebSearch},
		DB: []models.ContextRecord{
			mechanicCount(3),
			{Table: models.TableEmployees, Kind: models.RecordKindCount, Value: int64(5)},
			{Table: models.TableInvoices, Kind: models.RecordKindAggregate, Name: string(models.AggregateTotalRevenue), Value: 12500.5},
		},
		Web: webHits(1),
	})

	assert.False(t, answer.AI)
	assert.Equal(t, models.StrategyEvidenceOnly, answer.ModelMeta.Strategy)
	assert.Equal(t, models.ProvenanceBoth, answer.Provenance)

	lines := strings.Split(answer.Text, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, tables.Banners.WithoutAI["both"], lines[0])
	assert.Equal(t, "- Nombre de mécaniciens : 3", lines[1])
	assert.Equal(t, "- Employés : 5", lines[2])
	assert.Equal(t, "- Chiffre d'affaires total : 12500.50", lines[3])
	assert.Equal(t, "- Changer ses plaquettes : Démontez la roue puis l'étrier. (https://example.com/plaquettes/a)", lines[4])
}

func TestSynthesize_EvidenceOnlyCapsRows(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	var records []models.ContextRecord
	for i := 0; i < 10; i++ {
		records = append(records, models.ContextRecord{
			Table: models.TableClients,
			Kind:  models.RecordKindRow,
			Row:   map[string]interface{}{"name": "Dupont", "id": int64(i)},
		})
	}

	answer := s.Synthesize(Input{Intents: models.Intents{models.IntentDatabaseLookup}, DB: records})

	assert.True(t, strings.HasPrefix(answer.Text, tables.Banners.WithoutAI["db"]))
	assert.Equal(t, defaultRowsShown, strings.Count(answer.Text, "Clients : id="))
	assert.Contains(t, answer.Text, "- Clients : id=0, name=Dupont")
	// every record stays in the sources even when not printed
	assert.Len(t, answer.Sources.DB, 10)
}

func TestSynthesize_NoEvidenceIsNoResults(t *testing.T) {
	s, tables := newTestSynthesizer(t)

	answer := s.Synthesize(Input{Intents: models.Intents{models.IntentTechnical, models.IntentWebSearch}})

	assert.Equal(t, tables.NoResults, answer.Text)
	assert.Empty(t, answer.Sources.Web)
	assert.Empty(t, answer.Sources.DB)
	assert.Equal(t, models.ProvenanceNone, answer.Provenance)
	assert.False(t, answer.AI)
}

// ==========================
// Truncation
// ==========================

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		max      int
		expected string
	}{
		{"short text untouched", "Bonjour.", 20, "Bonjour."},
		{"sentence boundary", "Première phrase. Deuxième phrase trop longue", 30, "Première phrase."},
		{"newline boundary", "- ligne un\n- ligne deux qui dépasse", 20, "- ligne un"},
		{"clause boundary", "vérifiez les disques, puis les plaquettes et le liquide", 35, "vérifiez les disques…"},
		{"whitespace boundary", "vérifiez les disques puis les plaquettes", 25, "vérifiez les disques…"},
		{"decimal is not a sentence end", "Le prix est 3.5 euros environ pour la pièce", 20, "Le prix est 3.5…"},
		{"single long word", "anticonstitutionnellement", 10, "anticonst…"},
		{"runes not bytes", "éééé éééé éééé", 10, "éééé éééé…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.max)
		})
	}
}

func TestTruncate_NeverBreaksWords(t *testing.T) {
	words := strings.Fields("le système de freinage comprend les disques les plaquettes les étriers et le liquide, qui doit être remplacé tous les deux ans; un contrôle régulier évite les pannes")
	text := strings.Join(words, " ")
	known := make(map[string]bool, len(words))
	for _, w := range words {
		known[strings.TrimRightFunc(w, unicode.IsPunct)] = true
	}

	for max := 15; max < utf8.RuneCountInString(text); max += 7 {
		got := Truncate(text, max)
		require.LessOrEqual(t, utf8.RuneCountInString(got), max)

		body := strings.TrimSuffix(got, ellipsis)
		for _, w := range strings.Fields(body) {
			assert.True(t, known[strings.TrimRightFunc(w, unicode.IsPunct)], "broken word %q at max %d", w, max)
		}
	}
}

func TestSynthesize_LongCompletionKeepsBanner(t *testing.T) {
	k := config.MustDefaultKnowledge()
	cfg := LoadConfig(k, nil)
	cfg.MaxLength = 200
	s := NewSynthesizer(cfg, logger.NewNoOpLogger())

	long := strings.Repeat("Contrôlez la pression des pneus à froid. ", 20)
	answer := s.Synthesize(Input{
		Intents:    models.Intents{models.IntentTechnical},
		Web:        webHits(1),
		Completion: &models.CompletionResult{Text: long, ModelUsed: "gpt-4o"},
	})

	assert.LessOrEqual(t, utf8.RuneCountInString(answer.Text), 200)
	assert.True(t, strings.HasSuffix(answer.Text, k.Synthesis.Banners.WithAI["web"]))
	assert.True(t, strings.HasPrefix(answer.Text, "Contrôlez la pression des pneus à froid."))
}

func BenchmarkTruncate(b *testing.B) {
	text := strings.Repeat("Le liquide de frein doit être remplacé, vérifiez le niveau. ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Truncate(text, 2000)
	}
}
