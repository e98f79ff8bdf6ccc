// internal/assistant/synthesize-response/handler.go
package synthesizeresponse

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

const ComponentName = "synthesize-response"

// Synthesizer merges evidence and the optional completion into the final
// Answer. It performs no I/O.
type Synthesizer struct {
	config *Config
	logger logger.Logger
}

func NewSynthesizer(config *Config, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		config: config,
		logger: logger.ForComponent(log, ComponentName),
	}
}

func (s *Synthesizer) Synthesize(in Input) models.Answer {
	provenance := models.ProvenanceOf(len(in.Web), len(in.DB))

	answer := models.Answer{
		Intents:    append([]models.Intent(nil), in.Intents...),
		Provenance: provenance,
		AI:         in.Completion != nil,
		ModelMeta: models.ModelMeta{
			Strategy:    strategyOf(in.Completion),
			Transitions: in.Transitions,
		},
	}

	if in.Completion == nil && provenance == models.ProvenanceNone {
		answer.Text = s.config.Synthesis.NoResults
		return answer
	}

	answer.Sources = models.Sources{Web: in.Web, DB: in.DB}
	answer.AdvisoryNote = s.advisory(in.Intents)

	if in.Completion != nil {
		answer.ModelMeta.Model = in.Completion.ModelUsed
		answer.ModelMeta.TokenUsage = in.Completion.TokenUsage
		answer.ModelMeta.UsedFallback = in.Completion.UsedFallback
		if in.Completion.UsedFallback {
			answer.ModelMeta.DegradedNote = s.config.Synthesis.DegradedNote
		}
		answer.Text = s.withCompletion(in.Completion, provenance)
	} else {
		answer.Text = s.withoutCompletion(in, provenance)
	}

	s.logger.Debug("answer synthesized", map[string]interface{}{
		"provenance": string(provenance),
		"strategy":   answer.ModelMeta.Strategy,
		"length":     utf8.RuneCountInString(answer.Text),
	})
	return answer
}

// withCompletion keeps the notes intact and cuts the completion body to fit.
func (s *Synthesizer) withCompletion(c *models.CompletionResult, provenance models.Provenance) string {
	var notes []string
	if c.UsedFallback && s.config.Synthesis.DegradedNote != "" {
		notes = append(notes, s.config.Synthesis.DegradedNote)
	}
	if banner := s.config.Synthesis.Banners.WithAI[string(provenance)]; banner != "" {
		notes = append(notes, banner)
	}

	body := strings.TrimSpace(c.Text)
	if len(notes) == 0 {
		return Truncate(body, s.config.MaxLength)
	}

	suffix := "\n\n" + strings.Join(notes, "\n")
	budget := s.config.MaxLength - utf8.RuneCountInString(suffix)
	if budget <= 0 {
		return Truncate(strings.TrimSpace(suffix), s.config.MaxLength)
	}
	return Truncate(body, budget) + suffix
}

func (s *Synthesizer) withoutCompletion(in Input, provenance models.Provenance) string {
	var b strings.Builder
	b.WriteString(s.config.Synthesis.Banners.WithoutAI[string(provenance)])

	for _, line := range s.Facts(in.DB) {
		b.WriteString("\n- ")
		b.WriteString(line)
	}

	for i, hit := range in.Web {
		if i == s.config.SnippetsCap {
			break
		}
		b.WriteString("\n- ")
		b.WriteString(WebLine(hit))
	}

	return Truncate(strings.TrimSpace(b.String()), s.config.MaxLength)
}

// Facts renders db records as labelled lines, a few rows per table.
func (s *Synthesizer) Facts(records []models.ContextRecord) []string {
	lines := make([]string, 0, len(records))
	shown := make(map[string]int)

	for _, rec := range records {
		switch rec.Kind {
		case models.RecordKindAggregate:
			label := s.config.Synthesis.AggregateLabels[rec.Name]
			if label == "" {
				label = rec.Name
			}
			lines = append(lines, fmt.Sprintf("%s : %s", label, formatValue(rec.Value)))
		case models.RecordKindCount:
			lines = append(lines, fmt.Sprintf("%s : %s", s.tableLabel(rec.Table), formatValue(rec.Value)))
		case models.RecordKindRow, models.RecordKindDocument:
			if shown[rec.Table] >= s.config.RowsShown {
				continue
			}
			shown[rec.Table]++
			lines = append(lines, fmt.Sprintf("%s : %s", s.tableLabel(rec.Table), formatRow(rec)))
		}
	}
	return lines
}

func (s *Synthesizer) tableLabel(table string) string {
	if label := s.config.Synthesis.TableLabels[table]; label != "" {
		return label
	}
	return table
}

func (s *Synthesizer) advisory(intents models.Intents) string {
	for _, intent := range advisoryPriority {
		if !intents.Has(intent) {
			continue
		}
		if note := s.config.Synthesis.Advisories[string(intent)]; note != "" {
			return note
		}
	}
	return ""
}

func strategyOf(c *models.CompletionResult) string {
	switch {
	case c == nil:
		return models.StrategyEvidenceOnly
	case c.UsedFallback:
		return models.StrategyFallbackModel
	}
	return models.StrategyLLM
}

// WebLine renders a search hit as "title : snippet (url)".
func WebLine(hit models.SearchResult) string {
	line := strings.TrimSpace(hit.Title)
	if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
		if line != "" {
			line += " : "
		}
		line += snippet
	}
	if hit.URL != "" {
		line += " (" + hit.URL + ")"
	}
	return line
}

// formatRow prints a document's content field, or every column as key=value
// in key order.
func formatRow(rec models.ContextRecord) string {
	if rec.Kind == models.RecordKindDocument {
		if content, ok := rec.Row["content"]; ok {
			return formatValue(content)
		}
	}

	keys := make([]string, 0, len(rec.Row))
	for k := range rec.Row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(rec.Row[k])
	}
	return strings.Join(parts, ", ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', 2, 64)
	case float32:
		return formatValue(float64(val))
	case bool:
		if val {
			return "oui"
		}
		return "non"
	case time.Time:
		return val.Format("02/01/2006")
	default:
		return fmt.Sprint(val)
	}
}
