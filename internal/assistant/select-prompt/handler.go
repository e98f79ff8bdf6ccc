// internal/assistant/select-prompt/handler.go
package selectprompt

import (
	"strings"

	"garage-assistant/internal/common/config"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

const (
	ComponentName = "select-prompt"

	defaultFraming = "default"
)

// priority lists template intents from most to least specific. Safety
// questions are answered with the diagnostic template.
var priority = []struct {
	match    []models.Intent
	template models.Intent
}{
	{match: []models.Intent{models.IntentDiagnostic, models.IntentSafety}, template: models.IntentDiagnostic},
	{match: []models.Intent{models.IntentTechnical}, template: models.IntentTechnical},
	{match: []models.Intent{models.IntentPricing}, template: models.IntentPricing},
}

type Selector struct {
	templates    map[models.Intent]config.PromptTemplate
	roleFraming  map[models.Role]string
	levelFraming map[models.Level]string
	logger       logger.Logger
}

func NewSelector(cfg *Config, log logger.Logger) *Selector {
	s := &Selector{
		templates:    make(map[models.Intent]config.PromptTemplate, len(cfg.Prompts.Templates)),
		roleFraming:  make(map[models.Role]string),
		levelFraming: make(map[models.Level]string),
		logger:       logger.ForComponent(log, ComponentName),
	}
	for name, tpl := range cfg.Prompts.Templates {
		s.templates[models.Intent(name)] = tpl
	}
	for key, text := range cfg.Prompts.RoleFraming {
		if key == defaultFraming {
			s.roleFraming[models.RoleUnknown] = text
		} else if role := models.ParseRole(key); role != models.RoleUnknown {
			s.roleFraming[role] = text
		}
	}
	for key, text := range cfg.Prompts.LevelFraming {
		if key == defaultFraming {
			s.levelFraming[models.LevelUnknown] = text
		} else if level := models.ParseLevel(key); level != models.LevelUnknown {
			s.levelFraming[level] = text
		}
	}
	return s
}

// Select picks the system prompt and generation parameters for a question.
// It never fails: anything unrecognized gets the general template and the
// default framings.
func (s *Selector) Select(intents models.Intents, role models.Role, level models.Level) models.PromptSpec {
	chosen := models.IntentGeneral
	for _, p := range priority {
		if intents.HasAny(p.match...) {
			if _, ok := s.templates[p.template]; ok {
				chosen = p.template
				break
			}
		}
	}
	tpl := s.templates[chosen]

	roleText, ok := s.roleFraming[role]
	if !ok {
		roleText = s.roleFraming[models.RoleUnknown]
	}
	levelText, ok := s.levelFraming[level]
	if !ok {
		levelText = s.levelFraming[models.LevelUnknown]
	}

	parts := []string{tpl.Template}
	for _, framing := range []string{roleText, levelText} {
		if strings.TrimSpace(framing) != "" {
			parts = append(parts, framing)
		}
	}

	spec := models.PromptSpec{
		Intent:         chosen,
		Template:       strings.Join(parts, "\n"),
		Temperature:    tpl.Temperature,
		MaxTokens:      tpl.MaxTokens,
		PreferAdvanced: chosen == models.IntentDiagnostic && level == models.LevelExpert,
	}

	s.logger.Debug("prompt selected", map[string]interface{}{
		"intent":      string(chosen),
		"role":        role.String(),
		"level":       level.String(),
		"temperature": spec.Temperature,
	})
	return spec
}
