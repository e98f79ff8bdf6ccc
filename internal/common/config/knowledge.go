// internal/common/config/knowledge.go
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "garage-assistant/internal/common/errors"
	"garage-assistant/internal/common/validation"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

//go:embed knowledge.schema.json
var knowledgeSchema []byte

// Knowledge holds the static keyword, expansion, prompt and synthesis tables.
// It is loaded once and shared read-only by every pipeline component.
type Knowledge struct {
	Keywords   KeywordTables       `yaml:"keywords"`
	Expansions map[string][]string `yaml:"expansions"`
	Prompts    PromptTables        `yaml:"prompts"`
	Synthesis  SynthesisTables     `yaml:"synthesis"`
}

type KeywordTables struct {
	Triggers   []string            `yaml:"triggers"`
	Domain     map[string][]string `yaml:"domain"`
	Pricing    []string            `yaml:"pricing"`
	Diagnostic []string            `yaml:"diagnostic"`
	Safety     []string            `yaml:"safety"`
	LookupCues []string            `yaml:"lookup_cues"`
	Entities   map[string][]string `yaml:"entities"`
}

type PromptTemplate struct {
	Template    string  `yaml:"template"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type PromptTables struct {
	Templates    map[string]PromptTemplate `yaml:"templates"`
	RoleFraming  map[string]string         `yaml:"role_framing"`
	LevelFraming map[string]string         `yaml:"level_framing"`
}

type Banners struct {
	WithAI    map[string]string `yaml:"with_ai"`
	WithoutAI map[string]string `yaml:"without_ai"`
}

type SynthesisTables struct {
	Advisories      map[string]string `yaml:"advisories"`
	Banners         Banners           `yaml:"banners"`
	NoResults       string            `yaml:"no_results"`
	DegradedNote    string            `yaml:"degraded_note"`
	AggregateLabels map[string]string `yaml:"aggregate_labels"`
	TableLabels     map[string]string `yaml:"table_labels"`
}

// LoadKnowledge reads the knowledge tables at path, or the embedded defaults when path is empty.
func LoadKnowledge(path string) (*Knowledge, error) {
	if path == "" {
		return ParseKnowledge(defaultKnowledge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file %s: %w", path, err)
	}
	return ParseKnowledge(data)
}

// ParseKnowledge validates raw YAML against the knowledge schema and decodes it.
func ParseKnowledge(data []byte) (*Knowledge, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("knowledge yaml: %v", err))
	}

	res, err := validation.ValidateDocument(knowledgeSchema, raw)
	if err != nil {
		return nil, apperrors.NewConfigInvalidError(err.Error())
	}
	if err := res.Err(); err != nil {
		return nil, apperrors.NewConfigInvalidError(err.Error())
	}

	var k Knowledge
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("knowledge decode: %v", err))
	}
	return &k, nil
}

// DefaultKnowledge parses the embedded tables.
func DefaultKnowledge() (*Knowledge, error) {
	return ParseKnowledge(defaultKnowledge)
}

// MustDefaultKnowledge is DefaultKnowledge for tests and tools; it panics on a broken build.
func MustDefaultKnowledge() *Knowledge {
	k, err := DefaultKnowledge()
	if err != nil {
		panic(err)
	}
	return k
}

// KnowledgeSchema exposes the JSON schema used to validate knowledge files.
func KnowledgeSchema() []byte {
	out := make([]byte, len(knowledgeSchema))
	copy(out, knowledgeSchema)
	return out
}
