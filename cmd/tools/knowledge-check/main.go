// cmd/tools/knowledge-check/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	classifyquery "garage-assistant/internal/assistant/classify-query"
	expandquery "garage-assistant/internal/assistant/expand-query"
	selectprompt "garage-assistant/internal/assistant/select-prompt"
	"garage-assistant/internal/common/config"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

var (
	knowledgePath string
	question      string
	role          string
	level         string
)

var rootCmd = &cobra.Command{
	Use:   "knowledge-check",
	Short: "Inspect and validate the assistant's knowledge tables",
	Long: `Validates a knowledge file against the embedded JSON schema and shows
how the classifier, expander and prompt selector read a sample question.
Without --path the embedded default tables are used.`,
	SilenceUsage: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a knowledge file",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Print the analysis, search queries and prompt for a question",
	Args:  cobra.NoArgs,
	RunE:  runClassify,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the knowledge JSON schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(string(config.KnowledgeSchema()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&knowledgePath, "path", "", "path to a knowledge.yaml file")
	classifyCmd.Flags().StringVarP(&question, "question", "q", "", "question to analyse")
	classifyCmd.Flags().StringVar(&role, "role", "", "caller role")
	classifyCmd.Flags().StringVar(&level, "level", "", "experience level")
	_ = classifyCmd.MarkFlagRequired("question")

	rootCmd.AddCommand(validateCmd, classifyCmd, schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	k, err := config.LoadKnowledge(knowledgePath)
	if err != nil {
		return fmt.Errorf("knowledge invalid: %w", err)
	}

	source := knowledgePath
	if source == "" {
		source = "embedded defaults"
	}
	cmd.Printf("Knowledge valid: %s\n", source)
	cmd.Printf("  domain terms:   %d\n", len(k.Keywords.Domain))
	cmd.Printf("  entity tables:  %d\n", len(k.Keywords.Entities))
	cmd.Printf("  expansions:     %d\n", len(k.Expansions))
	cmd.Printf("  templates:      %s\n", sortedKeys(k.Prompts.Templates))

	for term := range k.Keywords.Domain {
		if _, ok := k.Expansions[term]; !ok {
			cmd.Printf("  warning: domain term %q has no expansions\n", term)
		}
	}
	return nil
}

type classification struct {
	Analysis classifyquery.Analysis `json:"analysis"`
	Queries  []string               `json:"queries"`
	Prompt   models.PromptSpec      `json:"prompt"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	k, err := config.LoadKnowledge(knowledgePath)
	if err != nil {
		return fmt.Errorf("knowledge invalid: %w", err)
	}

	log := logger.NewNoOpLogger()
	classifier := classifyquery.NewClassifier(classifyquery.LoadConfig(k), log)
	expander := expandquery.NewExpander(expandquery.LoadConfig(k, nil), log)
	selector := selectprompt.NewSelector(selectprompt.LoadConfig(k), log)

	q := models.NewQuestion(question, role, level)
	analysis := classifier.Analyze(q.Text)

	out := classification{
		Analysis: analysis,
		Prompt:   selector.Select(analysis.Intents, q.Role, q.Level),
	}
	if analysis.Intents.HasAny(models.IntentWebSearch, models.IntentTechnical, models.IntentDiagnostic) {
		out.Queries = expander.Queries(q.Text, analysis.DomainKeywords, 0)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func sortedKeys(m map[string]config.PromptTemplate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
