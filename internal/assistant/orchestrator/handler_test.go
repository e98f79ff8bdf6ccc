// internal/assistant/orchestrator/handler_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	classifyquery "garage-assistant/internal/assistant/classify-query"
	expandquery "garage-assistant/internal/assistant/expand-query"
	llmcompletion "garage-assistant/internal/assistant/llm-completion"
	retrievecontext "garage-assistant/internal/assistant/retrieve-context"
	selectprompt "garage-assistant/internal/assistant/select-prompt"
	synthesizeresponse "garage-assistant/internal/assistant/synthesize-response"
	websearch "garage-assistant/internal/assistant/web-search"
	"garage-assistant/internal/common/config"
	apperrors "garage-assistant/internal/common/errors"
	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	k := config.MustDefaultKnowledge()
	return &Config{
		Deadline: 2 * time.Second,
		Classify: classifyquery.LoadConfig(k),
		Expand:   expandquery.LoadConfig(k, nil),
		Search: &websearch.Config{
			Timeout:     time.Second,
			MaxRetries:  1,
			BackoffBase: time.Millisecond,
			CacheTTL:    time.Minute,
			MaxResults:  8,
		},
		Retrieve: &retrievecontext.Config{MaxRows: 50, QueryTimeout: time.Second},
		Prompt:   selectprompt.LoadConfig(k),
		LLM: &llmcompletion.Config{
			Timeout:       time.Second,
			PrimaryModel:  "primary",
			FallbackModel: "fallback",
			FallbackOrder: []string{models.StrategyFallbackModel, models.StrategyEvidenceOnly},
		},
		Synthesis: synthesizeresponse.LoadConfig(k, nil),
	}
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	fn      func(ctx context.Context, query string) ([]websearch.Hit, error)
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]websearch.Hit, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.fn(ctx, query)
}

func (f *fakeSearch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func oneHitPerQuery(_ context.Context, query string) ([]websearch.Hit, error) {
	return []websearch.Hit{{
		Title:   "Guide : " + query,
		Snippet: "Étapes détaillées pour " + query + ".",
		URL:     "https://example.com/" + strings.ReplaceAll(query, " ", "-"),
	}}, nil
}

func blockUntilDone(ctx context.Context, _ string) ([]websearch.Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeStore struct {
	employees []map[string]interface{}
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{employees: []map[string]interface{}{
		{"id": int64(1), "name": "Luc", "role": "mecanicien"},
		{"id": int64(2), "name": "Sami", "role": "mecanicien"},
		{"id": int64(3), "name": "Inès", "role": "mecanicien"},
	}}
}

func (s *fakeStore) Count(ctx context.Context, table string, pred *retrievecontext.Predicate) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if table != models.TableEmployees {
		return 0, nil
	}
	var n int64
	for _, row := range s.employees {
		if pred == nil || row[pred.Column] == pred.Value {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) List(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	if table != models.TableEmployees {
		return nil, nil
	}
	return s.employees, nil
}

func (s *fakeStore) Aggregate(ctx context.Context, name models.AggregateName) (interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	if name == models.AggregateMechanicCount {
		return s.Count(ctx, models.TableEmployees, &retrievecontext.Predicate{Column: "role", Value: "mecanicien"})
	}
	return int64(0), nil
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []llmcompletion.ChatRequest
	fn      func(ctx context.Context, req llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error)
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeLLM) Requests() []llmcompletion.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llmcompletion.ChatRequest(nil), f.prompts...)
}

func llmReplies(text string) *fakeLLM {
	return &fakeLLM{fn: func(_ context.Context, req llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error) {
		return &llmcompletion.ChatResponse{Text: text, Model: req.Model, Usage: models.TokenUsage{Total: 20}}, nil
	}}
}

func llmDown() *fakeLLM {
	return &fakeLLM{fn: func(context.Context, llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error) {
		return nil, &apphttp.StatusError{StatusCode: http.StatusServiceUnavailable}
	}}
}

func newTestOrchestrator(t *testing.T, cfg *Config, deps Dependencies) *Orchestrator {
	t.Helper()
	o, err := New(cfg, deps, logger.NewTestLogger(t))
	require.NoError(t, err)
	return o
}

// ==========================
// Scenario Tests
// ==========================

func TestAnswer_MechanicHeadcount(t *testing.T) {
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: &fakeSearch{fn: oneHitPerQuery},
		Store:          newFakeStore(),
		LLMProvider:    llmDown(),
	})

	answer := o.Answer(context.Background(), models.NewQuestion("Combien j'ai de mécaniciens ?", "admin", ""))

	require.NotNil(t, answer)
	assert.NotEmpty(t, answer.RequestID)
	assert.Equal(t, []models.Intent{models.IntentDatabaseLookup}, answer.Intents)
	assert.Equal(t, models.ProvenanceDB, answer.Provenance)
	assert.Equal(t, models.StrategyEvidenceOnly, answer.ModelMeta.Strategy)
	assert.NotEmpty(t, answer.Sources.DB)
	assert.Empty(t, answer.Sources.Web)

	var mechanics *models.ContextRecord
	for i := range answer.Sources.DB {
		if answer.Sources.DB[i].Name == string(models.AggregateMechanicCount) {
			mechanics = &answer.Sources.DB[i]
		}
	}
	require.NotNil(t, mechanics)
	assert.Equal(t, int64(3), mechanics.Value)
	assert.Contains(t, answer.Text, "Nombre de mécaniciens : 3")
}

func TestAnswer_BrakePadsHowTo(t *testing.T) {
	search := &fakeSearch{fn: oneHitPerQuery}
	llm := llmReplies("Déposez la roue, puis l'étrier, et remplacez les plaquettes.")
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: search,
		Store:          newFakeStore(),
		LLMProvider:    llm,
	})

	answer := o.Answer(context.Background(), models.NewQuestion("Comment changer les plaquettes de frein ?", "client", "debutant"))

	assert.ElementsMatch(t, []models.Intent{models.IntentTechnical, models.IntentWebSearch}, answer.Intents)
	assert.Equal(t, models.ProvenanceWeb, answer.Provenance)
	assert.True(t, answer.AI)
	assert.Equal(t, models.StrategyLLM, answer.ModelMeta.Strategy)
	assert.Empty(t, answer.Sources.DB)
	assert.NotEmpty(t, answer.Sources.Web)

	queries := search.Queries()
	require.Greater(t, len(queries), 1)
	assert.Equal(t, "Comment changer les plaquettes de frein ?", queries[0])
	assert.Contains(t, queries, "plaquettes de frein")

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].UserPrompt, "Résultats web :")
	assert.InDelta(t, 0.1, reqs[0].Temperature, 1e-9)
}

func TestAnswer_WebFailureKeepsDBEvidence(t *testing.T) {
	search := &fakeSearch{fn: func(context.Context, string) ([]websearch.Hit, error) {
		return nil, &apphttp.StatusError{StatusCode: http.StatusBadGateway}
	}}
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: search,
		Store:          newFakeStore(),
		LLMProvider:    llmReplies("Vous avez 3 mécaniciens, voici les tarifs relevés."),
	})

	// lookup cue plus a technical term: both retrieval and search run
	answer := o.Answer(context.Background(), models.NewQuestion("Combien de mécaniciens pour changer les plaquettes de frein ?", "", ""))

	assert.NotEmpty(t, search.Queries())
	assert.Empty(t, answer.Sources.Web)
	assert.NotEmpty(t, answer.Sources.DB)
	assert.Equal(t, models.ProvenanceDB, answer.Provenance)
}

func TestAnswer_EverythingFails(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: &fakeSearch{fn: func(context.Context, string) ([]websearch.Hit, error) {
			return nil, &apphttp.StatusError{StatusCode: http.StatusInternalServerError}
		}},
		Store:       store,
		LLMProvider: llmDown(),
	})

	answer := o.Answer(context.Background(), models.NewQuestion("Combien de mécaniciens pour changer les plaquettes de frein ?", "", ""))

	assert.Equal(t, config.MustDefaultKnowledge().Synthesis.NoResults, answer.Text)
	assert.Empty(t, answer.Sources.Web)
	assert.Empty(t, answer.Sources.DB)
	assert.Equal(t, models.ProvenanceNone, answer.Provenance)
	assert.False(t, answer.AI)
}

func TestAnswer_FallbackModelIsReported(t *testing.T) {
	llm := &fakeLLM{fn: func(_ context.Context, req llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error) {
		if req.Model == "primary" {
			return nil, &apphttp.StatusError{StatusCode: http.StatusTooManyRequests}
		}
		return &llmcompletion.ChatResponse{Text: "Réponse de secours.", Model: req.Model}, nil
	}}
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: &fakeSearch{fn: oneHitPerQuery},
		LLMProvider:    llm,
	})

	answer := o.Answer(context.Background(), models.NewQuestion("Comment changer les plaquettes de frein ?", "", ""))

	assert.Equal(t, models.StrategyFallbackModel, answer.ModelMeta.Strategy)
	assert.True(t, answer.ModelMeta.UsedFallback)
	assert.Contains(t, answer.Text, config.MustDefaultKnowledge().Synthesis.DegradedNote)
	require.Len(t, answer.ModelMeta.Transitions, 2)
	assert.Equal(t, "rate-limited", answer.ModelMeta.Transitions[0].Reason)
}

// ==========================
// Deadline Tests
// ==========================

func TestAnswer_ReturnsWithinDeadline(t *testing.T) {
	cfg := createTestConfig()
	cfg.Deadline = 150 * time.Millisecond
	cfg.Search.Timeout = 10 * time.Second
	cfg.LLM.Timeout = 10 * time.Second

	llm := &fakeLLM{fn: func(ctx context.Context, _ llmcompletion.ChatRequest) (*llmcompletion.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	o := newTestOrchestrator(t, cfg, Dependencies{
		SearchProvider: &fakeSearch{fn: blockUntilDone},
		Store:          newFakeStore(),
		LLMProvider:    llm,
	})

	start := time.Now()
	answer := o.Answer(context.Background(), models.NewQuestion("Comment changer les plaquettes de frein ?", "", ""))
	elapsed := time.Since(start)

	require.NotNil(t, answer)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, models.StrategyEvidenceOnly, answer.ModelMeta.Strategy)
	assert.Empty(t, llm.Requests(), "no completion is attempted once the deadline has passed")
	assert.Equal(t, config.MustDefaultKnowledge().Synthesis.NoResults, answer.Text)
}

func TestAnswer_CallerCancellation(t *testing.T) {
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: &fakeSearch{fn: blockUntilDone},
		LLMProvider:    llmReplies("never"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	answer := o.Answer(ctx, models.NewQuestion("Comment changer les plaquettes de frein ?", "", ""))
	assert.False(t, answer.AI)
}

func TestAnswer_ConcurrentQuestions(t *testing.T) {
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{
		SearchProvider: &fakeSearch{fn: oneHitPerQuery},
		Store:          newFakeStore(),
		LLMProvider:    llmReplies("ok."),
	})

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("Combien j'ai de mécaniciens ? (%d)", i)
			ids[i] = o.Answer(context.Background(), models.NewQuestion(text, "", "")).RequestID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}

// ==========================
// Configuration
// ==========================

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero deadline", func(c *Config) { c.Deadline = 0 }},
		{"missing primary model", func(c *Config) { c.LLM.PrimaryModel = "" }},
		{"missing llm config", func(c *Config) { c.LLM = nil }},
		{"empty no-results message", func(c *Config) { c.Synthesis.Synthesis.NoResults = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(cfg)

			o, err := New(cfg, Dependencies{}, logger.NewNoOpLogger())
			require.Error(t, err)
			assert.Nil(t, o)
			assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.Code(err))
		})
	}

	_, err := New(nil, Dependencies{}, logger.NewNoOpLogger())
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.Code(err))
}

func TestNew_NoAdapters(t *testing.T) {
	o := newTestOrchestrator(t, createTestConfig(), Dependencies{})

	answer := o.Answer(context.Background(), models.NewQuestion("Comment changer les plaquettes de frein ?", "", ""))
	assert.Equal(t, config.MustDefaultKnowledge().Synthesis.NoResults, answer.Text)
}
