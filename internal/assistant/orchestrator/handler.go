// internal/assistant/orchestrator/handler.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	classifyquery "garage-assistant/internal/assistant/classify-query"
	expandquery "garage-assistant/internal/assistant/expand-query"
	llmcompletion "garage-assistant/internal/assistant/llm-completion"
	retrievecontext "garage-assistant/internal/assistant/retrieve-context"
	selectprompt "garage-assistant/internal/assistant/select-prompt"
	synthesizeresponse "garage-assistant/internal/assistant/synthesize-response"
	websearch "garage-assistant/internal/assistant/web-search"
	apperrors "garage-assistant/internal/common/errors"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/metrics"
	"garage-assistant/internal/common/observability"
	"garage-assistant/internal/common/tracing"
	"garage-assistant/internal/models"
)

const ComponentName = "orchestrator"

// Orchestrator answers one question at a time per call; calls may run
// concurrently and share only the web-search cache.
type Orchestrator struct {
	config      *Config
	classifier  *classifyquery.Classifier
	expander    *expandquery.Expander
	search      *websearch.Client
	retriever   *retrievecontext.Retriever
	selector    *selectprompt.Selector
	llm         *llmcompletion.Client
	synthesizer *synthesizeresponse.Synthesizer
	obs         *observability.Observability
	logger      logger.Logger
}

// New validates config and wires the pipeline. The only error it returns is
// a CONFIG_INVALID StandardError.
func New(config *Config, deps Dependencies, log logger.Logger) (*Orchestrator, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:      config,
		classifier:  classifyquery.NewClassifier(config.Classify, log),
		expander:    expandquery.NewExpander(config.Expand, log),
		retriever:   retrievecontext.NewRetriever(config.Retrieve, deps.Store, deps.Index, log),
		selector:    selectprompt.NewSelector(config.Prompt, log),
		llm:         llmcompletion.NewClient(config.LLM, deps.LLMProvider, log),
		synthesizer: synthesizeresponse.NewSynthesizer(config.Synthesis, log),
		obs:         deps.Observability,
		logger:      logger.ForComponent(log, ComponentName),
	}
	if deps.SearchProvider != nil {
		o.search = websearch.NewClient(config.Search, deps.SearchProvider, deps.SearchCache, log)
	}

	o.logger.Info("orchestrator ready", map[string]interface{}{
		"deadline":    config.Deadline.String(),
		"webSearch":   o.search != nil,
		"recordStore": deps.Store != nil,
		"index":       deps.Index != nil,
		"llm":         deps.LLMProvider != nil,
	})
	return o, nil
}

// Answer never fails: every upstream failure degrades the answer instead.
func (o *Orchestrator) Answer(ctx context.Context, q models.Question) (answer *models.Answer) {
	start := time.Now()
	requestID := uuid.NewString()
	log := o.logger.WithFields(map[string]interface{}{"requestId": requestID})

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	ctx, cancel := context.WithTimeout(ctx, o.config.Deadline)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "assistant.answer",
		attribute.String("request.id", requestID),
		attribute.String("question.role", q.Role.String()),
		attribute.String("question.level", q.Level.String()),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error("answer pipeline panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			span.SetStatus(codes.Error, "panic")
			fallback := o.synthesizer.Synthesize(synthesizeresponse.Input{})
			fallback.RequestID = requestID
			answer = &fallback
		}
	}()

	analysis := o.classifier.Analyze(q.Text)
	span.SetAttributes(attribute.StringSlice("question.intents", analysis.Intents.Strings()))
	log.Info("question classified", map[string]interface{}{
		"intents":  analysis.Intents.Strings(),
		"keywords": analysis.DomainKeywords,
		"tables":   analysis.Tables,
	})

	ev := o.gather(ctx, q, analysis, log)

	prompt := o.selector.Select(analysis.Intents, q.Role, q.Level)
	outcome := o.llm.Complete(ctx, prompt, o.buildContext(q, ev))

	result := o.synthesizer.Synthesize(synthesizeresponse.Input{
		Intents:     analysis.Intents,
		DB:          ev.db.Records,
		Web:         ev.web,
		Completion:  outcome.Completion,
		Transitions: outcome.Transitions,
	})
	result.RequestID = requestID

	o.record(ctx, &result, start)
	span.SetAttributes(
		attribute.String("answer.strategy", result.ModelMeta.Strategy),
		attribute.String("answer.provenance", string(result.Provenance)),
	)

	log.Info("answer produced", map[string]interface{}{
		"strategy":       result.ModelMeta.Strategy,
		"provenance":     string(result.Provenance),
		"webCount":       len(result.Sources.Web),
		"dbCount":        len(result.Sources.DB),
		"gatherTimedOut": ev.timedOut,
		"durationMs":     time.Since(start).Milliseconds(),
	})
	return &result
}

// gather runs search and retrieval concurrently and joins them, giving up on
// whichever is still running when the deadline expires.
func (o *Orchestrator) gather(ctx context.Context, q models.Question, analysis classifyquery.Analysis, log logger.Logger) evidence {
	type webOutcome struct {
		results []models.SearchResult
		err     error
	}

	var ev evidence
	var webCh chan webOutcome
	var dbCh chan retrievecontext.Result
	pending := 0

	if o.search != nil && analysis.Intents.HasAny(models.IntentWebSearch, models.IntentTechnical, models.IntentDiagnostic) {
		queries := o.expander.Queries(q.Text, analysis.DomainKeywords, 0)
		webCh = make(chan webOutcome, 1)
		pending++
		go func() {
			results, err := o.search.Search(ctx, queries, websearch.Options{})
			webCh <- webOutcome{results: results, err: err}
		}()
	}

	if o.retriever.Wants(analysis.Intents, analysis.DomainKeywords) {
		dbCh = make(chan retrievecontext.Result, 1)
		pending++
		go func() {
			dbCh <- o.retriever.Retrieve(ctx, analysis.Intents, analysis.Tables, analysis.DomainKeywords...)
		}()
	}

	for pending > 0 {
		select {
		case w := <-webCh:
			pending--
			ev.web = w.results
			if w.err != nil {
				log.Warn("web search degraded", apperrors.LogFields(w.err))
			}
		case r := <-dbCh:
			pending--
			ev.db = r
		case <-ctx.Done():
			ev.timedOut = true
			log.Warn("deadline reached while gathering evidence", map[string]interface{}{
				"pending": pending,
			})
			return ev
		}
	}
	return ev
}

// buildContext renders the user prompt handed to the model.
func (o *Orchestrator) buildContext(q models.Question, ev evidence) string {
	var b strings.Builder
	b.WriteString("Question : ")
	b.WriteString(strings.TrimSpace(q.Text))

	if facts := o.synthesizer.Facts(ev.db.Records); len(facts) > 0 {
		b.WriteString("\n\nDonnées du garage :")
		for _, line := range facts {
			b.WriteString("\n- ")
			b.WriteString(line)
		}
	}

	if len(ev.web) > 0 {
		b.WriteString("\n\nRésultats web :")
		for _, hit := range ev.web {
			b.WriteString("\n- ")
			b.WriteString(synthesizeresponse.WebLine(hit))
		}
	}
	return b.String()
}

func (o *Orchestrator) record(ctx context.Context, a *models.Answer, start time.Time) {
	duration := time.Since(start)
	strategy := a.ModelMeta.Strategy
	provenance := string(a.Provenance)

	metrics.AnswersTotal.WithLabelValues(strategy, provenance).Inc()
	metrics.AnswerDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	o.obs.RecordAnswer(ctx, strategy, provenance, duration, len(a.Sources.Web)+len(a.Sources.DB))
}
