// internal/assistant/retrieve-context/handler.go
package retrievecontext

import (
	"context"
	"errors"
	"sync"
	"time"

	"garage-assistant/internal/assistant/retrieve-context/queries"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/metrics"
	"garage-assistant/internal/models"
)

const (
	ComponentName = "retrieve-context"

	maxIndexDocuments = 5
)

type Retriever struct {
	config *Config
	store  RecordStore
	index  IndexSearcher
	logger logger.Logger
}

// NewRetriever builds a Retriever. index may be nil.
func NewRetriever(config *Config, store RecordStore, index IndexSearcher, log logger.Logger) *Retriever {
	return &Retriever{
		config: config,
		store:  store,
		index:  index,
		logger: logger.ForComponent(log, ComponentName),
	}
}

// Wants reports whether Retrieve would do any work for these intents.
func (r *Retriever) Wants(intents models.Intents, keywords []string) bool {
	return intents.Has(models.IntentDatabaseLookup) || r.wantsIndex(intents, keywords)
}

func (r *Retriever) wantsIndex(intents models.Intents, keywords []string) bool {
	return r.index != nil && len(keywords) > 0 &&
		intents.HasAny(models.IntentTechnical, models.IntentDiagnostic)
}

type slot struct {
	records  []models.ContextRecord
	failures []RetrievalFailure
}

// Retrieve reads counts, rows and bound aggregates for each table concurrently.
// Table lookups only run for database-lookup questions; the document index is
// searched with keywords for technical or diagnostic ones. Failures are
// isolated per table and reported in the result.
func (r *Retriever) Retrieve(ctx context.Context, intents models.Intents, tables []string, keywords ...string) Result {
	var targets []string
	if intents.Has(models.IntentDatabaseLookup) && r.store != nil {
		targets = dedupe(tables)
	}
	withIndex := r.wantsIndex(intents, keywords)
	if len(targets) == 0 && !withIndex {
		return Result{}
	}

	start := time.Now()
	slots := make([]slot, len(targets)+1)

	var wg sync.WaitGroup
	for i, table := range targets {
		wg.Add(1)
		go func(i int, table string) {
			defer wg.Done()
			slots[i] = r.retrieveTable(ctx, table)
		}(i, table)
	}
	if withIndex {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots[len(targets)] = r.searchIndex(ctx, keywords)
		}()
	}
	wg.Wait()

	var res Result
	for _, s := range slots {
		res.Records = append(res.Records, s.records...)
		res.Failures = append(res.Failures, s.failures...)
	}
	for _, f := range res.Failures {
		metrics.RetrievalFailures.WithLabelValues(f.Table).Inc()
	}
	metrics.StageDuration.WithLabelValues(ComponentName).Observe(time.Since(start).Seconds())

	fields := map[string]interface{}{
		"tables":      targets,
		"recordCount": len(res.Records),
	}
	if res.Partial() {
		fields["failedTables"] = res.FailedTables()
		r.logger.Warn("context retrieved with failures", fields)
	} else {
		r.logger.Info("context retrieved", fields)
	}
	return res
}

func (r *Retriever) retrieveTable(ctx context.Context, table string) slot {
	var s slot
	if !models.IsKnownTable(table) {
		s.failures = append(s.failures, RetrievalFailure{
			Table:  table,
			Reason: "unknown table",
			Err:    queries.ErrUnknownTable,
		})
		return s
	}

	fail := func(op string, err error) {
		s.failures = append(s.failures, RetrievalFailure{Table: table, Reason: op + ": " + reason(err), Err: err})
	}

	qctx, cancel := r.queryContext(ctx)
	n, err := r.store.Count(qctx, table, nil)
	cancel()
	if err != nil {
		fail("count", err)
	} else {
		s.records = append(s.records, models.ContextRecord{
			Table: table,
			Kind:  models.RecordKindCount,
			Name:  "count",
			Value: n,
		})
	}

	for _, name := range queries.BoundTables[table] {
		qctx, cancel := r.queryContext(ctx)
		v, err := r.store.Aggregate(qctx, name)
		cancel()
		if err != nil {
			fail(string(name), err)
			continue
		}
		s.records = append(s.records, models.ContextRecord{
			Table: table,
			Kind:  models.RecordKindAggregate,
			Name:  string(name),
			Value: v,
		})
	}

	qctx, cancel = r.queryContext(ctx)
	rows, err := r.store.List(qctx, table, r.config.MaxRows)
	cancel()
	if err != nil {
		fail("list", err)
		return s
	}
	for _, row := range rows {
		s.records = append(s.records, models.ContextRecord{
			Table: table,
			Kind:  models.RecordKindRow,
			Row:   row,
		})
	}
	return s
}

func (r *Retriever) searchIndex(ctx context.Context, keywords []string) slot {
	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	docs, err := r.index.Search(qctx, keywords, maxIndexDocuments)
	if err != nil {
		return slot{failures: []RetrievalFailure{{Table: r.index.Name(), Reason: reason(err), Err: err}}}
	}
	return slot{records: docs}
}

func (r *Retriever) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, r.config.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}

func dedupe(tables []string) []string {
	out := make([]string, 0, len(tables))
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
