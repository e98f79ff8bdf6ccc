// internal/assistant/retrieve-context/models.go
package retrievecontext

import (
	"context"
	"errors"
	"fmt"

	"garage-assistant/internal/assistant/retrieve-context/queries"
	apperrors "garage-assistant/internal/common/errors"
	"garage-assistant/internal/models"
)

var (
	ErrRetrievalFailed = errors.New("RETRIEVAL_FAILED")
)

type Predicate = queries.Predicate

// RecordStore is the read-only view of the garage database.
type RecordStore interface {
	Count(ctx context.Context, table string, pred *Predicate) (int64, error)
	List(ctx context.Context, table string, limit int) ([]map[string]interface{}, error)
	Aggregate(ctx context.Context, name models.AggregateName) (interface{}, error)
}

// IndexSearcher looks up free-text documents related to domain keywords.
type IndexSearcher interface {
	Search(ctx context.Context, keywords []string, limit int) ([]models.ContextRecord, error)
	Name() string
}

// RetrievalFailure is one table (or index) that could not be read. It never
// aborts the other lookups.
type RetrievalFailure struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (f *RetrievalFailure) Error() string {
	return fmt.Sprintf("retrieval failed for %s: %s", f.Table, f.Reason)
}

func (f *RetrievalFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{ErrRetrievalFailed}
	}
	return []error{ErrRetrievalFailed, f.Err}
}

func (f *RetrievalFailure) Standard() *apperrors.StandardError {
	if errors.Is(f.Err, context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(f.Table)
	}
	cause := f.Err
	if cause == nil {
		cause = errors.New(f.Reason)
	}
	return apperrors.NewRetrievalFailedError(f.Table, cause)
}

// Result holds every record read plus the failures; a non-empty Failures is a
// partial result.
type Result struct {
	Records  []models.ContextRecord `json:"records"`
	Failures []RetrievalFailure     `json:"failures,omitempty"`
}

func (r Result) Partial() bool { return len(r.Failures) > 0 }

// FailedTables lists the tables that reported a failure, in order, without repeats.
func (r Result) FailedTables() []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range r.Failures {
		if !seen[f.Table] {
			seen[f.Table] = true
			out = append(out, f.Table)
		}
	}
	return out
}
