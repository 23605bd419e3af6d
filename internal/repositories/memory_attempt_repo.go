package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/folio/internal/models"
)

// MemoryAttemptRepository keeps attempt rows in process. It backs STORE_BACKEND=memory
// and the service tests; state is lost on restart.
type MemoryAttemptRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records []models.AttemptRecord
}

// NewMemoryAttemptRepository creates an empty in-memory store
func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{}
}

// Insert stores a copy of record and assigns its ID
func (r *MemoryAttemptRepository) Insert(ctx context.Context, record *models.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	if record.Attempts <= 0 {
		record.Attempts = 1
	}
	r.records = append(r.records, *record)
	return nil
}

// CountSince counts rows for identifier and endpoint created at or after since
func (r *MemoryAttemptRepository) CountSince(ctx context.Context, identifier, endpoint string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if rec.Identifier == identifier && rec.Endpoint == endpoint && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// LatestSince returns the newest matching CreatedAt at or after since, or nil when there is none
func (r *MemoryAttemptRepository) LatestSince(ctx context.Context, identifier, endpoint string, since time.Time) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, rec := range r.records {
		if rec.Identifier != identifier || rec.Endpoint != endpoint || rec.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || rec.CreatedAt.After(*latest) {
			t := rec.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

// DeleteByIdentifier removes every row for identifier and endpoint, regardless of age
func (r *MemoryAttemptRepository) DeleteByIdentifier(ctx context.Context, identifier, endpoint string) (int64, error) {
	return r.deleteWhere(func(rec models.AttemptRecord) bool {
		return rec.Identifier == identifier && rec.Endpoint == endpoint
	}), nil
}

// ListSince returns copies of the endpoint's rows created at or after since
func (r *MemoryAttemptRepository) ListSince(ctx context.Context, endpoint string, since time.Time) ([]*models.AttemptRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.AttemptRecord, 0)
	for _, rec := range r.records {
		if rec.Endpoint == endpoint && !rec.CreatedAt.Before(since) {
			rec := rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

// DeleteCreatedBefore removes the endpoint's rows older than before
func (r *MemoryAttemptRepository) DeleteCreatedBefore(ctx context.Context, endpoint string, before time.Time) (int64, error) {
	return r.deleteWhere(func(rec models.AttemptRecord) bool {
		return rec.Endpoint == endpoint && rec.CreatedAt.Before(before)
	}), nil
}

// Len reports the number of stored rows, expired or not
func (r *MemoryAttemptRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *MemoryAttemptRepository) deleteWhere(match func(models.AttemptRecord) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, rec := range r.records {
		if match(rec) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted
}
