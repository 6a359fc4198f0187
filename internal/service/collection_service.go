package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/domain"
	"boulder-editor/internal/interchange"
	"boulder-editor/internal/metrics"
	"boulder-editor/internal/repository"
)

const DefaultRecentWindow = 7 * 24 * time.Hour

// CollectionService is the store of saved boulders. The whole collection is
// persisted as one JSON blob after every mutation; a failed write is
// reported but never rolls back the in-memory change.
type CollectionService struct {
	mu       sync.RWMutex
	store    repository.BlobStore
	key      string
	now      func() time.Time
	boulders map[string]*domain.Boulder
	order    []string
}

type CollectionOption func(*CollectionService)

func WithCollectionClock(now func() time.Time) CollectionOption {
	return func(s *CollectionService) { s.now = now }
}

func NewCollectionService(store repository.BlobStore, key string, opts ...CollectionOption) *CollectionService {
	s := &CollectionService{
		store:    store,
		key:      key,
		now:      time.Now,
		boulders: make(map[string]*domain.Boulder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. An absent
// blob yields an empty collection. A blob that cannot be read or decoded
// also yields an empty collection, and the returned error wraps
// ErrCorruptCollection so the caller can warn the user.
func (s *CollectionService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boulders = make(map[string]*domain.Boulder)
	s.order = nil
	log := logrus.WithField("key", s.key)

	data, err := s.store.Load(ctx, s.key)
	if err != nil {
		metrics.StorageFailures.WithLabelValues("load").Inc()
		log.WithError(err).Warn("Could not read saved boulders; starting with an empty collection")
		return fmt.Errorf("%w: %v", domain.ErrCorruptCollection, err)
	}
	if data == nil {
		log.Info("No saved boulders found")
		metrics.CollectionSize.Set(0)
		return nil
	}

	var stored []*domain.Boulder
	if err := json.Unmarshal(data, &stored); err != nil {
		metrics.StorageFailures.WithLabelValues("load").Inc()
		log.WithError(err).Warn("Saved boulders are corrupt; starting with an empty collection")
		return fmt.Errorf("%w: %v", domain.ErrCorruptCollection, err)
	}

	dropped := 0
	for _, b := range stored {
		if b == nil || strings.TrimSpace(b.ID) == "" {
			dropped++
			continue
		}
		normalize(b)
		s.put(b)
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("Ignored saved entries without an id")
	}
	metrics.CollectionSize.Set(float64(len(s.order)))
	log.WithField("count", len(s.order)).Info("Loaded saved boulders")
	return nil
}

// SaveOrReplace stores a copy of b, overwriting any boulder with the same id.
// It reports whether an existing boulder was replaced. A non-nil error wraps
// ErrStorageWrite and means only persistence failed.
func (s *CollectionService) SaveOrReplace(ctx context.Context, b *domain.Boulder) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.boulders[b.ID]
	s.put(b.Clone())
	if replaced {
		metrics.BoulderOps.WithLabelValues("update").Inc()
	} else {
		metrics.BoulderOps.WithLabelValues("save").Inc()
	}

	logrus.WithFields(logrus.Fields{
		"boulder_id": b.ID,
		"name":       b.Name,
		"replaced":   replaced,
		"moves":      len(b.Moves),
	}).Info("Boulder stored")
	return replaced, s.persist(ctx)
}

// Delete removes the boulder with id. Deleting an absent id is a no-op that
// reports false and touches no storage.
func (s *CollectionService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boulders[id]; !ok {
		return false, nil
	}
	delete(s.boulders, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	metrics.BoulderOps.WithLabelValues("delete").Inc()
	logrus.WithField("boulder_id", id).Info("Boulder deleted")
	return true, s.persist(ctx)
}

// Get returns a copy of the stored boulder.
func (s *CollectionService) Get(id string) (*domain.Boulder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boulders[id]
	if !ok {
		return nil, domain.ErrBoulderNotFound
	}
	return b.Clone(), nil
}

func (s *CollectionService) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.boulders[id]
	return ok
}

func (s *CollectionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns copies sorted by name, case-insensitively, ties broken by id.
func (s *CollectionService) List() []*domain.Boulder {
	out := s.All()
	sortByName(out)
	return out
}

func (s *CollectionService) Summaries() []domain.BoulderSummary {
	list := s.List()
	out := make([]domain.BoulderSummary, len(list))
	for i, b := range list {
		out[i] = b.Summary()
	}
	return out
}

// All returns copies of every boulder in storage order.
func (s *CollectionService) All() []*domain.Boulder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Boulder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.boulders[id].Clone())
	}
	return out
}

func (s *CollectionService) IDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.boulders))
	for id := range s.boulders {
		ids[id] = struct{}{}
	}
	return ids
}

// Recent returns boulders created within window, newest first. A window of
// zero or less means DefaultRecentWindow.
func (s *CollectionService) Recent(window time.Duration) []*domain.Boulder {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	cutoff := s.now().Add(-window)

	var out []*domain.Boulder
	for _, b := range s.All() {
		if !b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if out == nil {
		out = []*domain.Boulder{}
	}
	return out
}

// MergeImport adds every acceptable record and persists once. Existing
// boulders are never overwritten.
func (s *CollectionService) MergeImport(ctx context.Context, records []json.RawMessage) (domain.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.boulders))
	for id := range s.boulders {
		existing[id] = struct{}{}
	}

	res := interchange.MergeImport(existing, records, s.now())
	result := domain.ImportResult{
		ImportedCount: res.ImportedCount,
		SkippedCount:  res.SkippedCount,
		ImportedIDs:   make([]string, 0, len(res.Accepted)),
	}
	for _, b := range res.Accepted {
		s.put(b)
		result.ImportedIDs = append(result.ImportedIDs, b.ID)
	}
	metrics.ImportRecords.WithLabelValues("imported").Add(float64(res.ImportedCount))
	metrics.ImportRecords.WithLabelValues("skipped").Add(float64(res.SkippedCount))

	logrus.WithFields(logrus.Fields{
		"imported": res.ImportedCount,
		"skipped":  res.SkippedCount,
	}).Info("Import merged")

	if res.ImportedCount == 0 {
		return result, nil
	}
	return result, s.persist(ctx)
}

// put stores b without copying. The caller holds the write lock.
func (s *CollectionService) put(b *domain.Boulder) {
	if _, ok := s.boulders[b.ID]; !ok {
		s.order = append(s.order, b.ID)
	}
	s.boulders[b.ID] = b
}

// persist writes the whole collection. The caller holds the write lock.
func (s *CollectionService) persist(ctx context.Context) error {
	metrics.CollectionSize.Set(float64(len(s.order)))

	stored := make([]*domain.Boulder, 0, len(s.order))
	for _, id := range s.order {
		stored = append(stored, s.boulders[id])
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	if err := s.store.Save(ctx, s.key, data); err != nil {
		metrics.StorageFailures.WithLabelValues("save").Inc()
		logrus.WithFields(logrus.Fields{
			"key":   s.key,
			"count": len(stored),
		}).WithError(err).Error("Failed to persist boulders; changes kept in memory")
		return fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
	}
	return nil
}

// normalize repairs a stored boulder so the in-memory invariants hold.
func normalize(b *domain.Boulder) {
	if b.Moves == nil {
		b.Moves = []domain.Move{}
	}
	if b.CreatedAt.IsZero() {
		if created, ok := domain.CreatedAtFromID(b.ID); ok {
			b.CreatedAt = created
		}
	}
	starts, finishes := b.StartHolds, b.FinishHolds
	b.StartHolds, b.FinishHolds = []domain.HoldID{}, []domain.HoldID{}
	b.Renumber()
	for _, h := range starts {
		b.MarkStart(h)
	}
	for _, h := range finishes {
		b.MarkFinish(h)
	}
}

func sortByName(list []*domain.Boulder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if a != b {
			return a < b
		}
		return list[i].ID < list[j].ID
	})
}
