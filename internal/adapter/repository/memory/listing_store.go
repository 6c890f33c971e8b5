package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

type journalKey struct{}

// journal remembers the pre-transaction value of every key written inside a transaction.
// A nil entry means the key was absent.
type journal struct {
	mu    sync.Mutex
	saved map[domain.ListingKey]*domain.Listing
}

func (j *journal) remember(key domain.ListingKey, prev *domain.Listing) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, seen := j.saved[key]; !seen {
		j.saved[key] = prev
	}
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// ListingStore keeps listings in a map guarded by a RWMutex. Readers always see a whole
// listing, either before or after a write.
type ListingStore struct {
	mu    sync.RWMutex
	items map[domain.ListingKey]*domain.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{items: make(map[domain.ListingKey]*domain.Listing)}
}

func (s *ListingStore) Get(_ context.Context, key domain.ListingKey) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *ListingStore) Put(ctx context.Context, listing *domain.Listing) error {
	if err := listing.Validate(); err != nil {
		return err
	}
	key := listing.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if j := journalFrom(ctx); j != nil {
		j.remember(key, s.items[key])
	}
	s.items[key] = listing.Clone()
	return nil
}

func (s *ListingStore) Remove(ctx context.Context, key domain.ListingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[key]
	if !ok {
		return nil
	}
	if j := journalFrom(ctx); j != nil {
		j.remember(key, prev)
	}
	delete(s.items, key)
	return nil
}

// ListByCollection returns the collection's listings ordered by asset id.
func (s *ListingStore) ListByCollection(_ context.Context, collection string) ([]*domain.Listing, error) {
	s.mu.RLock()
	out := make([]*domain.Listing, 0)
	for key, l := range s.items {
		if key.Collection == collection {
			out = append(out, l.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

// WithinTx restores every key touched through the transaction context when fn fails.
// A nested call joins the outer transaction.
func (s *ListingStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}
	j := &journal{saved: make(map[domain.ListingKey]*domain.Listing)}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.rollback(j)
		return err
	}
	return nil
}

func (s *ListingStore) rollback(j *journal) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, prev := range j.saved {
		if prev == nil {
			delete(s.items, key)
			continue
		}
		s.items[key] = prev
	}
}

// Len reports how many listings are active.
func (s *ListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
