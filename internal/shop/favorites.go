package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// FavoritesStore holds the set of liked product ids. Duplicates are impossible
// by construction; all operations are deterministic and error-free apart from
// persistence.
type FavoritesStore struct {
	mu    sync.Mutex
	ids   []string
	repo  SnapshotRepo
	key   string
	index map[string]struct{}
}

type favoritesSnapshot struct {
	Favorites []string `json:"favorites"`
}

// NewFavoritesStore loads the persisted favorites for the given session.
func NewFavoritesStore(ctx context.Context, repo SnapshotRepo, sessionID string) (*FavoritesStore, error) {
	f := &FavoritesStore{
		repo:  repo,
		key:   favoritesStorageKey + "/" + sessionID,
		index: make(map[string]struct{}),
	}
	blob, ok, err := repo.Load(ctx, f.key)
	if err != nil {
		return nil, err
	}
	if ok {
		var snap favoritesSnapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("decode favorites snapshot: %w", err)
		}
		for _, id := range snap.Favorites {
			if _, dup := f.index[id]; dup {
				continue
			}
			f.ids = append(f.ids, id)
			f.index[id] = struct{}{}
		}
	}
	return f, nil
}

// Add marks the id as a favorite. Idempotent.
func (f *FavoritesStore) Add(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.index[id]; ok {
		return nil
	}
	f.ids = append(f.ids, id)
	f.index[id] = struct{}{}
	return f.persist(ctx)
}

// Remove drops the id from the favorites; unknown ids are a no-op.
func (f *FavoritesStore) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.index[id]; !ok {
		return nil
	}
	delete(f.index, id)
	for i := range f.ids {
		if f.ids[i] == id {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			break
		}
	}
	return f.persist(ctx)
}

// Toggle flips membership and reports whether the id is now a favorite.
func (f *FavoritesStore) Toggle(ctx context.Context, id string) (bool, error) {
	if f.IsFavorite(id) {
		return false, f.Remove(ctx, id)
	}
	return true, f.Add(ctx, id)
}

// IsFavorite reports membership.
func (f *FavoritesStore) IsFavorite(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.index[id]
	return ok
}

// List returns the favorite ids in insertion order.
func (f *FavoritesStore) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.ids))
	copy(ids, f.ids)
	return ids
}

// Clear removes every favorite.
func (f *FavoritesStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = nil
	f.index = make(map[string]struct{})
	return f.persist(ctx)
}

func (f *FavoritesStore) persist(ctx context.Context) error {
	snap := favoritesSnapshot{Favorites: f.ids}
	if snap.Favorites == nil {
		snap.Favorites = []string{}
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode favorites snapshot: %w", err)
	}
	return f.repo.Save(ctx, f.key, blob)
}
