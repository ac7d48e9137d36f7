package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lostfound"
)

type lostFoundRepository struct {
	db *table[lostfound.Item]
}

var _ lostfound.Repository = (*lostFoundRepository)(nil) // interface compliance check

func NewLostFoundRepository(db *DB) lostfound.Repository {
	return &lostFoundRepository{db: db.item}
}

var itemComparators = comparators[lostfound.Item]{
	"title":      func(a, b lostfound.Item) int { return cmpString(a.Title, b.Title) },
	"kind":       func(a, b lostfound.Item) int { return cmpString(a.Kind, b.Kind) },
	"status":     func(a, b lostfound.Item) int { return cmpString(a.Status, b.Status) },
	"location":   func(a, b lostfound.Item) int { return cmpString(a.Location, b.Location) },
	"created_at": func(a, b lostfound.Item) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b lostfound.Item) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *lostFoundRepository) CreateItem(_ context.Context, item lostfound.Item, _ ...core.DBExecutor) (lostfound.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	item.ID = newID()
	stored := item
	repo.db.rows[item.ID] = &stored
	return item, nil
}

func (repo *lostFoundRepository) QueryItems(_ context.Context, filter *lostfound.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lostfound.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]lostfound.Item, 0, len(repo.db.rows))
	for _, item := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !matchesAny(filter.Search, item.Title, item.Description, item.Location) {
				continue
			}
			if filter.Kind != "" && item.Kind != filter.Kind {
				continue
			}
			if filter.Status != "" && item.Status != filter.Status {
				continue
			}
			if filter.ReporterID != "" && item.ReporterID != filter.ReporterID {
				continue
			}
		}
		items = append(items, *item)
	}

	sortRecords(items, ordering, itemComparators, func(a, b lostfound.Item) bool { return a.CreatedAt.After(b.CreatedAt) })
	return items, nil
}

func (repo *lostFoundRepository) GetItem(_ context.Context, id string, _ ...core.DBExecutor) (lostfound.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if item, ok := repo.db.rows[id]; ok {
		return *item, nil
	}
	return lostfound.Item{}, lostfound.ErrNotFound
}

func (repo *lostFoundRepository) LockItem(ctx context.Context, id string, _ core.DBExecutor) (lostfound.Item, error) {
	return repo.GetItem(ctx, id)
}

func (repo *lostFoundRepository) UpdateItem(_ context.Context, item lostfound.Item, _ ...core.DBExecutor) (lostfound.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[item.ID]; !ok {
		return lostfound.Item{}, lostfound.ErrNotFound
	}
	stored := item
	repo.db.rows[item.ID] = &stored
	return item, nil
}

func (repo *lostFoundRepository) DeleteItem(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return lostfound.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
