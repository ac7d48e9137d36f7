package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
)

type announcementRepository struct {
	db *table[announcement.Announcement]
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db.announcement}
}

var announcementComparators = comparators[announcement.Announcement]{
	"title":      func(a, b announcement.Announcement) int { return cmpString(a.Title, b.Title) },
	"created_at": func(a, b announcement.Announcement) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b announcement.Announcement) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"expires_at": func(a, b announcement.Announcement) int { return cmpTimePtr(a.ExpiresAt, b.ExpiresAt) },
}

func cloneAnnouncement(a announcement.Announcement) announcement.Announcement {
	a.ExpiresAt = copyTime(a.ExpiresAt)
	return a
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a = cloneAnnouncement(a)
	a.ID = newID()
	repo.db.rows[a.ID] = &a
	return cloneAnnouncement(a), nil
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now()
	res := make([]announcement.Announcement, 0, len(repo.db.rows))
	for _, a := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !matchesAny(filter.Search, a.Title, a.Content) {
				continue
			}
			if filter.Audience != "" && a.Audience != filter.Audience {
				continue
			}
			if filter.Department != "" && a.Department != filter.Department {
				continue
			}
			if filter.Pinned != nil && a.Pinned != *filter.Pinned {
				continue
			}
			if filter.AuthorID != "" && a.AuthorID != filter.AuthorID {
				continue
			}
			if !filter.IncludeExpired && a.IsExpired(now) {
				continue
			}
		} else if a.IsExpired(now) {
			continue
		}
		res = append(res, cloneAnnouncement(*a))
	}

	sortRecords(res, ordering, announcementComparators, func(a, b announcement.Announcement) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	// pinned first, keeping the order within each group
	pinned := make([]announcement.Announcement, 0, len(res))
	rest := make([]announcement.Announcement, 0, len(res))
	for _, a := range res {
		if a.Pinned {
			pinned = append(pinned, a)
		} else {
			rest = append(rest, a)
		}
	}
	return append(pinned, rest...), nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.rows[id]; ok {
		return cloneAnnouncement(*a), nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement, _ ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[a.ID]; !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	a = cloneAnnouncement(a)
	repo.db.rows[a.ID] = &a
	return cloneAnnouncement(a), nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
