package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/complaint"
)

type complaintRepository struct {
	db      *table[complaint.Complaint]
	upvotes *table[time.Time]
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *DB) complaint.Repository {
	return &complaintRepository{db: db.complaint, upvotes: db.upvote}
}

var complaintComparators = comparators[complaint.Complaint]{
	"hostel":     func(a, b complaint.Complaint) int { return cmpString(a.Hostel, b.Hostel) },
	"room":       func(a, b complaint.Complaint) int { return cmpString(a.Room, b.Room) },
	"category":   func(a, b complaint.Complaint) int { return cmpString(a.Category, b.Category) },
	"status":     func(a, b complaint.Complaint) int { return cmpString(a.Status, b.Status) },
	"upvotes":    func(a, b complaint.Complaint) int { return cmpInt(a.Upvotes, b.Upvotes) },
	"created_at": func(a, b complaint.Complaint) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b complaint.Complaint) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func cloneComplaint(c complaint.Complaint) complaint.Complaint {
	c.ResolvedAt = copyTime(c.ResolvedAt)
	return c
}

func (repo *complaintRepository) CreateComplaint(_ context.Context, c complaint.Complaint, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c = cloneComplaint(c)
	c.ID = newID()
	repo.db.rows[c.ID] = &c
	return cloneComplaint(c), nil
}

func (repo *complaintRepository) QueryComplaints(_ context.Context, filter *complaint.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]complaint.Complaint, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]complaint.Complaint, 0, len(repo.db.rows))
	for _, c := range repo.db.rows {
		if filter != nil {
			if filter.Hostel != "" && c.Hostel != filter.Hostel {
				continue
			}
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
			if filter.Category != "" && c.Category != filter.Category {
				continue
			}
			if filter.StudentID != "" && c.StudentID != filter.StudentID {
				continue
			}
		}
		res = append(res, cloneComplaint(*c))
	}

	sortRecords(res, ordering, complaintComparators, func(a, b complaint.Complaint) bool {
		if a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return res, nil
}

func (repo *complaintRepository) GetComplaint(_ context.Context, id string, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok {
		return cloneComplaint(*c), nil
	}
	return complaint.Complaint{}, complaint.ErrNotFound
}

func (repo *complaintRepository) LockComplaint(ctx context.Context, id string, _ core.DBExecutor) (complaint.Complaint, error) {
	return repo.GetComplaint(ctx, id)
}

func (repo *complaintRepository) UpdateComplaint(_ context.Context, c complaint.Complaint, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	c = cloneComplaint(c)
	repo.db.rows[c.ID] = &c
	return cloneComplaint(c), nil
}

func (repo *complaintRepository) AddUpvote(_ context.Context, complaintID, userID string, _ core.DBExecutor) error {
	repo.upvotes.Lock()
	defer repo.upvotes.Unlock()

	key := pairKey(complaintID, userID)
	if _, ok := repo.upvotes.rows[key]; ok {
		return complaint.ErrAlreadyUpvoted
	}
	now := time.Now().UTC()
	repo.upvotes.rows[key] = &now
	return nil
}

func (repo *complaintRepository) DeleteComplaint(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return complaint.ErrNotFound
	}
	delete(repo.db.rows, id)

	repo.upvotes.Lock()
	defer repo.upvotes.Unlock()
	for key := range repo.upvotes.rows {
		if strings.HasPrefix(key, id+"/") {
			delete(repo.upvotes.rows, key)
		}
	}
	return nil
}
