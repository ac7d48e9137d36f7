package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
)

type formRepository struct {
	db        *table[poll.Form]
	responses *table[poll.Response]
}

var _ poll.FormRepository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *DB) poll.FormRepository {
	return &formRepository{db: db.form, responses: db.response}
}

var formComparators = comparators[poll.Form]{
	"title":      func(a, b poll.Form) int { return cmpString(a.Title, b.Title) },
	"closes_at":  func(a, b poll.Form) int { return cmpTimePtr(a.ClosesAt, b.ClosesAt) },
	"created_at": func(a, b poll.Form) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func cloneForm(f poll.Form) poll.Form {
	fields := make([]poll.Field, len(f.Fields))
	for i, fld := range f.Fields {
		fld.Choices = copyStrings(fld.Choices)
		fields[i] = fld
	}
	f.Fields = fields
	f.ClosesAt = copyTime(f.ClosesAt)
	return f
}

func cloneResponse(r poll.Response) poll.Response {
	answers := make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		answers[k] = v
	}
	r.Answers = answers
	return r
}

func (repo *formRepository) CreateForm(_ context.Context, f poll.Form, _ ...core.DBExecutor) (poll.Form, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	f = cloneForm(f)
	f.ID = newID()
	repo.db.rows[f.ID] = &f
	return cloneForm(f), nil
}

func (repo *formRepository) QueryForms(_ context.Context, filter *poll.FormQueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]poll.Form, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now()
	forms := make([]poll.Form, 0, len(repo.db.rows))
	for _, f := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !matchesAny(filter.Search, f.Title, f.Description) {
				continue
			}
			if filter.Open != nil && f.IsClosed(now) == *filter.Open {
				continue
			}
			if filter.CreatorID != "" && f.CreatorID != filter.CreatorID {
				continue
			}
		}
		forms = append(forms, cloneForm(*f))
	}

	sortRecords(forms, ordering, formComparators, func(a, b poll.Form) bool { return a.CreatedAt.After(b.CreatedAt) })
	return forms, nil
}

func (repo *formRepository) GetForm(_ context.Context, id string, _ ...core.DBExecutor) (poll.Form, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.rows[id]; ok {
		return cloneForm(*f), nil
	}
	return poll.Form{}, poll.ErrFormNotFound
}

func (repo *formRepository) CreateResponse(_ context.Context, r poll.Response, _ ...core.DBExecutor) (poll.Response, error) {
	repo.responses.Lock()
	defer repo.responses.Unlock()

	for _, other := range repo.responses.rows {
		if other.FormID == r.FormID && other.UserID == r.UserID {
			return poll.Response{}, poll.ErrAlreadyResponded
		}
	}
	r = cloneResponse(r)
	r.ID = newID()
	repo.responses.rows[r.ID] = &r
	return cloneResponse(r), nil
}

func (repo *formRepository) QueryResponses(_ context.Context, formID string, _ ...core.DBExecutor) ([]poll.Response, error) {
	repo.responses.RLock()
	defer repo.responses.RUnlock()

	res := make([]poll.Response, 0)
	for _, r := range repo.responses.rows {
		if r.FormID == formID {
			res = append(res, cloneResponse(*r))
		}
	}
	sortRecords(res, nil, nil, func(a, b poll.Response) bool { return a.SubmittedAt.Before(b.SubmittedAt) })
	return res, nil
}

func (repo *formRepository) DeleteForm(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return poll.ErrFormNotFound
	}
	delete(repo.db.rows, id)

	repo.responses.Lock()
	defer repo.responses.Unlock()
	for rid, r := range repo.responses.rows {
		if r.FormID == id {
			delete(repo.responses.rows, rid)
		}
	}
	return nil
}
