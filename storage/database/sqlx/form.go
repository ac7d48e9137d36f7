package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
)

const formColumns = "id, title, description, fields, creator_id, closes_at, created_at, updated_at"

type (
	formRow struct {
		ID          string         `db:"id"`
		Title       string         `db:"title"`
		Description null.String    `db:"description"`
		Fields      types.JSONText `db:"fields"`
		CreatorID   string         `db:"creator_id"`
		ClosesAt    null.Time      `db:"closes_at"`
		CreatedAt   time.Time      `db:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at"`
	}

	responseRow struct {
		ID          string         `db:"id"`
		FormID      string         `db:"form_id"`
		UserID      string         `db:"user_id"`
		Answers     types.JSONText `db:"answers"`
		SubmittedAt time.Time      `db:"submitted_at"`
	}
)

func newFormRow(f poll.Form) (formRow, error) {
	fields, err := json.Marshal(f.Fields)
	if err != nil {
		return formRow{}, errors.Wrap(err, "encoding form fields")
	}
	return formRow{
		ID:          f.ID,
		Title:       f.Title,
		Description: null.NewString(f.Description, f.Description != ""),
		Fields:      fields,
		CreatorID:   f.CreatorID,
		ClosesAt:    null.TimeFromPtr(f.ClosesAt),
		CreatedAt:   f.CreatedAt.UTC(),
		UpdatedAt:   f.UpdatedAt.UTC(),
	}, nil
}

func (row formRow) form() (poll.Form, error) {
	f := poll.Form{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		CreatorID:   row.CreatorID,
		ClosesAt:    utcPtr(row.ClosesAt),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if err := row.Fields.Unmarshal(&f.Fields); err != nil {
		return poll.Form{}, errors.Wrap(err, "decoding form fields")
	}
	return f, nil
}

func (row responseRow) response() (poll.Response, error) {
	r := poll.Response{
		ID:          row.ID,
		FormID:      row.FormID,
		UserID:      row.UserID,
		SubmittedAt: row.SubmittedAt.UTC(),
	}
	if err := row.Answers.Unmarshal(&r.Answers); err != nil {
		return poll.Response{}, errors.Wrap(err, "decoding answers")
	}
	return r, nil
}

type formRepository struct {
	repo
}

var _ poll.FormRepository = (*formRepository)(nil) // interface compliance check

func NewFormRepository(db *sqlx.DB) poll.FormRepository {
	return &formRepository{repo{db: db}}
}

func (r *formRepository) CreateForm(ctx context.Context, f poll.Form, exec ...core.DBExecutor) (poll.Form, error) {
	f.ID = uuid.New().String()
	row, err := newFormRow(f)
	if err != nil {
		return poll.Form{}, err
	}
	q := `INSERT INTO form (` + formColumns + `)
		VALUES (:id, :title, :description, :fields, :creator_id, :closes_at, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return poll.Form{}, errors.Wrap(err, "inserting form")
	}
	return row.form()
}

func (r *formRepository) QueryForms(ctx context.Context, filter *poll.FormQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]poll.Form, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "title", "description")
		if filter.Open != nil {
			if *filter.Open {
				w.add("closes_at IS NULL OR closes_at > ?", time.Now().UTC())
			} else {
				w.add("closes_at <= ?", time.Now().UTC())
			}
		}
		if filter.CreatorID != "" {
			if !validID(filter.CreatorID) {
				return []poll.Form{}, nil
			}
			w.add("creator_id = ?", filter.CreatorID)
		}
	}

	var rows []formRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+formColumns+" FROM form", w, orderBy(ordering, "created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}
	forms := make([]poll.Form, 0, len(rows))
	for _, row := range rows {
		f, err := row.form()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, nil
}

func (r *formRepository) GetForm(ctx context.Context, id string, exec ...core.DBExecutor) (poll.Form, error) {
	if !validID(id) {
		return poll.Form{}, poll.ErrFormNotFound
	}
	var row formRow
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, "SELECT "+formColumns+" FROM form WHERE id = $1", id); err != nil {
		return poll.Form{}, trapNoRowsErr(err, poll.ErrFormNotFound, "finding form")
	}
	return row.form()
}

func (r *formRepository) CreateResponse(ctx context.Context, resp poll.Response, exec ...core.DBExecutor) (poll.Response, error) {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return poll.Response{}, errors.Wrap(err, "encoding answers")
	}
	resp.ID = uuid.New().String()
	row := responseRow{ID: resp.ID, FormID: resp.FormID, UserID: resp.UserID, Answers: answers, SubmittedAt: resp.SubmittedAt.UTC()}
	q := `INSERT INTO form_response (id, form_id, user_id, answers, submitted_at)
		VALUES (:id, :form_id, :user_id, :answers, :submitted_at)`
	if _, err = sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return poll.Response{}, trapUniqueErr(err, poll.ErrAlreadyResponded, "inserting response")
	}
	return resp, nil
}

func (r *formRepository) QueryResponses(ctx context.Context, formID string, exec ...core.DBExecutor) ([]poll.Response, error) {
	if !validID(formID) {
		return []poll.Response{}, nil
	}
	var rows []responseRow
	q := "SELECT id, form_id, user_id, answers, submitted_at FROM form_response WHERE form_id = $1 ORDER BY submitted_at"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, formID); err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	res := make([]poll.Response, 0, len(rows))
	for _, row := range rows {
		resp, err := row.response()
		if err != nil {
			return nil, err
		}
		res = append(res, resp)
	}
	return res, nil
}

func (r *formRepository) DeleteForm(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "form", id, poll.ErrFormNotFound)
}
