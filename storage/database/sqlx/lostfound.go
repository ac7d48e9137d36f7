package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lostfound"
)

const itemColumns = `id, kind, title, description, location, contact, image_url, status, reporter_id, claimant_id,
	created_at, updated_at`

type itemRow struct {
	ID          string      `db:"id"`
	Kind        string      `db:"kind"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Location    string      `db:"location"`
	Contact     null.String `db:"contact"`
	ImageURL    null.String `db:"image_url"`
	Status      string      `db:"status"`
	ReporterID  string      `db:"reporter_id"`
	ClaimantID  null.String `db:"claimant_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func newItemRow(item lostfound.Item) itemRow {
	return itemRow{
		ID:          item.ID,
		Kind:        item.Kind,
		Title:       item.Title,
		Description: null.NewString(item.Description, item.Description != ""),
		Location:    item.Location,
		Contact:     null.NewString(item.Contact, item.Contact != ""),
		ImageURL:    null.NewString(item.ImageURL, item.ImageURL != ""),
		Status:      item.Status,
		ReporterID:  item.ReporterID,
		ClaimantID:  null.NewString(item.ClaimantID, item.ClaimantID != ""),
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}
}

func (row itemRow) item() lostfound.Item {
	return lostfound.Item{
		ID:          row.ID,
		Kind:        row.Kind,
		Title:       row.Title,
		Description: row.Description.String,
		Location:    row.Location,
		Contact:     row.Contact.String,
		ImageURL:    row.ImageURL.String,
		Status:      row.Status,
		ReporterID:  row.ReporterID,
		ClaimantID:  row.ClaimantID.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type lostFoundRepository struct {
	repo
}

var _ lostfound.Repository = (*lostFoundRepository)(nil) // interface compliance check

func NewLostFoundRepository(db *sqlx.DB) lostfound.Repository {
	return &lostFoundRepository{repo{db: db}}
}

func (r *lostFoundRepository) CreateItem(ctx context.Context, item lostfound.Item, exec ...core.DBExecutor) (lostfound.Item, error) {
	item.ID = uuid.New().String()
	row := newItemRow(item)
	q := `INSERT INTO lost_found_item (` + itemColumns + `) VALUES (:id, :kind, :title, :description, :location,
		:contact, :image_url, :status, :reporter_id, :claimant_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return lostfound.Item{}, errors.Wrap(err, "inserting item")
	}
	return row.item(), nil
}

func (r *lostFoundRepository) QueryItems(ctx context.Context, filter *lostfound.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lostfound.Item, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "title", "description", "location")
		if filter.Kind != "" {
			w.add("kind = ?", filter.Kind)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.ReporterID != "" {
			if !validID(filter.ReporterID) {
				return []lostfound.Item{}, nil
			}
			w.add("reporter_id = ?", filter.ReporterID)
		}
	}

	var rows []itemRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+itemColumns+" FROM lost_found_item", w, orderBy(ordering, "created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying items")
	}
	items := make([]lostfound.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

func (r *lostFoundRepository) getItem(ctx context.Context, exe sqlx.ExtContext, id, suffix string) (lostfound.Item, error) {
	if !validID(id) {
		return lostfound.Item{}, lostfound.ErrNotFound
	}
	var row itemRow
	q := "SELECT " + itemColumns + " FROM lost_found_item WHERE id = $1" + suffix
	if err := sqlx.GetContext(ctx, exe, &row, q, id); err != nil {
		return lostfound.Item{}, trapNoRowsErr(err, lostfound.ErrNotFound, "finding item")
	}
	return row.item(), nil
}

func (r *lostFoundRepository) GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (lostfound.Item, error) {
	return r.getItem(ctx, r.getExec(exec), id, "")
}

func (r *lostFoundRepository) LockItem(ctx context.Context, id string, exec core.DBExecutor) (lostfound.Item, error) {
	return r.getItem(ctx, r.txExec(exec), id, " FOR UPDATE")
}

func (r *lostFoundRepository) UpdateItem(ctx context.Context, item lostfound.Item, exec ...core.DBExecutor) (lostfound.Item, error) {
	if !validID(item.ID) {
		return lostfound.Item{}, lostfound.ErrNotFound
	}
	row := newItemRow(item)
	q := `UPDATE lost_found_item SET kind = :kind, title = :title, description = :description, location = :location,
		contact = :contact, image_url = :image_url, status = :status, claimant_id = :claimant_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return lostfound.Item{}, errors.Wrap(err, "updating item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lostfound.Item{}, lostfound.ErrNotFound
	}
	return row.item(), nil
}

func (r *lostFoundRepository) DeleteItem(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "lost_found_item", id, lostfound.ErrNotFound)
}
