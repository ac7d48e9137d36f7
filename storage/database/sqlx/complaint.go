package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/complaint"
)

const complaintColumns = `id, hostel, room, category, description, status, upvotes, student_id, resolution,
	created_at, updated_at, resolved_at`

type complaintRow struct {
	ID          string      `db:"id"`
	Hostel      string      `db:"hostel"`
	Room        string      `db:"room"`
	Category    string      `db:"category"`
	Description string      `db:"description"`
	Status      string      `db:"status"`
	Upvotes     int         `db:"upvotes"`
	StudentID   string      `db:"student_id"`
	Resolution  null.String `db:"resolution"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
	ResolvedAt  null.Time   `db:"resolved_at"`
}

func newComplaintRow(c complaint.Complaint) complaintRow {
	return complaintRow{
		ID:          c.ID,
		Hostel:      c.Hostel,
		Room:        c.Room,
		Category:    c.Category,
		Description: c.Description,
		Status:      c.Status,
		Upvotes:     c.Upvotes,
		StudentID:   c.StudentID,
		Resolution:  null.NewString(c.Resolution, c.Resolution != ""),
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
		ResolvedAt:  null.TimeFromPtr(c.ResolvedAt),
	}
}

func (row complaintRow) complaint() complaint.Complaint {
	return complaint.Complaint{
		ID:          row.ID,
		Hostel:      row.Hostel,
		Room:        row.Room,
		Category:    row.Category,
		Description: row.Description,
		Status:      row.Status,
		Upvotes:     row.Upvotes,
		StudentID:   row.StudentID,
		Resolution:  row.Resolution.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		ResolvedAt:  utcPtr(row.ResolvedAt),
	}
}

type complaintRepository struct {
	repo
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *sqlx.DB) complaint.Repository {
	return &complaintRepository{repo{db: db}}
}

func (r *complaintRepository) CreateComplaint(ctx context.Context, c complaint.Complaint, exec ...core.DBExecutor) (complaint.Complaint, error) {
	c.ID = uuid.New().String()
	row := newComplaintRow(c)
	q := `INSERT INTO complaint (` + complaintColumns + `) VALUES (:id, :hostel, :room, :category, :description, :status,
		:upvotes, :student_id, :resolution, :created_at, :updated_at, :resolved_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	return row.complaint(), nil
}

func (r *complaintRepository) QueryComplaints(ctx context.Context, filter *complaint.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]complaint.Complaint, error) {
	w := new(where)
	if filter != nil {
		if filter.Hostel != "" {
			w.add("hostel = ?", filter.Hostel)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.Category != "" {
			w.add("category = ?", filter.Category)
		}
		if filter.StudentID != "" {
			if !validID(filter.StudentID) {
				return []complaint.Complaint{}, nil
			}
			w.add("student_id = ?", filter.StudentID)
		}
	}

	var rows []complaintRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+complaintColumns+" FROM complaint", w, orderBy(ordering, "upvotes DESC, created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying complaints")
	}
	res := make([]complaint.Complaint, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.complaint())
	}
	return res, nil
}

func (r *complaintRepository) getComplaint(ctx context.Context, exe sqlx.ExtContext, id, suffix string) (complaint.Complaint, error) {
	if !validID(id) {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	var row complaintRow
	q := "SELECT " + complaintColumns + " FROM complaint WHERE id = $1" + suffix
	if err := sqlx.GetContext(ctx, exe, &row, q, id); err != nil {
		return complaint.Complaint{}, trapNoRowsErr(err, complaint.ErrNotFound, "finding complaint")
	}
	return row.complaint(), nil
}

func (r *complaintRepository) GetComplaint(ctx context.Context, id string, exec ...core.DBExecutor) (complaint.Complaint, error) {
	return r.getComplaint(ctx, r.getExec(exec), id, "")
}

func (r *complaintRepository) LockComplaint(ctx context.Context, id string, exec core.DBExecutor) (complaint.Complaint, error) {
	return r.getComplaint(ctx, r.txExec(exec), id, " FOR UPDATE")
}

func (r *complaintRepository) UpdateComplaint(ctx context.Context, c complaint.Complaint, exec ...core.DBExecutor) (complaint.Complaint, error) {
	if !validID(c.ID) {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	row := newComplaintRow(c)
	q := `UPDATE complaint SET hostel = :hostel, room = :room, category = :category, description = :description,
		status = :status, upvotes = :upvotes, resolution = :resolution, updated_at = :updated_at, resolved_at = :resolved_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "updating complaint")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return row.complaint(), nil
}

func (r *complaintRepository) AddUpvote(ctx context.Context, complaintID, userID string, exec core.DBExecutor) error {
	q := "INSERT INTO complaint_upvote (complaint_id, user_id, created_at) VALUES ($1, $2, $3)"
	if _, err := r.txExec(exec).ExecContext(ctx, q, complaintID, userID, time.Now().UTC()); err != nil {
		return trapUniqueErr(err, complaint.ErrAlreadyUpvoted, "inserting upvote")
	}
	return nil
}

func (r *complaintRepository) DeleteComplaint(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "complaint", id, complaint.ErrNotFound)
}
