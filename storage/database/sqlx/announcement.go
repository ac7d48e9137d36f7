package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
)

const announcementColumns = "id, title, content, audience, department, pinned, author_id, expires_at, created_at, updated_at"

type announcementRow struct {
	ID         string      `db:"id"`
	Title      string      `db:"title"`
	Content    string      `db:"content"`
	Audience   string      `db:"audience"`
	Department null.String `db:"department"`
	Pinned     bool        `db:"pinned"`
	AuthorID   string      `db:"author_id"`
	ExpiresAt  null.Time   `db:"expires_at"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func newAnnouncementRow(a announcement.Announcement) announcementRow {
	return announcementRow{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Audience:   a.Audience,
		Department: null.NewString(a.Department, a.Department != ""),
		Pinned:     a.Pinned,
		AuthorID:   a.AuthorID,
		ExpiresAt:  null.TimeFromPtr(a.ExpiresAt),
		CreatedAt:  a.CreatedAt.UTC(),
		UpdatedAt:  a.UpdatedAt.UTC(),
	}
}

func (row announcementRow) announcement() announcement.Announcement {
	return announcement.Announcement{
		ID:         row.ID,
		Title:      row.Title,
		Content:    row.Content,
		Audience:   row.Audience,
		Department: row.Department.String,
		Pinned:     row.Pinned,
		AuthorID:   row.AuthorID,
		ExpiresAt:  utcPtr(row.ExpiresAt),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	tt := t.Time.UTC()
	return &tt
}

type announcementRepository struct {
	repo
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) announcement.Repository {
	return &announcementRepository{repo{db: db}}
}

func (r *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	a.ID = uuid.New().String()
	row := newAnnouncementRow(a)
	q := `INSERT INTO announcement (` + announcementColumns + `)
		VALUES (:id, :title, :content, :audience, :department, :pinned, :author_id, :expires_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return row.announcement(), nil
}

func (r *announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]announcement.Announcement, error) {
	w := new(where)
	includeExpired := false
	if filter != nil {
		w.search(filter.Search, "title", "content")
		if filter.Audience != "" {
			w.add("audience = ?", filter.Audience)
		}
		if filter.Department != "" {
			w.add("department = ?", filter.Department)
		}
		if filter.Pinned != nil {
			w.add("pinned = ?", *filter.Pinned)
		}
		if filter.AuthorID != "" {
			if !validID(filter.AuthorID) {
				return []announcement.Announcement{}, nil
			}
			w.add("author_id = ?", filter.AuthorID)
		}
		includeExpired = filter.IncludeExpired
	}
	if !includeExpired {
		w.add("expires_at IS NULL OR expires_at > ?", time.Now().UTC())
	}

	order := " ORDER BY pinned DESC, created_at DESC"
	if len(ordering) > 0 {
		order = " ORDER BY pinned DESC, " + orderList(ordering)
	}

	var rows []announcementRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+announcementColumns+" FROM announcement", w, order); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	res := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.announcement())
	}
	return res, nil
}

func (r *announcementRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (announcement.Announcement, error) {
	if !validID(id) {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	var row announcementRow
	q := "SELECT " + announcementColumns + " FROM announcement WHERE id = $1"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, id); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "finding announcement")
	}
	return row.announcement(), nil
}

func (r *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	if !validID(a.ID) {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	row := newAnnouncementRow(a)
	q := `UPDATE announcement SET title = :title, content = :content, audience = :audience, department = :department,
		pinned = :pinned, expires_at = :expires_at, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return row.announcement(), nil
}

func (r *announcementRepository) DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "announcement", id, announcement.ErrNotFound)
}
