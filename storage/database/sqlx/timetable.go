package sqlxrepos

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/timetable"
)

const entryColumns = "id, section, day, start_time, end_time, course, room, faculty, created_at, updated_at"

// entryDefaultOrder sorts entries in week order.
const entryDefaultOrder = "array_position(?::text[], day), start_time, section"

type entryRow struct {
	ID        string      `db:"id"`
	Section   string      `db:"section"`
	Day       string      `db:"day"`
	StartTime string      `db:"start_time"`
	EndTime   string      `db:"end_time"`
	Course    string      `db:"course"`
	Room      null.String `db:"room"`
	Faculty   null.String `db:"faculty"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func newEntryRow(e timetable.Entry) entryRow {
	return entryRow{
		ID:        e.ID,
		Section:   e.Section,
		Day:       e.Day,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Course:    e.Course,
		Room:      null.NewString(e.Room, e.Room != ""),
		Faculty:   null.NewString(e.Faculty, e.Faculty != ""),
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}
}

func (row entryRow) entry() timetable.Entry {
	return timetable.Entry{
		ID:        row.ID,
		Section:   row.Section,
		Day:       row.Day,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Course:    row.Course,
		Room:      row.Room.String,
		Faculty:   row.Faculty.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func entries(rows []entryRow) []timetable.Entry {
	res := make([]timetable.Entry, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.entry())
	}
	return res
}

type timetableRepository struct {
	repo
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{repo{db: db}}
}

func (r *timetableRepository) CreateEntry(ctx context.Context, e timetable.Entry, exec ...core.DBExecutor) (timetable.Entry, error) {
	e.ID = uuid.New().String()
	row := newEntryRow(e)
	q := `INSERT INTO timetable_entry (` + entryColumns + `)
		VALUES (:id, :section, :day, :start_time, :end_time, :course, :room, :faculty, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return timetable.Entry{}, errors.Wrap(err, "inserting timetable entry")
	}
	return row.entry(), nil
}

func (r *timetableRepository) QueryEntries(ctx context.Context, filter *timetable.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]timetable.Entry, error) {
	w := new(where)
	if filter != nil {
		if filter.Section != "" {
			w.add("section = ?", filter.Section)
		}
		if filter.Day != "" {
			w.add("day = ?", filter.Day)
		}
		if filter.Room != "" {
			w.add("room = ?", filter.Room)
		}
		if filter.Faculty != "" {
			w.add("faculty ILIKE ?", "%"+filter.Faculty+"%")
		}
	}

	order := orderBy(ordering, entryDefaultOrder)
	args := w.args
	if len(ordering) == 0 {
		args = append(args, pq.Array(timetable.Days))
	}
	exe := r.getExec(exec)
	var rows []entryRow
	q := exe.Rebind("SELECT " + entryColumns + " FROM timetable_entry" + w.String() + order)
	if err := sqlx.SelectContext(ctx, exe, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying timetable entries")
	}
	return entries(rows), nil
}

func (r *timetableRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (timetable.Entry, error) {
	if !validID(id) {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	var row entryRow
	q := "SELECT " + entryColumns + " FROM timetable_entry WHERE id = $1"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, id); err != nil {
		return timetable.Entry{}, trapNoRowsErr(err, timetable.ErrNotFound, "finding timetable entry")
	}
	return row.entry(), nil
}

// slotLockKeys names the advisory locks guarding a day's schedule of section and room, sorted
// so that concurrent transactions always take them in the same order.
func slotLockKeys(day, section, room string) []string {
	keys := []string{"timetable:section:" + day + ":" + section}
	if room != "" {
		keys = append(keys, "timetable:room:"+day+":"+room)
	}
	sort.Strings(keys)
	return keys
}

// EntriesOn locks the day's schedule of section and room until the transaction ends, so that
// two transactions cannot both find a slot free and fill it. Row locks alone do not cover
// entries that do not exist yet.
func (r *timetableRepository) EntriesOn(ctx context.Context, day, section, room string, exec core.DBExecutor) ([]timetable.Entry, error) {
	tx := r.txExec(exec)
	for _, key := range slotLockKeys(day, section, room) {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return nil, errors.Wrap(err, "locking timetable slot")
		}
	}

	w := new(where)
	w.add("day = ?", day)
	if room != "" {
		w.add("section = ? OR room = ?", section, room)
	} else {
		w.add("section = ?", section)
	}
	var rows []entryRow
	if err := selectWhere(ctx, tx, &rows, "SELECT "+entryColumns+" FROM timetable_entry", w, " ORDER BY start_time FOR UPDATE"); err != nil {
		return nil, errors.Wrap(err, "querying timetable entries")
	}
	return entries(rows), nil
}

func (r *timetableRepository) UpdateEntry(ctx context.Context, e timetable.Entry, exec ...core.DBExecutor) (timetable.Entry, error) {
	if !validID(e.ID) {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	row := newEntryRow(e)
	q := `UPDATE timetable_entry SET section = :section, day = :day, start_time = :start_time, end_time = :end_time,
		course = :course, room = :room, faculty = :faculty, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return timetable.Entry{}, errors.Wrap(err, "updating timetable entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	return row.entry(), nil
}

func (r *timetableRepository) DeleteEntries(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	res, err := r.getExec(exec).ExecContext(ctx, "DELETE FROM timetable_entry WHERE id = ANY($1::uuid[])", pq.Array(valid))
	if err != nil {
		return 0, errors.Wrap(err, "deleting timetable entries")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting timetable entries")
	}
	return int(cnt), nil
}
