package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const userColumns = `id, name, username, email, is_active, roles, department, year, hostel, hostel_room,
	password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	Department   null.String    `db:"department"`
	Year         int            `db:"year"`
	Hostel       null.String    `db:"hostel"`
	HostelRoom   null.String    `db:"hostel_room"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.Active(),
		Roles:        roles,
		Department:   null.NewString(usr.Department, usr.Department != ""),
		Year:         usr.Year,
		Hostel:       null.NewString(usr.Hostel, usr.Hostel != ""),
		HostelRoom:   null.NewString(usr.HostelRoom, usr.HostelRoom != ""),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Roles:        row.Roles,
		Department:   row.Department.String,
		Year:         row.Year,
		Hostel:       row.Hostel.String,
		HostelRoom:   row.HostelRoom.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	usr.SetActive(row.IsActive)
	return usr
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repo{db: db}}
}

func (r *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := r.getExec(exec)
	var ids []string
	for _, u := range excludedUsers {
		if u.ID != "" {
			ids = append(ids, u.ID)
		}
	}

	check := func(column, value string, taken error) error {
		if value == "" {
			return nil
		}
		w := new(where)
		w.add(column+" = ?", value)
		if len(ids) > 0 {
			w.add("NOT (id = ANY(?::uuid[]))", pq.Array(ids))
		}
		var found bool
		q := exe.Rebind(`SELECT EXISTS (SELECT 1 FROM "user"` + w.String() + ")")
		if err := sqlx.GetContext(ctx, exe, &found, q, w.args...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if found {
			return taken
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := newUserRow(usr)
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :username, :email, :is_active, :roles, :department,
		:year, :hostel, :hostel_room, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return user.User{}, trapUniqueErr(err, user.ErrUserExists, "inserting user")
	}
	return row.user(), nil
}

func (r *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	w := new(where)
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		w.search(filter.Search, "name", "username", "email")
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, role+"%")
			}
			w.add("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ANY(?))", pq.Array(patterns))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.Department != "" {
			w.add("department = ?", filter.Department)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, `SELECT `+userColumns+` FROM "user"`, w, orderBy(ordering, "created_at ASC")); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (r *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	w := new(where)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("username = ? OR email = ?", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	exe := r.getExec(exec)
	var row userRow
	q := exe.Rebind(`SELECT ` + userColumns + ` FROM "user"` + w.String() + " LIMIT 1")
	if err := sqlx.GetContext(ctx, exe, &row, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (r *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	row := newUserRow(usr)
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles,
		department = :department, year = :year, hostel = :hostel, hostel_room = :hostel_room,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return user.User{}, trapUniqueErr(err, user.ErrUserExists, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.user(), nil
}

func (r *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return r.CreateUser(ctx, usr, exec...)
	}
	return r.UpdateUser(ctx, usr, exec...)
}

// userDeletionFixups undo what the users' rows contributed to denormalized tallies, before the
// cascades drop those rows. $1 is the uuid[] of the users being deleted.
var userDeletionFixups = []struct{ what, query string }{
	{"poll tallies", `UPDATE poll p SET total_votes = p.total_votes - s.n
		FROM (SELECT poll_id, count(*) AS n FROM poll_ballot WHERE user_id = ANY($1::uuid[]) GROUP BY poll_id) s
		WHERE p.id = s.poll_id`},
	{"poll option tallies", `UPDATE poll_option o SET votes = o.votes - s.n
		FROM (SELECT b.poll_id, opt, count(*) AS n
			FROM poll_ballot b, unnest(b.option_ids) AS opt
			WHERE b.user_id = ANY($1::uuid[]) GROUP BY b.poll_id, opt) s
		WHERE o.poll_id = s.poll_id AND o.id = s.opt`},
	{"event registration counts", `UPDATE event e SET registration_count = e.registration_count - s.n
		FROM (SELECT event_id, count(*) AS n FROM event_registration WHERE user_id = ANY($1::uuid[]) GROUP BY event_id) s
		WHERE e.id = s.event_id`},
	{"complaint upvotes", `UPDATE complaint c SET upvotes = c.upvotes - s.n
		FROM (SELECT complaint_id, count(*) AS n FROM complaint_upvote WHERE user_id = ANY($1::uuid[]) GROUP BY complaint_id) s
		WHERE c.id = s.complaint_id`},
	{"course ratings", `UPDATE skill_course c SET
			rating = CASE WHEN c.rating_count <= s.n THEN 0
				ELSE (c.rating * c.rating_count - s.total) / (c.rating_count - s.n) END,
			rating_count = GREATEST(c.rating_count - s.n, 0)
		FROM (SELECT course_id, count(*) AS n, sum(score) AS total
			FROM skill_course_rating WHERE user_id = ANY($1::uuid[]) GROUP BY course_id) s
		WHERE c.id = s.course_id`},
	{"course learners", `UPDATE skill_course SET
			learners = ARRAY(SELECT l FROM unnest(learners) WITH ORDINALITY AS t(l, i)
				WHERE l <> ALL($1::text[]) ORDER BY i),
			status = CASE WHEN status = 'full' THEN 'open' ELSE status END
		WHERE learners && $1::text[]`},
}

// DeleteUsersByID deletes the users along with what they own, fixing the tallies their
// ballots, registrations, upvotes, ratings and enrolments fed, in one transaction.
func (r *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	var cnt int64
	err := r.inTx(ctx, exec, func(tx sqlx.ExtContext) error {
		for _, fix := range userDeletionFixups {
			if _, err := tx.ExecContext(ctx, fix.query, pq.Array(valid)); err != nil {
				return errors.Wrapf(err, "fixing %s", fix.what)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1::uuid[])`, pq.Array(valid))
		if err != nil {
			return errors.Wrap(err, "deleting users")
		}
		cnt, err = res.RowsAffected()
		return errors.Wrap(err, "deleting users")
	})
	if err != nil {
		return 0, err
	}
	return int(cnt), nil
}
