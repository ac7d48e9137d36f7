package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const uniqueViolation = "23505"

// repo holds what every repository needs: the DB and the executor selection.
type repo struct {
	db *sqlx.DB
}

// getExec returns the executor handed by the service (a transaction), or the DB.
func (r repo) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if exe, ok := svcExec[0].(sqlx.ExtContext); ok {
			return exe
		}
	}
	return r.db
}

func (r repo) txExec(exec core.DBExecutor) sqlx.ExtContext {
	return r.getExec([]core.DBExecutor{exec})
}

// inTx runs fn on the service's transaction when there is one, in a new transaction otherwise.
func (r repo) inTx(ctx context.Context, svcExec []core.DBExecutor, fn func(exec sqlx.ExtContext) error) error {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return fn(r.getExec(svcExec))
	}
	return NewTransactor(r.db).WithinTx(ctx, func(exec core.DBExecutor) error {
		return fn(r.txExec(exec))
	})
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps psql unique violations to conflict
func trapUniqueErr(err error, conflict error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return conflict
	}
	return errors.Wrap(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *sqlx.DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// where accumulates "?"-placeholder conditions joined with AND.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, "("+cond+")")
	w.args = append(w.args, args...)
}

func (w *where) search(term string, columns ...string) {
	if term == "" {
		return
	}
	val := "%" + term + "%"
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, col+" ILIKE ?")
		args = append(args, val)
	}
	w.add(strings.Join(conds, " OR "), args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders ordering, falling back to `def`. Fields were whitelisted by the services.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + orderList(ordering)
}

func orderList(ordering []core.DBOrdering) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	return strings.Join(list, ", ")
}

// selectWhere runs "<query><where><suffix>" into dest.
func selectWhere(ctx context.Context, exe sqlx.ExtContext, dest interface{}, query string, w *where, suffix string) error {
	q := exe.Rebind(query + w.String() + suffix)
	return sqlx.SelectContext(ctx, exe, dest, q, w.args...)
}

func deleteByID(ctx context.Context, exe sqlx.ExtContext, table, id string, notFound error) error {
	if !validID(id) {
		return notFound
	}
	res, err := exe.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}
