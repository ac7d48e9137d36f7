package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
)

type (
	table[T any] struct {
		sync.RWMutex
		rows map[string]*T
	}

	// DB keeps every record in memory. It backs the tests and DB_ENGINE=inmem.
	DB struct {
		txMu sync.Mutex

		user         *table[user.User]
		announcement *table[announcement.Announcement]
		item         *table[lostfound.Item]
		entry        *table[timetable.Entry]
		complaint    *table[complaint.Complaint]
		upvote       *table[time.Time] // key: complaintID/userID
		poll         *table[poll.Poll]
		ballot       *table[poll.Ballot] // key: pollID/userID
		form         *table[poll.Form]
		response     *table[poll.Response]
		event        *table[event.Event]
		registration *table[event.Registration] // key: eventID/userID
		course       *table[skill.Course]
		rating       *table[int] // key: courseID/userID
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) all() []T {
	res := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, *row)
	}
	return res
}

func Open() *DB {
	return &DB{
		user:         newTable[user.User](),
		announcement: newTable[announcement.Announcement](),
		item:         newTable[lostfound.Item](),
		entry:        newTable[timetable.Entry](),
		complaint:    newTable[complaint.Complaint](),
		upvote:       newTable[time.Time](),
		poll:         newTable[poll.Poll](),
		ballot:       newTable[poll.Ballot](),
		form:         newTable[poll.Form](),
		response:     newTable[poll.Response](),
		event:        newTable[event.Event](),
		registration: newTable[event.Registration](),
		course:       newTable[skill.Course](),
		rating:       newTable[int](),
	}
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

// NewTransactor serializes transactions on the whole DB.
// Nothing is rolled back: callers run their checks before writing.
func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (tx *transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.db.txMu.Lock()
	defer tx.db.txMu.Unlock()
	return fn(nil)
}

func newID() string {
	return uuid.New().String()
}

func pairKey(a, b string) string {
	return a + "/" + b
}

// icontains is a case-insensitive strings.Contains
func icontains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesAny(substr string, fields ...string) bool {
	for _, f := range fields {
		if icontains(f, substr) {
			return true
		}
	}
	return false
}

// comparators map an ordering field to a three-way comparison of two records.
type comparators[T any] map[string]func(a, b T) int

// sortRecords sorts by the known fields of `ordering`; `defaultLess` is used when none applies.
func sortRecords[T any](records []T, ordering []core.DBOrdering, cmps comparators[T], defaultLess func(a, b T) bool) {
	var orders []core.DBOrdering
	for _, ord := range ordering {
		if _, ok := cmps[ord.Field]; ok {
			orders = append(orders, ord)
		}
	}
	if len(orders) == 0 {
		sort.SliceStable(records, func(i, j int) bool { return defaultLess(records[i], records[j]) })
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range orders {
			c := cmps[ord.Field](records[i], records[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmpTime(*a, *b)
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	tt := *t
	return &tt
}
