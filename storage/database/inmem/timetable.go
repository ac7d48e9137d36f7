package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/timetable"
)

type timetableRepository struct {
	db *table[timetable.Entry]
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db.entry}
}

var dayOrder = func() map[string]int {
	m := make(map[string]int, len(timetable.Days))
	for i, d := range timetable.Days {
		m[d] = i
	}
	return m
}()

var entryComparators = comparators[timetable.Entry]{
	"section":    func(a, b timetable.Entry) int { return cmpString(a.Section, b.Section) },
	"start_time": func(a, b timetable.Entry) int { return cmpString(a.StartTime, b.StartTime) },
	"end_time":   func(a, b timetable.Entry) int { return cmpString(a.EndTime, b.EndTime) },
	"course":     func(a, b timetable.Entry) int { return cmpString(a.Course, b.Course) },
	"room":       func(a, b timetable.Entry) int { return cmpString(a.Room, b.Room) },
	"faculty":    func(a, b timetable.Entry) int { return cmpString(a.Faculty, b.Faculty) },
}

func entryLess(a, b timetable.Entry) bool {
	if a.Day != b.Day {
		return dayOrder[a.Day] < dayOrder[b.Day]
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.Section < b.Section
}

func (repo *timetableRepository) CreateEntry(_ context.Context, e timetable.Entry, _ ...core.DBExecutor) (timetable.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = newID()
	stored := e
	repo.db.rows[e.ID] = &stored
	return e, nil
}

func (repo *timetableRepository) QueryEntries(_ context.Context, filter *timetable.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]timetable.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]timetable.Entry, 0, len(repo.db.rows))
	for _, e := range repo.db.rows {
		if filter != nil {
			if filter.Section != "" && e.Section != filter.Section {
				continue
			}
			if filter.Day != "" && e.Day != filter.Day {
				continue
			}
			if filter.Room != "" && e.Room != filter.Room {
				continue
			}
			if filter.Faculty != "" && !icontains(e.Faculty, filter.Faculty) {
				continue
			}
		}
		entries = append(entries, *e)
	}

	sortRecords(entries, ordering, entryComparators, entryLess)
	return entries, nil
}

func (repo *timetableRepository) GetEntry(_ context.Context, id string, _ ...core.DBExecutor) (timetable.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.rows[id]; ok {
		return *e, nil
	}
	return timetable.Entry{}, timetable.ErrNotFound
}

func (repo *timetableRepository) EntriesOn(_ context.Context, day, section, room string, _ core.DBExecutor) ([]timetable.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []timetable.Entry
	for _, e := range repo.db.rows {
		if e.Day == day && (e.Section == section || (room != "" && e.Room == room)) {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (repo *timetableRepository) UpdateEntry(_ context.Context, e timetable.Entry, _ ...core.DBExecutor) (timetable.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[e.ID]; !ok {
		return timetable.Entry{}, timetable.ErrNotFound
	}
	stored := e
	repo.db.rows[e.ID] = &stored
	return e, nil
}

func (repo *timetableRepository) DeleteEntries(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.rows[id]; ok {
			delete(repo.db.rows, id)
			cnt++
		}
	}
	return cnt, nil
}
