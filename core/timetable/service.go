package timetable

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var ErrNotFound = core.NewNotFoundError("timetable entry not found")

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries returns entries sorted by day then start time, unless ordering is given.
		QueryEntries(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Entry, error)
		GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		// EntriesOn returns the entries of a day for the given section or room. It locks that part
		// of the schedule until the transaction ends, slots still free included.
		EntriesOn(ctx context.Context, day, section, room string, exec core.DBExecutor) ([]Entry, error)
		UpdateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		DeleteEntries(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// checkConflicts rejects `e` when it overlaps a class of the same section or a booking of the same room.
func (svc *Service) checkConflicts(ctx context.Context, e Entry, exec core.DBExecutor) error {
	others, err := svc.repo.EntriesOn(ctx, e.Day, e.Section, e.Room, exec)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	for _, o := range others {
		if o.ID == e.ID || !e.Overlaps(o) {
			continue
		}
		if o.Section == e.Section {
			return core.NewValidationError(nil, core.FieldError{
				Field: "start_time",
				Error: fmt.Sprintf("%s already has %s from %s to %s", e.Section, o.Course, o.StartTime, o.EndTime),
			})
		}
		if e.Room != "" && o.Room == e.Room {
			return core.NewValidationError(nil, core.FieldError{
				Field: "room",
				Error: fmt.Sprintf("room %s is booked by %s from %s to %s", e.Room, o.Section, o.StartTime, o.EndTime),
			})
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, ne NewEntry) (Entry, error) {
	if !actor.IsAdmin() {
		return Entry{}, core.ErrPermissionDenied
	}
	now := time.Now().UTC()
	e := Entry{
		Section:   ne.Section,
		Day:       ne.Day,
		StartTime: ne.StartTime,
		EndTime:   ne.EndTime,
		Course:    ne.Course,
		Room:      ne.Room,
		Faculty:   ne.Faculty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.checkConflicts(ctx, e, exec); err != nil {
			return err
		}
		var err error
		e, err = svc.repo.CreateEntry(ctx, e, exec)
		return errors.Wrap(err, "creating entry")
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Update replaces an entry with `ne`.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, ne NewEntry) (Entry, error) {
	if !actor.IsAdmin() {
		return Entry{}, core.ErrPermissionDenied
	}
	var e Entry
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.GetEntry(ctx, id, exec); err != nil {
			return err
		}
		e.Section = ne.Section
		e.Day = ne.Day
		e.StartTime = ne.StartTime
		e.EndTime = ne.EndTime
		e.Course = ne.Course
		e.Room = ne.Room
		e.Faculty = ne.Faculty
		e.UpdatedAt = time.Now().UTC()
		if err = svc.checkConflicts(ctx, e, exec); err != nil {
			return err
		}
		e, err = svc.repo.UpdateEntry(ctx, e, exec)
		return errors.Wrap(err, "updating entry")
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error) {
	ordering = core.FilterOrderings(ordering, "section", "start_time", "end_time", "course", "room", "faculty")
	return svc.repo.QueryEntries(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

// Week returns the timetable of a section grouped by day, in week order; days without classes are omitted.
func (svc *Service) Week(ctx context.Context, section string) ([]Day, error) {
	entries, err := svc.repo.QueryEntries(ctx, &QueryFilter{Section: core.CleanString(section)}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dayIndex(entries[i].Day), dayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		return entries[i].StartTime < entries[j].StartTime
	})

	week := make([]Day, 0, len(Days))
	for _, e := range entries {
		if n := len(week); n == 0 || week[n-1].Day != e.Day {
			week = append(week, Day{Day: e.Day})
		}
		week[len(week)-1].Entries = append(week[len(week)-1].Entries, e)
	}
	return week, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, ids ...string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	n, err := svc.repo.DeleteEntries(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "deleting entries")
	}
	if n == 0 && len(ids) == 1 {
		return ErrNotFound
	}
	return nil
}
