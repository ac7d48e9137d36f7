package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/skill"
)

type skillRepository struct {
	db      *table[skill.Course]
	ratings *table[int]
}

var _ skill.Repository = (*skillRepository)(nil) // interface compliance check

func NewSkillRepository(db *DB) skill.Repository {
	return &skillRepository{db: db.course, ratings: db.rating}
}

var courseComparators = comparators[skill.Course]{
	"title":        func(a, b skill.Course) int { return cmpString(a.Title, b.Title) },
	"category":     func(a, b skill.Course) int { return cmpString(a.Category, b.Category) },
	"status":       func(a, b skill.Course) int { return cmpString(a.Status, b.Status) },
	"rating":       func(a, b skill.Course) int { return cmpFloat(a.Rating, b.Rating) },
	"max_learners": func(a, b skill.Course) int { return cmpInt(a.MaxLearners, b.MaxLearners) },
	"created_at":   func(a, b skill.Course) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func cloneCourse(c skill.Course) skill.Course {
	c.Learners = copyStrings(c.Learners)
	if c.Learners == nil {
		c.Learners = []string{}
	}
	return c
}

func (repo *skillRepository) CreateCourse(_ context.Context, c skill.Course, _ ...core.DBExecutor) (skill.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c = cloneCourse(c)
	c.ID = newID()
	repo.db.rows[c.ID] = &c
	return cloneCourse(c), nil
}

func (repo *skillRepository) QueryCourses(_ context.Context, filter *skill.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]skill.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]skill.Course, 0, len(repo.db.rows))
	for _, c := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !matchesAny(filter.Search, c.Title, c.Description) {
				continue
			}
			if filter.Category != "" && c.Category != filter.Category {
				continue
			}
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
			if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
				continue
			}
			if filter.LearnerID != "" && !c.IsLearner(filter.LearnerID) {
				continue
			}
		}
		courses = append(courses, cloneCourse(*c))
	}

	sortRecords(courses, ordering, courseComparators, func(a, b skill.Course) bool { return a.CreatedAt.After(b.CreatedAt) })
	return courses, nil
}

func (repo *skillRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (skill.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok {
		return cloneCourse(*c), nil
	}
	return skill.Course{}, skill.ErrNotFound
}

func (repo *skillRepository) LockCourse(ctx context.Context, id string, _ core.DBExecutor) (skill.Course, error) {
	return repo.GetCourse(ctx, id)
}

func (repo *skillRepository) UpdateCourse(_ context.Context, c skill.Course, _ ...core.DBExecutor) (skill.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return skill.Course{}, skill.ErrNotFound
	}
	c = cloneCourse(c)
	repo.db.rows[c.ID] = &c
	return cloneCourse(c), nil
}

func (repo *skillRepository) AddRating(_ context.Context, courseID, userID string, score int, _ core.DBExecutor) error {
	repo.ratings.Lock()
	defer repo.ratings.Unlock()

	key := pairKey(courseID, userID)
	if _, ok := repo.ratings.rows[key]; ok {
		return skill.ErrAlreadyRated
	}
	repo.ratings.rows[key] = &score
	return nil
}

func (repo *skillRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return skill.ErrNotFound
	}
	delete(repo.db.rows, id)

	repo.ratings.Lock()
	defer repo.ratings.Unlock()
	for key := range repo.ratings.rows {
		if strings.HasPrefix(key, id+"/") {
			delete(repo.ratings.rows, key)
		}
	}
	return nil
}
