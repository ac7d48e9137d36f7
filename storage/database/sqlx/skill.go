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
	"github.com/trezcool/campus/core/skill"
)

const courseColumns = `id, title, description, category, instructor_id, max_learners, learners, schedule, status,
	rating, rating_count, created_at, updated_at`

type courseRow struct {
	ID           string         `db:"id"`
	Title        string         `db:"title"`
	Description  null.String    `db:"description"`
	Category     string         `db:"category"`
	InstructorID string         `db:"instructor_id"`
	MaxLearners  int            `db:"max_learners"`
	Learners     pq.StringArray `db:"learners"`
	Schedule     null.String    `db:"schedule"`
	Status       string         `db:"status"`
	Rating       float64        `db:"rating"`
	RatingCount  int            `db:"rating_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func newCourseRow(c skill.Course) courseRow {
	learners := c.Learners
	if learners == nil {
		learners = []string{}
	}
	return courseRow{
		ID:           c.ID,
		Title:        c.Title,
		Description:  null.NewString(c.Description, c.Description != ""),
		Category:     c.Category,
		InstructorID: c.InstructorID,
		MaxLearners:  c.MaxLearners,
		Learners:     learners,
		Schedule:     null.NewString(c.Schedule, c.Schedule != ""),
		Status:       c.Status,
		Rating:       c.Rating,
		RatingCount:  c.RatingCount,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func (row courseRow) course() skill.Course {
	learners := []string(row.Learners)
	if learners == nil {
		learners = []string{}
	}
	return skill.Course{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description.String,
		Category:     row.Category,
		InstructorID: row.InstructorID,
		MaxLearners:  row.MaxLearners,
		Learners:     learners,
		Schedule:     row.Schedule.String,
		Status:       row.Status,
		Rating:       row.Rating,
		RatingCount:  row.RatingCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type skillRepository struct {
	repo
}

var _ skill.Repository = (*skillRepository)(nil) // interface compliance check

func NewSkillRepository(db *sqlx.DB) skill.Repository {
	return &skillRepository{repo{db: db}}
}

func (r *skillRepository) CreateCourse(ctx context.Context, c skill.Course, exec ...core.DBExecutor) (skill.Course, error) {
	c.ID = uuid.New().String()
	row := newCourseRow(c)
	q := `INSERT INTO skill_course (` + courseColumns + `) VALUES (:id, :title, :description, :category, :instructor_id,
		:max_learners, :learners, :schedule, :status, :rating, :rating_count, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return skill.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.course(), nil
}

func (r *skillRepository) QueryCourses(ctx context.Context, filter *skill.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]skill.Course, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "title", "description")
		if filter.Category != "" {
			w.add("category = ?", filter.Category)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.InstructorID != "" {
			if !validID(filter.InstructorID) {
				return []skill.Course{}, nil
			}
			w.add("instructor_id = ?", filter.InstructorID)
		}
		if filter.LearnerID != "" {
			w.add("? = ANY(learners)", filter.LearnerID)
		}
	}

	var rows []courseRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+courseColumns+" FROM skill_course", w, orderBy(ordering, "created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]skill.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (r *skillRepository) getCourse(ctx context.Context, exe sqlx.ExtContext, id, suffix string) (skill.Course, error) {
	if !validID(id) {
		return skill.Course{}, skill.ErrNotFound
	}
	var row courseRow
	if err := sqlx.GetContext(ctx, exe, &row, "SELECT "+courseColumns+" FROM skill_course WHERE id = $1"+suffix, id); err != nil {
		return skill.Course{}, trapNoRowsErr(err, skill.ErrNotFound, "finding course")
	}
	return row.course(), nil
}

func (r *skillRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (skill.Course, error) {
	return r.getCourse(ctx, r.getExec(exec), id, "")
}

func (r *skillRepository) LockCourse(ctx context.Context, id string, exec core.DBExecutor) (skill.Course, error) {
	return r.getCourse(ctx, r.txExec(exec), id, " FOR UPDATE")
}

func (r *skillRepository) UpdateCourse(ctx context.Context, c skill.Course, exec ...core.DBExecutor) (skill.Course, error) {
	if !validID(c.ID) {
		return skill.Course{}, skill.ErrNotFound
	}
	row := newCourseRow(c)
	q := `UPDATE skill_course SET title = :title, description = :description, category = :category,
		max_learners = :max_learners, learners = :learners, schedule = :schedule, status = :status, rating = :rating,
		rating_count = :rating_count, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return skill.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return skill.Course{}, skill.ErrNotFound
	}
	return row.course(), nil
}

func (r *skillRepository) AddRating(ctx context.Context, courseID, userID string, score int, exec core.DBExecutor) error {
	q := "INSERT INTO skill_course_rating (course_id, user_id, score, created_at) VALUES ($1, $2, $3, $4)"
	if _, err := r.txExec(exec).ExecContext(ctx, q, courseID, userID, score, time.Now().UTC()); err != nil {
		return trapUniqueErr(err, skill.ErrAlreadyRated, "inserting rating")
	}
	return nil
}

func (r *skillRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "skill_course", id, skill.ErrNotFound)
}
