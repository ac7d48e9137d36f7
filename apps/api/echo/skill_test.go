package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/user"
)

func Test_skillApi(t *testing.T) {
	setup(t)

	tutor := createUser(t, "Tutor", "tutor", "tutor@test.cd", "", []string{user.RoleStudent}, true)
	learner := createUser(t, "Learner", "learner", "learner@test.cd", "", []string{user.RoleStudent}, true)
	late := createUser(t, "Late", "late", "late@test.cd", "", []string{user.RoleStudent}, true)
	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	tutorToken, learnerToken, lateToken := getToken(t, tutor), getToken(t, learner), getToken(t, late)

	nc := skill.NewCourse{Title: "Guitar 101", Category: " Music ", MaxLearners: 1, Schedule: "Sat 10:00"}
	runHTTPTests(t, []httpTest{
		{name: "faculty cannot offer", method: http.MethodPost, path: "/api/courses", token: getToken(t, faculty), body: marshalObj(t, nc), wantCode: http.StatusForbidden},
		{name: "no capacity", method: http.MethodPost, path: "/api/courses", token: tutorToken, body: []byte(`{"title": "Guitar", "category": "music"}`), wantCode: http.StatusBadRequest},
	})

	rec := do(http.MethodPost, "/api/courses", tutorToken, marshalObj(t, nc))
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var c skill.Course
	decode(t, rec, &c)
	assert.Equal(t, "music", c.Category)
	assert.Equal(t, skill.StatusOpen, c.Status)

	path := "/api/courses/" + c.ID
	runHTTPTests(t, []httpTest{
		{name: "own course", method: http.MethodPost, path: path + "/enroll", token: tutorToken, wantCode: http.StatusConflict},
		{name: "not enrolled cannot rate", method: http.MethodPost, path: path + "/ratings", token: learnerToken, body: []byte(`{"score": 5}`), wantCode: http.StatusConflict},
		{name: "enroll", method: http.MethodPost, path: path + "/enroll", token: learnerToken},
		{name: "enroll twice", method: http.MethodPost, path: path + "/enroll", token: learnerToken, wantCode: http.StatusConflict},
		{
			name: "full", method: http.MethodPost, path: path + "/enroll", token: lateToken,
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: skill.ErrCourseFull.Error()}),
		},
		{name: "only the tutor sets capacity", method: http.MethodPut, path: path + "/capacity", token: learnerToken, body: []byte(`{"max_learners": 2}`), wantCode: http.StatusForbidden},
		{name: "capacity out of range", method: http.MethodPut, path: path + "/capacity", token: tutorToken, body: []byte(`{"max_learners": 0}`), wantCode: http.StatusBadRequest},
		{name: "raise capacity", method: http.MethodPut, path: path + "/capacity", token: tutorToken, body: []byte(`{"max_learners": 2}`)},
		{name: "enroll late", method: http.MethodPost, path: path + "/enroll", token: lateToken},
		{name: "capacity below learners", method: http.MethodPut, path: path + "/capacity", token: tutorToken, body: []byte(`{"max_learners": 1}`), wantCode: http.StatusBadRequest},
		{name: "score out of range", method: http.MethodPost, path: path + "/ratings", token: learnerToken, body: []byte(`{"score": 6}`), wantCode: http.StatusBadRequest},
		{name: "rate", method: http.MethodPost, path: path + "/ratings", token: learnerToken, body: []byte(`{"score": 5}`)},
		{name: "rate twice", method: http.MethodPost, path: path + "/ratings", token: learnerToken, body: []byte(`{"score": 1}`), wantCode: http.StatusConflict},
		{name: "rate 2", method: http.MethodPost, path: path + "/ratings", token: lateToken, body: []byte(`{"score": 4}`)},
		{name: "leave", method: http.MethodPost, path: path + "/leave", token: lateToken},
		{name: "leave twice", method: http.MethodPost, path: path + "/leave", token: lateToken, wantCode: http.StatusConflict},
		{name: "close", method: http.MethodPost, path: path + "/close", token: tutorToken},
		{name: "closed", method: http.MethodPost, path: path + "/enroll", token: lateToken, wantCode: http.StatusConflict},
	})

	rec = do(http.MethodGet, path, learnerToken)
	decode(t, rec, &c)
	assert.Equal(t, []string{learner.ID}, c.Learners)
	assert.Equal(t, skill.StatusClosed, c.Status)
	assert.Equal(t, 2, c.RatingCount)
	assert.InDelta(t, 4.5, c.Rating, 0.001)

	runHTTPTests(t, []httpTest{
		{name: "learner filter", path: "/api/courses?learner=" + learner.ID, token: learnerToken, wantData: marshalList(t, c)},
		{name: "category filter", path: "/api/courses?category=art", token: learnerToken, wantData: marshalList(t)},
	})
}
