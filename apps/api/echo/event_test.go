package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/user"
)

func Test_eventApi(t *testing.T) {
	setup(t)

	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	students := make([]user.User, 3)
	for i := range students {
		students[i] = createUser(t, "Student", "", "", "", []string{user.RoleStudent}, true)
	}
	facultyToken := getToken(t, faculty)

	startsAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	ne := event.NewEvent{Title: "Hackathon", Venue: "Main hall", StartsAt: startsAt, EndsAt: startsAt.Add(6 * time.Hour), MaxParticipants: 2}

	bad := ne
	bad.EndsAt = startsAt.Add(-time.Hour)
	runHTTPTests(t, []httpTest{
		{name: "students cannot create", method: http.MethodPost, path: "/api/events", token: getToken(t, students[0]), body: marshalObj(t, ne), wantCode: http.StatusForbidden},
		{name: "ends before start", method: http.MethodPost, path: "/api/events", token: facultyToken, body: marshalObj(t, bad), wantCode: http.StatusBadRequest},
	})

	rec := do(http.MethodPost, "/api/events", facultyToken, marshalObj(t, ne))
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var e event.Event
	decode(t, rec, &e)

	path := "/api/events/" + e.ID + "/registrations"
	runHTTPTests(t, []httpTest{
		{name: "register", method: http.MethodPost, path: path, token: getToken(t, students[0]), wantCode: http.StatusCreated},
		{
			name: "register twice", method: http.MethodPost, path: path, token: getToken(t, students[0]),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: event.ErrAlreadyRegistered.Error()}),
		},
		{name: "register 2nd", method: http.MethodPost, path: path, token: getToken(t, students[1]), wantCode: http.StatusCreated},
		{
			name: "full", method: http.MethodPost, path: path, token: getToken(t, students[2]),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: event.ErrEventFull.Error()}),
		},
		{name: "students cannot list registrations", path: path, token: getToken(t, students[0]), wantCode: http.StatusForbidden},
		{name: "unregister", method: http.MethodDelete, path: path, token: getToken(t, students[1])},
		{name: "unregister twice", method: http.MethodDelete, path: path, token: getToken(t, students[1]), wantCode: http.StatusNotFound},
		{name: "a seat freed up", method: http.MethodPost, path: path, token: getToken(t, students[2]), wantCode: http.StatusCreated},
		{
			name: "capacity below registrations", method: http.MethodPut, path: "/api/events/" + e.ID, token: facultyToken,
			body: []byte(`{"max_participants": 1}`), wantCode: http.StatusBadRequest,
		},
	})

	rec = do(http.MethodGet, path, facultyToken)
	var regs []event.Registration
	decode(t, rec, &regs)
	if assert.Len(t, regs, 2) {
		assert.Equal(t, students[0].ID, regs[0].UserID)
		assert.Equal(t, students[2].ID, regs[1].UserID)
	}

	rec = do(http.MethodGet, "/api/events/"+e.ID, facultyToken)
	decode(t, rec, &e)
	assert.Equal(t, 2, e.RegistrationCount)
}
