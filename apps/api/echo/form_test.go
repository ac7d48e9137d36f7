package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/user"
)

func Test_formApi(t *testing.T) {
	setup(t)

	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	student := createUser(t, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	facultyToken, studentToken := getToken(t, faculty), getToken(t, student)

	nf := poll.NewForm{
		Title: " Hackathon sign-up ",
		Fields: []poll.Field{
			{Name: "Team", Label: "Team name", Type: "text", Required: true},
			{Name: "size", Label: "Team size", Type: "number"},
			{Name: "track", Label: "Track", Type: "choice", Required: true, Choices: []string{"Web", "Systems"}},
			{Name: "contact", Label: "Contact", Type: "email"},
		},
	}
	dupFields := nf
	dupFields.Fields = []poll.Field{nf.Fields[0], nf.Fields[0]}
	oneChoice := nf
	oneChoice.Fields = []poll.Field{{Name: "track", Label: "Track", Type: "choice", Choices: []string{"Web"}}}

	runHTTPTests(t, []httpTest{
		{name: "students cannot create", method: http.MethodPost, path: "/api/forms", token: studentToken, body: marshalObj(t, nf), wantCode: http.StatusForbidden},
		{name: "no fields", method: http.MethodPost, path: "/api/forms", token: facultyToken, body: []byte(`{"title": "Empty"}`), wantCode: http.StatusBadRequest},
		{
			name: "duplicate field", method: http.MethodPost, path: "/api/forms", token: facultyToken, body: marshalObj(t, dupFields),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"fields[1].name": "duplicate field name team"}),
		},
		{
			name: "one choice", method: http.MethodPost, path: "/api/forms", token: facultyToken, body: marshalObj(t, oneChoice),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"fields[0].choices": "a choice field needs at least 2 choices"}),
		},
	})

	rec := do(http.MethodPost, "/api/forms", facultyToken, marshalObj(t, nf))
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var f poll.Form
	decode(t, rec, &f)
	assert.Equal(t, "Hackathon sign-up", f.Title)
	assert.Equal(t, "team", f.Fields[0].Name)
	assert.Nil(t, f.Fields[0].Choices)

	path := "/api/forms/" + f.ID
	answers := func(a map[string]string) []byte { return marshalObj(t, poll.NewResponse{Answers: a}) }

	runHTTPTests(t, []httpTest{
		{
			name: "invalid answers", method: http.MethodPost, path: path + "/responses", token: studentToken,
			body:     answers(map[string]string{"size": "four", "track": "AI", "contact": "nope", "extra": "x"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"team":    "this field is required",
				"size":    "must be a number",
				"track":   "must be one of the listed choices",
				"contact": "must be a valid email address",
				"extra":   "unknown field",
			}),
		},
		{name: "submit", method: http.MethodPost, path: path + "/responses", token: studentToken, body: answers(map[string]string{"team": " Gophers ", "track": "Systems", "size": " "}), wantCode: http.StatusCreated},
		{
			name: "submit twice", method: http.MethodPost, path: path + "/responses", token: studentToken, body: answers(map[string]string{"team": "Gophers", "track": "Web"}),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: poll.ErrAlreadyResponded.Error()}),
		},
		{name: "responses are private", path: path + "/responses", token: studentToken, wantCode: http.StatusForbidden},
		{name: "unknown form", method: http.MethodPost, path: "/api/forms/lol/responses", token: studentToken, body: answers(nil), wantCode: http.StatusNotFound},
	})

	rec = do(http.MethodGet, path+"/responses", facultyToken)
	var responses []poll.Response
	decode(t, rec, &responses)
	if assert.Len(t, responses, 1) {
		assert.Equal(t, student.ID, responses[0].UserID)
		assert.Equal(t, map[string]string{"team": "Gophers", "track": "Systems"}, responses[0].Answers)
	}

	runHTTPTests(t, []httpTest{
		{name: "open forms", path: "/api/forms?open=true", token: studentToken, wantData: marshalList(t, f)},
		{name: "only the creator deletes", method: http.MethodDelete, path: path, token: studentToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: path, token: facultyToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: path, token: facultyToken, wantCode: http.StatusNotFound},
	})
}
