package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/user"
)

func Test_complaintApi(t *testing.T) {
	setup(t)

	student := createUser(t, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	neighbour := createUser(t, "Neighbour", "neighbour", "neighbour@test.cd", "", []string{user.RoleStudent}, true)
	warden := createUser(t, "Warden", "warden", "warden@test.cd", "", []string{user.RoleAdminWarden}, true)
	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	studentToken, wardenToken := getToken(t, student), getToken(t, warden)

	nc := func(hostel, room, category string) []byte {
		return marshalObj(t, complaint.NewComplaint{Hostel: hostel, Room: room, Category: category, Description: "The light is broken"})
	}

	runHTTPTests(t, []httpTest{
		{name: "faculty cannot file", method: http.MethodPost, path: "/api/complaints", token: getToken(t, faculty), body: nc("A", "1", "electrical"), wantCode: http.StatusForbidden},
		{name: "unknown category", method: http.MethodPost, path: "/api/complaints", token: studentToken, body: nc("A", "1", "lol"), wantCode: http.StatusBadRequest},
		{
			name: "no room", method: http.MethodPost, path: "/api/complaints", token: studentToken, body: nc("", "", "electrical"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"room": "hostel and room are required"}),
		},
	})

	rec := do(http.MethodPost, "/api/complaints", studentToken, nc("Block A", "12", "Electrical"))
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var c complaint.Complaint
	decode(t, rec, &c)
	assert.Equal(t, complaint.StatusPending, c.Status)
	assert.Equal(t, complaint.CategoryElectrical, c.Category)

	path := "/api/complaints/" + c.ID
	status := func(s string) []byte { return marshalObj(t, complaint.UpdateStatus{Status: s, Resolution: "Bulb replaced"}) }

	runHTTPTests(t, []httpTest{
		{name: "others cannot see it", path: path, token: getToken(t, neighbour), wantCode: http.StatusNotFound},
		{name: "students only list their own", path: "/api/complaints", token: getToken(t, neighbour), wantData: marshalList(t)},
		{name: "upvote", method: http.MethodPost, path: path + "/upvote", token: getToken(t, neighbour)},
		{name: "upvote twice", method: http.MethodPost, path: path + "/upvote", token: getToken(t, neighbour), wantCode: http.StatusConflict},
		{name: "students cannot update status", method: http.MethodPatch, path: path + "/status", token: studentToken, body: status("resolved"), wantCode: http.StatusForbidden},
		{name: "cannot skip in_progress", method: http.MethodPatch, path: path + "/status", token: wardenToken, body: status("resolved"), wantCode: http.StatusBadRequest},
		{name: "in progress", method: http.MethodPatch, path: path + "/status", token: wardenToken, body: status("in_progress")},
		{name: "cannot withdraw once in progress", method: http.MethodDelete, path: path, token: studentToken, wantCode: http.StatusConflict},
		{name: "resolved", method: http.MethodPatch, path: path + "/status", token: wardenToken, body: status("resolved")},
		{name: "closed complaints take no upvotes", method: http.MethodPost, path: path + "/upvote", token: wardenToken, wantCode: http.StatusConflict},
	})

	rec = do(http.MethodGet, path, studentToken)
	decode(t, rec, &c)
	assert.Equal(t, complaint.StatusResolved, c.Status)
	assert.Equal(t, 1, c.Upvotes)
	assert.Equal(t, "Bulb replaced", c.Resolution)
	assert.NotNil(t, c.ResolvedAt)

	// the student got an email for each status change
	msgs := outbox.Messages()
	if assert.Len(t, msgs, 2) {
		assert.Equal(t, student.Email, msgs[1].To[0].Address)
	}
}
