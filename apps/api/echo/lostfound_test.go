package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/user"
)

func newImageRequest(t *testing.T, path, token, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="wallet"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart() failed: %v", err)
	}
	_, _ = part.Write(data)
	if err = w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func Test_lostFoundApi(t *testing.T) {
	setup(t)

	reporter := createUser(t, "Reporter", "reporter", "reporter@test.cd", "", []string{user.RoleStudent}, true)
	finder := createUser(t, "Finder", "finder", "finder@test.cd", "", []string{user.RoleStudent}, true)
	reporterToken, finderToken := getToken(t, reporter), getToken(t, finder)

	runHTTPTests(t, []httpTest{
		{name: "invalid kind", method: http.MethodPost, path: "/api/lost-found", token: reporterToken, body: []byte(`{"kind": "stolen", "title": "Wallet", "location": "Library"}`), wantCode: http.StatusBadRequest},
	})

	rec := do(http.MethodPost, "/api/lost-found", reporterToken, marshalObj(t, lostfound.NewItem{Kind: "LOST", Title: "Wallet", Location: "Library"}))
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var item lostfound.Item
	decode(t, rec, &item)
	assert.Equal(t, lostfound.KindLost, item.Kind)
	assert.Equal(t, lostfound.StatusOpen, item.Status)

	path := "/api/lost-found/" + item.ID
	png := append([]byte("\x89PNG\r\n\x1a\n"), "wallet"...)

	t.Run("image upload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, newImageRequest(t, path+"/image", finderToken, "image/png", png))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, newImageRequest(t, path+"/image", reporterToken, "text/plain", []byte("txt")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// the declared type is ignored
		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, newImageRequest(t, path+"/image", reporterToken, "image/png", []byte("<script>alert(1)</script>")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		app.ServeHTTP(rec, newImageRequest(t, path+"/image", reporterToken, "application/octet-stream", png))
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var updated lostfound.Item
		decode(t, rec, &updated)
		if assert.True(t, strings.HasPrefix(updated.ImageURL, conf.FrontendBaseURL+"/files/lost-found/"+item.ID), updated.ImageURL) {
			key := strings.TrimPrefix(updated.ImageURL, conf.FrontendBaseURL+"/files/")
			f, ok := files.Get(key)
			if assert.True(t, ok) {
				assert.Equal(t, "image/png", f.ContentType)
				assert.Equal(t, png, f.Data)
			}
		}
	})

	runHTTPTests(t, []httpTest{
		{name: "own item", method: http.MethodPost, path: path + "/claim", token: reporterToken, wantCode: http.StatusConflict},
		{name: "claim", method: http.MethodPost, path: path + "/claim", token: finderToken},
		{name: "claim twice", method: http.MethodPost, path: path + "/claim", token: finderToken, wantCode: http.StatusConflict},
		{name: "only the reporter resolves", method: http.MethodPost, path: path + "/resolve", token: finderToken, wantCode: http.StatusForbidden},
		{name: "resolve", method: http.MethodPost, path: path + "/resolve", token: reporterToken},
		{name: "filter by status", path: "/api/lost-found?status=open", token: finderToken, wantData: marshalList(t)},
		{name: "delete", method: http.MethodDelete, path: path, token: reporterToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: path, token: reporterToken, wantCode: http.StatusNotFound},
	})
}
