package core_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	appfs "github.com/trezcool/campus/fs"
)

func TestParseEmailTemplates(t *testing.T) {
	t.Run("missing base layout", func(t *testing.T) {
		fsys := fstest.MapFS{
			"email/welcome.txt": {Data: []byte(`{{ define "content" }}hi{{ end }}`)},
		}
		assert.Error(t, core.ParseEmailTemplates(fsys, "email", "", true))
	})

	t.Run("empty dir", func(t *testing.T) {
		assert.Error(t, core.ParseEmailTemplates(fstest.MapFS{}, "email", "", true))
	})

	if err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, "https://campus.test", true); err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}

	tests := []struct {
		name     string
		data     map[string]interface{}
		wantText string
	}{
		{
			name:     "password_reset",
			data:     map[string]interface{}{"Name": "Hero", "UID": "uid", "Token": "tok"},
			wantText: "https://campus.test/password-reset/uid/tok",
		},
		{
			name: "complaint_status",
			data: map[string]interface{}{
				"Name": "Hero", "ID": "c1", "Category": "plumbing", "Hostel": "H1", "Room": "12",
				"Status": "in progress", "Resolution": "",
			},
			wantText: "in progress",
		},
		{
			name:     "event_registration",
			data:     map[string]interface{}{"Name": "Hero", "ID": "e1", "Title": "Hackathon", "Venue": "Hall", "StartsAt": "Sat"},
			wantText: "Hackathon",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := core.EmailMessage{TemplateName: tt.name, TemplateData: tt.data}
			if err := msg.Render(); err != nil {
				t.Fatalf("Render() failed: %v", err)
			}
			assert.Contains(t, msg.TextContent, "Hello Hero,")
			assert.Contains(t, msg.TextContent, tt.wantText)
			assert.NotEmpty(t, msg.HTMLContent)
		})
	}
}
