package lostfound_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/user"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

// hookedFiles runs onPut while the upload is in flight.
type hookedFiles struct {
	onPut       func()
	contentType string
	data        []byte
}

func (f *hookedFiles) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.contentType, f.data = contentType, data
	if f.onPut != nil {
		f.onPut()
	}
	return "https://files.test/" + key, nil
}

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 600)...)

func newService(files core.FileStore) *lostfound.Service {
	db := inmemdb.Open()
	return lostfound.NewService(inmemdb.NewLostFoundRepository(db), inmemdb.NewTransactor(db), files, core.NopNotifier{})
}

func TestService_AttachImage_keepsConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	files := &hookedFiles{}
	svc := newService(files)
	reporter := user.User{ID: "reporter", Email: "reporter@test.cd"}
	finder := user.User{ID: "finder"}

	item, err := svc.Report(ctx, reporter, lostfound.NewItem{Kind: lostfound.KindFound, Title: "Keys", Location: "Gym"})
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	files.onPut = func() {
		_, err := svc.Claim(ctx, finder, item.ID)
		assert.NoError(t, err)
	}

	got, err := svc.AttachImage(ctx, reporter, item.ID, bytes.NewReader(pngImage))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, lostfound.StatusClaimed, got.Status)
	assert.Equal(t, finder.ID, got.ClaimantID)
	assert.NotEmpty(t, got.ImageURL)

	// the whole upload is stored, under the sniffed type
	assert.Equal(t, "image/png", files.contentType)
	assert.Equal(t, pngImage, files.data)
}

func TestService_AttachImage_rejects(t *testing.T) {
	ctx := context.Background()
	svc := newService(&hookedFiles{})
	reporter := user.User{ID: "reporter"}

	item, err := svc.Report(ctx, reporter, lostfound.NewItem{Kind: lostfound.KindLost, Title: "Wallet", Location: "Library"})
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}

	tests := []struct {
		name    string
		actor   user.User
		id      string
		data    []byte
		wantErr error
	}{
		{name: "not the reporter", actor: user.User{ID: "someone"}, id: item.ID, data: pngImage, wantErr: core.ErrPermissionDenied},
		{name: "unknown item", actor: reporter, id: "lol", data: pngImage, wantErr: lostfound.ErrNotFound},
		{name: "not an image", actor: reporter, id: item.ID, data: []byte("<html><body>hi</body></html>")},
		{name: "empty", actor: reporter, id: item.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AttachImage(ctx, tt.actor, tt.id, bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.IsType(t, &core.ValidationError{}, err)
			}
		})
	}
}
