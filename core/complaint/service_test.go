package complaint_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	logsvc "github.com/trezcool/campus/services/logger"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

type noUsers struct{}

func (noUsers) GetByID(string) (user.User, error) { return user.User{}, user.ErrNotFound }

func newService() *complaint.Service {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	db := inmemdb.Open()
	return complaint.NewService(
		inmemdb.NewComplaintRepository(db),
		inmemdb.NewTransactor(db),
		noUsers{},
		emailsvc.NewOutbox(conf, logger),
		core.NopNotifier{},
		logger,
	)
}

// A withdrawal racing a status change must not delete a complaint the warden already took up.
func TestService_Delete_racesUpdateStatus(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	student := user.User{ID: "student", Roles: []string{user.RoleStudent}, Hostel: "H1", HostelRoom: "101"}
	warden := user.User{ID: "warden", Roles: []string{user.RoleAdminWarden}}

	for i := 0; i < 20; i++ {
		c, err := svc.File(ctx, student, complaint.NewComplaint{Category: "plumbing", Description: "Leaking tap"})
		if err != nil {
			t.Fatalf("File() failed: %v", err)
		}

		var (
			wg                   sync.WaitGroup
			deleteErr, updateErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			deleteErr = svc.Delete(ctx, student, c.ID)
		}()
		go func() {
			defer wg.Done()
			_, updateErr = svc.UpdateStatus(ctx, warden, c.ID, complaint.UpdateStatus{Status: complaint.StatusInProgress})
		}()
		wg.Wait()

		if deleteErr == nil {
			assert.Equal(t, complaint.ErrNotFound, updateErr)
		} else {
			assert.Equal(t, complaint.ErrNotPending, deleteErr)
			assert.NoError(t, updateErr)
			got, err := svc.Get(ctx, student, c.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, complaint.StatusInProgress, got.Status)
			}
		}
	}
}

func TestService_Delete(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	student := user.User{ID: "student", Roles: []string{user.RoleStudent}, Hostel: "H1", HostelRoom: "101"}

	c, err := svc.File(ctx, student, complaint.NewComplaint{Category: "internet", Description: "No wifi"})
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}

	assert.Equal(t, core.ErrPermissionDenied, svc.Delete(ctx, user.User{ID: "other", Roles: []string{user.RoleStudent}}, c.ID))
	assert.NoError(t, svc.Delete(ctx, student, c.ID))
	assert.Equal(t, complaint.ErrNotFound, svc.Delete(ctx, student, c.ID))
}
