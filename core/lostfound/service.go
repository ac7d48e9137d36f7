package lostfound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	Topic       = "lost-found"
	KindUpdated = "lostfound.updated"
)

var (
	ErrNotFound       = core.NewNotFoundError("item not found")
	ErrNotOpen        = core.NewConflictError("item is no longer open")
	ErrOwnItem        = core.NewConflictError("you cannot claim an item you reported")
	ErrInvalidImage   = errors.New("only jpeg, png, gif and webp images are allowed")
	allowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

type (
	Repository interface {
		CreateItem(ctx context.Context, item Item, exec ...core.DBExecutor) (Item, error)
		QueryItems(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Item, error)
		GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (Item, error)
		// LockItem is GetItem, holding a write lock on the row until the transaction ends.
		LockItem(ctx context.Context, id string, exec core.DBExecutor) (Item, error)
		UpdateItem(ctx context.Context, item Item, exec ...core.DBExecutor) (Item, error)
		DeleteItem(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		files    core.FileStore
		notifier core.Notifier
	}
)

func NewService(repo Repository, tx core.Transactor, files core.FileStore, notifier core.Notifier) *Service {
	return &Service{repo: repo, tx: tx, files: files, notifier: notifier}
}

func (svc *Service) Report(ctx context.Context, actor user.User, ni NewItem) (Item, error) {
	now := time.Now().UTC()
	item := Item{
		Kind:        ni.Kind,
		Title:       ni.Title,
		Description: ni.Description,
		Location:    ni.Location,
		Contact:     ni.Contact,
		Status:      StatusOpen,
		ReporterID:  actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.Contact == "" {
		item.Contact = actor.Email
	}
	item, err := svc.repo.CreateItem(ctx, item)
	if err != nil {
		return Item{}, errors.Wrap(err, "creating item")
	}
	svc.publish(ctx, item)
	return item, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Item, error) {
	ordering = core.FilterOrderings(ordering, "title", "kind", "status", "location", "created_at", "updated_at")
	return svc.repo.QueryItems(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItem(ctx, id)
}

// Claim marks an open item as claimed by actor.
// Claiming a "lost" item means actor found it; claiming a "found" item means it is actor's.
func (svc *Service) Claim(ctx context.Context, actor user.User, id string) (Item, error) {
	var item Item
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if item, err = svc.repo.LockItem(ctx, id, exec); err != nil {
			return err
		}
		if item.ReporterID == actor.ID {
			return ErrOwnItem
		}
		if item.Status != StatusOpen {
			return ErrNotOpen
		}
		item.Status = StatusClaimed
		item.ClaimantID = actor.ID
		item.UpdatedAt = time.Now().UTC()
		item, err = svc.repo.UpdateItem(ctx, item, exec)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	svc.publish(ctx, item)
	return item, nil
}

// Resolve closes an item. Only its reporter or an admin may do so.
func (svc *Service) Resolve(ctx context.Context, actor user.User, id string) (Item, error) {
	var item Item
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if item, err = svc.repo.LockItem(ctx, id, exec); err != nil {
			return err
		}
		if !(actor.IsAdmin() || item.ReporterID == actor.ID) {
			return core.ErrPermissionDenied
		}
		if item.Status == StatusResolved {
			return ErrNotOpen
		}
		item.Status = StatusResolved
		item.UpdatedAt = time.Now().UTC()
		item, err = svc.repo.UpdateItem(ctx, item, exec)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	svc.publish(ctx, item)
	return item, nil
}

// sniffImage detects the image type from the upload's first bytes; the declared type is not trusted.
// It returns a reader replaying the whole upload.
func sniffImage(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, errors.Wrap(err, "reading image")
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// AttachImage uploads the picture of an item. Only its reporter or an admin may do so.
// The image is stored first, then set on the locked item so a concurrent Claim or Resolve is kept.
func (svc *Service) AttachImage(ctx context.Context, actor user.User, id string, r io.Reader) (Item, error) {
	item, err := svc.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !(actor.IsAdmin() || item.ReporterID == actor.ID) {
		return Item{}, core.ErrPermissionDenied
	}
	ct, r, err := sniffImage(r)
	if err != nil {
		return Item{}, err
	}
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return Item{}, core.NewValidationError(nil, core.FieldError{Field: "image", Error: ErrInvalidImage.Error()})
	}

	key := path.Join("lost-found", fmt.Sprintf("%s-%d%s", item.ID, time.Now().UnixNano(), ext))
	url, err := svc.files.Put(ctx, key, ct, r)
	if err != nil {
		return Item{}, errors.Wrap(err, "storing image")
	}

	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if item, err = svc.repo.LockItem(ctx, id, exec); err != nil {
			return err
		}
		if !(actor.IsAdmin() || item.ReporterID == actor.ID) {
			return core.ErrPermissionDenied
		}
		item.ImageURL = url
		item.UpdatedAt = time.Now().UTC()
		if item, err = svc.repo.UpdateItem(ctx, item, exec); err != nil {
			return errors.Wrap(err, "updating item")
		}
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	svc.publish(ctx, item)
	return item, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	item, err := svc.repo.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || item.ReporterID == actor.ID) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteItem(ctx, id)
}

func (svc *Service) publish(ctx context.Context, item Item) {
	svc.notifier.Publish(ctx, core.Notification{Kind: KindUpdated, Topic: Topic, Data: item})
}
