package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/lostfound"
)

const maxImageSize = 5 << 20 // 5 MiB

type lostFoundApi struct {
	svc      *lostfound.Service
	validate *validator.Validate
}

func registerLostFoundAPI(g *echo.Group, svc *lostfound.Service, validate *validator.Validate) {
	api := lostFoundApi{svc: svc, validate: validate}

	g.POST("", api.report)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.POST("/:id/claim", api.claim)
	g.POST("/:id/resolve", api.resolve)
	g.POST("/:id/image", api.uploadImage)
	g.DELETE("/:id", api.destroy)
}

func (api *lostFoundApi) report(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data lostfound.NewItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	item, err := api.svc.Report(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "reporting item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *lostFoundApi) query(ctx echo.Context) error {
	filter := new(lostfound.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lostfound.Item{})
	}
	filter.Clean()

	items, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying items")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *lostFoundApi) retrieve(ctx echo.Context) error {
	item, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *lostFoundApi) claim(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	item, err := api.svc.Claim(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "claiming item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *lostFoundApi) resolve(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	item, err := api.svc.Resolve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "resolving item")
	}
	return ctx.JSON(http.StatusOK, item)
}

// uploadImage expects a multipart form with an "image" file.
func (api *lostFoundApi) uploadImage(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("image")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "this field is required"})
	}
	if fh.Size > maxImageSize {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "the image must not exceed 5MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded image")
	}
	defer f.Close()

	item, err := api.svc.AttachImage(ctx.Request().Context(), actor, ctx.Param("id"), f)
	if err != nil {
		return errors.Wrap(err, "attaching image")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *lostFoundApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting item")
	}
	return ctx.NoContent(http.StatusNoContent)
}
