package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/poll"
)

type formApi struct {
	svc      *poll.FormService
	validate *validator.Validate
}

func registerFormAPI(g *echo.Group, svc *poll.FormService, validate *validator.Validate) {
	api := formApi{svc: svc, validate: validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.POST("/:id/responses", api.submit)
	g.GET("/:id/responses", api.responses)
	g.DELETE("/:id", api.destroy)
}

func (api *formApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data poll.NewForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *formApi) query(ctx echo.Context) error {
	filter := new(poll.FormQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []poll.Form{})
	}
	filter.Clean()

	forms, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying forms")
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *formApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formApi) submit(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting form")
	}

	var data poll.NewResponse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResponse")
	}
	// answers are checked against the form's fields
	if err = data.Validate(f, api.validate); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), actor, f, data)
	if err != nil {
		return errors.Wrap(err, "submitting response")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *formApi) responses(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Responses(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying responses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *formApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting form")
	}
	return ctx.NoContent(http.StatusNoContent)
}
