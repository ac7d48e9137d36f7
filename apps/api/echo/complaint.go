package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/complaint"
)

type complaintApi struct {
	svc      *complaint.Service
	validate *validator.Validate
}

func registerComplaintAPI(g *echo.Group, svc *complaint.Service, validate *validator.Validate) {
	api := complaintApi{svc: svc, validate: validate}

	g.POST("", api.file)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.PATCH("/:id/status", api.updateStatus)
	g.POST("/:id/upvote", api.upvote)
	g.DELETE("/:id", api.destroy)
}

func (api *complaintApi) file(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data complaint.NewComplaint
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComplaint")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.File(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "filing complaint")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *complaintApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := new(complaint.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []complaint.Complaint{})
	}
	filter.Clean()

	res, err := api.svc.Query(ctx.Request().Context(), actor, filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying complaints")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *complaintApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting complaint")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *complaintApi) updateStatus(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data complaint.UpdateStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.UpdateStatus(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating complaint status")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *complaintApi) upvote(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Upvote(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "upvoting complaint")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *complaintApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting complaint")
	}
	return ctx.NoContent(http.StatusNoContent)
}
