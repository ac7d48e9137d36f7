package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/skill"
)

type skillApi struct {
	svc      *skill.Service
	validate *validator.Validate
}

type CapacityRequest struct {
	MaxLearners int `json:"max_learners" validate:"required,min=1,max=500"`
}

func registerSkillAPI(g *echo.Group, svc *skill.Service, validate *validator.Validate) {
	api := skillApi{svc: svc, validate: validate}

	g.POST("", api.offer)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.POST("/:id/enroll", api.enroll)
	g.POST("/:id/leave", api.leave)
	g.PUT("/:id/capacity", api.setCapacity)
	g.POST("/:id/close", api.close)
	g.POST("/:id/ratings", api.rate)
	g.DELETE("/:id", api.destroy)
}

func (api *skillApi) offer(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data skill.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Offer(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "offering course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *skillApi) query(ctx echo.Context) error {
	filter := new(skill.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []skill.Course{})
	}
	filter.Clean()

	courses, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *skillApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) enroll(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Enroll(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) leave(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Leave(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "leaving course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) setCapacity(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data CapacityRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CapacityRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	c, err := api.svc.SetCapacity(ctx.Request().Context(), actor, ctx.Param("id"), data.MaxLearners)
	if err != nil {
		return errors.Wrap(err, "setting capacity")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) close(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Close(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) rate(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data skill.NewRating
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRating")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Rate(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "rating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *skillApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
