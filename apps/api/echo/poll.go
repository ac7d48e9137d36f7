package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/poll"
)

type pollApi struct {
	svc      *poll.Service
	validate *validator.Validate
}

func registerPollAPI(g *echo.Group, svc *poll.Service, validate *validator.Validate) {
	api := pollApi{svc: svc, validate: validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/:id", api.retrieve)
	g.POST("/:id/vote", api.vote)
	g.GET("/:id/ballot", api.myBallot)
	g.GET("/:id/results", api.results)
	g.POST("/:id/close", api.close)
	g.DELETE("/:id", api.destroy)
}

func (api *pollApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data poll.NewPoll
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPoll")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating poll")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *pollApi) query(ctx echo.Context) error {
	filter := new(poll.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []poll.Poll{})
	}
	filter.Clean()

	polls, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying polls")
	}
	return ctx.JSON(http.StatusOK, polls)
}

func (api *pollApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting poll")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *pollApi) vote(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data poll.NewBallot
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBallot")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Vote(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "voting")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *pollApi) myBallot(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	b, err := api.svc.MyBallot(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting ballot")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *pollApi) results(ctx echo.Context) error {
	res, err := api.svc.Results(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting results")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *pollApi) close(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Close(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing poll")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *pollApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting poll")
	}
	return ctx.NoContent(http.StatusNoContent)
}
