package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/services/realtime"
)

func registerRealtimeAPI(g *echo.Group, hub *realtime.Hub) {
	// GET /api/ws?token=<jwt>&topics=polls,events
	g.GET("", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		topics := realtime.Topics(usr.ID, strings.Split(ctx.QueryParam("topics"), ","))
		return errors.Wrap(hub.Serve(ctx.Response(), ctx.Request(), usr.ID, topics), "serving websocket")
	})
}
