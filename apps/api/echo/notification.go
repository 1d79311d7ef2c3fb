package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service) {
	api := notificationApi{svc: svc}

	g.GET("/notifications", api.listOwn, jwt)
}

func (api *notificationApi) listOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notifs, err := api.svc.ListForUser(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}
