package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/user"
)

type announcementApi struct {
	svc     *announcement.Service
	userSvc *user.Service
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *announcement.Service, userSvc *user.Service) {
	api := announcementApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.query)
	ag.POST("", api.publish, adminMiddleware(user.RoleSecretary))
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
}

func (api *announcementApi) query(ctx echo.Context) error {
	q := new(listing.Query)
	if err := ctx.Bind(q); err != nil {
		return errors.Wrap(err, "binding to Query")
	}
	if err := q.Validate(); err != nil {
		return err
	}

	view, err := api.svc.List(ctx.Request().Context(), *q)
	if err != nil {
		return errors.Wrap(err, "listing announcements")
	}
	return ctx.JSON(http.StatusOK, listEnvelope(view))
}

func (api *announcementApi) publish(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	author, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	a, err := api.svc.Publish(ctx.Request().Context(), data, author)
	if err != nil {
		return errors.Wrap(err, "publishing announcement")
	}
	return ctx.JSON(http.StatusCreated, envelope{Data: a})
}

func (api *announcementApi) destroyMultiple(ctx echo.Context) error {
	var query destroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to destroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting announcements")
	}
	return ctx.NoContent(http.StatusNoContent)
}
