package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
)

const contextMemberKey = "object"

var errMemberNotFoundInCtx = errors.New("member object not found in echo.Context")

type memberApi struct {
	svc *directory.Service
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *directory.Service) {
	api := memberApi{svc: svc}

	mg := g.Group("/members", jwt)
	mg.GET("", api.query)
	mg.POST("", api.create, adminMiddleware(user.RoleSecretary))
	mg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := mg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware(user.RoleSecretary))
	dg.DELETE("", api.destroy, adminMiddleware())
}

// objectMiddleware loads the member named by the `:id` path param.
func (api *memberApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding member by ID")
		}
		ctx.Set(contextMemberKey, m)
		return next(ctx)
	}
}

func contextMember(ctx echo.Context) (directory.Member, error) {
	m, ok := ctx.Get(contextMemberKey).(directory.Member)
	if !ok {
		return directory.Member{}, errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}
	return m, nil
}

// Handlers

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(directory.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Validate(); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	view, err := api.svc.List(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing members")
	}
	return ctx.JSON(http.StatusOK, listEnvelope(view))
}

func (api *memberApi) create(ctx echo.Context) error {
	var data directory.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(ctx.Request().Context(), api.svc); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, envelope{Data: m})
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, envelope{Data: m})
}

func (api *memberApi) update(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}

	var data directory.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err := data.Validate(ctx.Request().Context(), m, api.svc); err != nil {
		return err
	}

	m, err = api.svc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, envelope{Data: m})
}

func (api *memberApi) destroy(ctx echo.Context) error {
	m, err := contextMember(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// destroyMultiple deletes the selected rows of a list page: `DELETE /v1/members?id=..&id=..`.
func (api *memberApi) destroyMultiple(ctx echo.Context) error {
	var query destroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to destroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	return ctx.NoContent(http.StatusNoContent)
}
