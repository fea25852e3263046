package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/user"
)

const contextOperatorKey = "operator"

var (
	errOperatorNotFoundInCtx = errors.New("operator object not found in echo.Context")
	errNoPermsToSetRoles     = "not enough rights to set these roles"
)

type operatorApi struct {
	svc *user.Service
}

func registerOperatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := operatorApi{svc: svc}

	og := g.Group("/operators", jwt)
	og.GET("", api.query, adminMiddleware())
	og.POST("", api.create, adminMiddleware())
	og.DELETE("", api.destroyMultiple, adminMiddleware())
	og.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := og.Group("/:id", api.selfOrAdminMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// selfOrAdminMiddleware loads the operator named by `:id`; only admins may load someone else.
func (api *operatorApi) selfOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx, api.svc)
		if err != nil {
			return err
		}
		if ctx.Param("id") != ctxUsr.ID && !ctxUsr.IsAdmin() {
			return errHttpNotFound
		}
		usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding operator by ID")
		}
		ctx.Set(contextOperatorKey, usr)
		return next(ctx)
	}
}

func contextOperator(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextOperatorKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errOperatorNotFoundInCtx, "retrieving object from context")
	}
	return usr, nil
}

// Handlers

func (api *operatorApi) query(ctx echo.Context) error {
	q := new(listing.Query)
	if err := ctx.Bind(q); err != nil {
		return errors.Wrap(err, "binding to Query")
	}
	if err := q.Validate(); err != nil {
		return err
	}

	view, err := api.svc.List(ctx.Request().Context(), *q)
	if err != nil {
		return errors.Wrap(err, "listing operators")
	}
	return ctx.JSON(http.StatusOK, listEnvelope(view))
}

func (api *operatorApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	// new operators join the creator's institution unless told otherwise
	if data.InstitutionCode == "" {
		data.InstitutionCode = ctxUsr.Institution.Code
		data.InstitutionName = ctxUsr.Institution.Name
		data.InstitutionEmail = ctxUsr.Institution.Email
	}
	if err := data.Validate(ctx.Request().Context(), api.svc); err != nil {
		return err
	}

	// ctxUser cannot grant a role above their own
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating operator")
	}
	return ctx.JSON(http.StatusCreated, envelope{Data: usr})
}

func (api *operatorApi) retrieve(ctx echo.Context) error {
	usr, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, envelope{Data: usr})
}

func (api *operatorApi) update(ctx echo.Context) error {
	usr, err := contextOperator(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	// IsActive, Roles, Username and Email are admin only
	if !ctxUsr.IsAdmin() && (data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "") {
		return errHttpForbidden
	}

	if err := data.Validate(ctx.Request().Context(), usr, api.svc); err != nil {
		return err
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating operator")
	}
	return ctx.JSON(http.StatusOK, envelope{Data: usr})
}

func (api *operatorApi) destroy(ctx echo.Context) error {
	usr, err := contextOperator(ctx)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting operator")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *operatorApi) destroyMultiple(ctx echo.Context) error {
	var query destroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to destroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if listing.NewSelection(query.IDs...).Has(ctxUsr.ID) {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting operators")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *operatorApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, envelope{Data: user.Roles})
}
