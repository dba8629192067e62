package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/site"
	"github.com/trezcool/masomo-lms/core/user"
)

type pagesApi struct {
	svc *site.Service
}

func registerPagesAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *site.Service) {
	api := pagesApi{svc: svc}

	pg := g.Group("/pages")
	pg.GET("/about", api.about)
	pg.GET("/contact", api.contact)
	pg.GET("/placement-test", api.placementLanding)

	admin := roleMiddleware(user.AdminRoles...)
	pg.PUT("/about", api.updateAbout, auth, admin)
	pg.PUT("/contact", api.updateContact, auth, admin)
}

func (api *pagesApi) about(ctx echo.Context) error {
	a, err := api.svc.AboutPage(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == site.ErrPageDisabled {
			ctx.Response().Header().Set(echo.HeaderLocation, site.DisabledPageLocation)
		}
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *pagesApi) contact(ctx echo.Context) error {
	c, err := api.svc.ContactPage(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *pagesApi) placementLanding(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.PlacementLanding())
}

func (api *pagesApi) updateAbout(ctx echo.Context) error {
	var data site.About
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to About")
	}
	a, err := api.svc.UpdateAbout(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *pagesApi) updateContact(ctx echo.Context) error {
	var data site.Contact
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Contact")
	}
	c, err := api.svc.UpdateContact(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}
