package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
)

type batchApi struct {
	svc      *batch.Service
	validate *validator.Validate
}

func registerBatchAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *batch.Service, validate *validator.Validate) {
	api := batchApi{svc: svc, validate: validate}

	bg := g.Group("/batches", auth)
	bg.POST("", api.create)
	bg.GET("/:batch", api.retrieve)
	bg.GET("/:batch/enrollments", api.enrollments, roleMiddleware(user.BatchManagerRoles...))
	bg.POST("/:batch/enrollments", api.enroll)
	bg.POST("/:batch/instructors", api.assignInstructor)
}

func (api *batchApi) create(ctx echo.Context) error {
	var data batch.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) enrollments(ctx echo.Context) error {
	enrollments, err := api.svc.Enrollments(ctx.Request().Context(), ctx.Param("batch"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *batchApi) enroll(ctx echo.Context) error {
	var data batch.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *batchApi) assignInstructor(ctx echo.Context) error {
	var data batch.NewInstructor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.AssignInstructor(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
