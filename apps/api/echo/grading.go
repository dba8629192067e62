package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/grading"
)

type gradingApi struct {
	svc *grading.Service
}

func registerGradingAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *grading.Service) {
	api := gradingApi{svc: svc}

	gg := g.Group("/grading", auth)
	gg.GET("/batches", api.instructorBatches)
	gg.GET("/batches/:batch/students", api.students)
	gg.POST("/batches/:batch/sheet", api.getOrCreateSheet)
	gg.GET("/sheets/:sheet", api.retrieve)
	gg.PUT("/sheets/:sheet", api.save)
	gg.POST("/sheets/:sheet/submit", api.submit)
	gg.POST("/sheets/:sheet/cancel", api.cancel)
}

func (api *gradingApi) instructorBatches(ctx echo.Context) error {
	batches, err := api.svc.GetBatchesForCurrentInstructor(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *gradingApi) students(ctx echo.Context) error {
	students, err := api.svc.GetEnrolledStudents(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *gradingApi) getOrCreateSheet(ctx echo.Context) error {
	sh, err := api.svc.GetOrCreateGradeSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *gradingApi) retrieve(ctx echo.Context) error {
	sh, err := api.svc.GetGradeSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *gradingApi) save(ctx echo.Context) error {
	var data grading.SheetUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SheetUpdate")
	}
	sh, err := api.svc.SaveGradeSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *gradingApi) submit(ctx echo.Context) error {
	sh, err := api.svc.SubmitGradeSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *gradingApi) cancel(ctx echo.Context) error {
	sh, err := api.svc.CancelGradeSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}
