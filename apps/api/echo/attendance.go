package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", auth)
	ag.GET("/batches", api.instructorBatches)
	ag.GET("/batches/:batch", api.batchSummary)
	ag.GET("/batches/:batch/enrollments", api.enrollments)
	ag.GET("/batches/:batch/summary", api.attendanceSummary)

	// daily sessions
	ag.POST("/batches/:batch/sessions", api.getOrCreateSession)
	ag.POST("/sessions/:session/submit", api.submitSession)
	ag.POST("/sessions/:session/reopen", api.reopenSession)
	ag.PUT("/records/:record", api.updateRecord)

	// batch-wide sheets
	ag.POST("/batches/:batch/sheet", api.getOrCreateSheet)
	ag.PUT("/sheets/:sheet", api.saveSheet)
	ag.DELETE("/sheets/:sheet", api.cancelSheet)
	ag.POST("/sheets/:sheet/submit", api.submitSheet)
	ag.POST("/sheets/:sheet/reopen", api.reopenSheet)
	ag.PUT("/entries/:entry", api.updateEntry)
}

type (
	SessionRequest struct {
		Date core.Date `json:"date"`
	}

	SummaryRequest struct {
		FromDate core.Date `query:"from_date"`
		ToDate   core.Date `query:"to_date"`
	}

	SaveSheetRequest struct {
		Notes *string `json:"notes"`
	}
)

func (api *attendanceApi) instructorBatches(ctx echo.Context) error {
	batches, err := api.svc.GetInstructorBatches(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *attendanceApi) batchSummary(ctx echo.Context) error {
	summary, err := api.svc.GetBatchSummary(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *attendanceApi) enrollments(ctx echo.Context) error {
	enrollments, err := api.svc.GetEnrollmentsForBatch(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *attendanceApi) attendanceSummary(ctx echo.Context) error {
	var query SummaryRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to SummaryRequest")
	}
	summary, err := api.svc.GetAttendanceSummary(
		ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"), query.FromDate, query.ToDate,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *attendanceApi) getOrCreateSession(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}
	s, err := api.svc.GetOrCreateSession(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"), data.Date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) submitSession(ctx echo.Context) error {
	s, err := api.svc.SubmitSession(ctx.Request().Context(), getContextUser(ctx), ctx.Param("session"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) reopenSession(ctx echo.Context) error {
	s, err := api.svc.ReopenSession(ctx.Request().Context(), getContextUser(ctx), ctx.Param("session"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) updateRecord(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Mark")
	}
	rec, err := api.svc.UpdateAttendanceRecord(ctx.Request().Context(), getContextUser(ctx), ctx.Param("record"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) getOrCreateSheet(ctx echo.Context) error {
	sh, err := api.svc.GetOrCreateSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("batch"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *attendanceApi) saveSheet(ctx echo.Context) error {
	var data SaveSheetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveSheetRequest")
	}
	sh, err := api.svc.SaveSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"), data.Notes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *attendanceApi) cancelSheet(ctx echo.Context) error {
	if err := api.svc.CancelSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) submitSheet(ctx echo.Context) error {
	sh, err := api.svc.SubmitSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *attendanceApi) reopenSheet(ctx echo.Context) error {
	sh, err := api.svc.ReopenSheet(ctx.Request().Context(), getContextUser(ctx), ctx.Param("sheet"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sh)
}

func (api *attendanceApi) updateEntry(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Mark")
	}
	mark, err := api.svc.UpdateAttendanceEntry(ctx.Request().Context(), getContextUser(ctx), ctx.Param("entry"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, mark)
}
