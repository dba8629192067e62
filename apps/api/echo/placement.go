package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/user"
)

// maxImportSize bounds the YAML files managers can upload.
const maxImportSize = 4 << 20

type placementApi struct {
	svc      *placement.Service
	validate *validator.Validate
}

func registerPlacementAPI(
	g *echo.Group,
	auth, guestLimit echo.MiddlewareFunc,
	svc *placement.Service,
	validate *validator.Validate,
) {
	api := placementApi{svc: svc, validate: validate}

	pg := g.Group("/placement")

	// guest endpoints
	gg := pg.Group("", guestLimit)
	gg.GET("/tests", api.listTests)
	gg.GET("/tests/:test", api.testData)
	gg.POST("/submissions", api.createSubmission)
	gg.POST("/submissions/:submission/answers", api.submitAnswers)
	gg.GET("/submissions/:submission/result", api.result)

	// manager endpoints
	mg := pg.Group("/manage", auth, roleMiddleware(user.PlacementManagerRoles...))
	mg.POST("/questions", api.createQuestion)
	mg.GET("/questions/:question", api.retrieveQuestion)
	mg.PUT("/questions/:question", api.updateQuestion)
	mg.GET("/tests", api.listAllTests)
	mg.POST("/tests", api.createTest)
	mg.GET("/tests/:test", api.retrieveTest)
	mg.PUT("/tests/:test", api.updateTest)
	mg.POST("/import", api.importTests)
	mg.GET("/submissions", api.listSubmissions)
	mg.GET("/submissions/:submission", api.retrieveSubmission)
}

type (
	SubmissionResponse struct {
		Submission string `json:"submission"`
	}

	SubmitAnswersRequest struct {
		// Answers is parsed leniently: a JSON array or a string holding one.
		Answers json.RawMessage `json:"answers"`
		placement.ParticipantInfo
	}

	TestDetailResponse struct {
		placement.Test
		Questions []placement.Question `json:"questions"`
	}
)

// Guest handlers

func (api *placementApi) listTests(ctx echo.Context) error {
	tests, err := api.svc.ListTests(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *placementApi) testData(ctx echo.Context) error {
	data, err := api.svc.GetTestData(ctx.Request().Context(), ctx.Param("test"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *placementApi) createSubmission(ctx echo.Context) error {
	var data placement.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	name, err := api.svc.CreateTestSubmission(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SubmissionResponse{Submission: name})
}

func (api *placementApi) submitAnswers(ctx echo.Context) error {
	var data SubmitAnswersRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswersRequest")
	}
	res, err := api.svc.SubmitTestAnswers(ctx.Request().Context(), ctx.Param("submission"), data.Answers, data.ParticipantInfo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *placementApi) result(ctx echo.Context) error {
	res, err := api.svc.GetSubmissionResult(ctx.Request().Context(), ctx.Param("submission"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// Manager handlers

func (api *placementApi) bindQuestion(ctx echo.Context) (placement.QuestionInput, error) {
	var data placement.QuestionInput
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to QuestionInput")
	}
	return data, data.Validate(api.validate)
}

func (api *placementApi) createQuestion(ctx echo.Context) error {
	data, err := api.bindQuestion(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.CreateQuestion(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *placementApi) retrieveQuestion(ctx echo.Context) error {
	q, err := api.svc.GetQuestion(ctx.Request().Context(), getContextUser(ctx), ctx.Param("question"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *placementApi) updateQuestion(ctx echo.Context) error {
	data, err := api.bindQuestion(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), getContextUser(ctx), ctx.Param("question"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *placementApi) bindTest(ctx echo.Context) (placement.TestInput, error) {
	var data placement.TestInput
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to TestInput")
	}
	return data, data.Validate(api.validate)
}

func (api *placementApi) listAllTests(ctx echo.Context) error {
	tests, err := api.svc.ListAllTests(ctx.Request().Context(), getContextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *placementApi) createTest(ctx echo.Context) error {
	data, err := api.bindTest(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.CreateTest(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *placementApi) retrieveTest(ctx echo.Context) error {
	t, questions, err := api.svc.GetTest(ctx.Request().Context(), getContextUser(ctx), ctx.Param("test"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TestDetailResponse{Test: t, Questions: questions})
}

func (api *placementApi) updateTest(ctx echo.Context) error {
	data, err := api.bindTest(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.UpdateTest(ctx.Request().Context(), getContextUser(ctx), ctx.Param("test"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

// importTests reads a YAML file from the request body.
func (api *placementApi) importTests(ctx echo.Context) error {
	body := io.LimitReader(ctx.Request().Body, maxImportSize)
	report, err := api.svc.ImportTests(ctx.Request().Context(), getContextUser(ctx), body)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *placementApi) listSubmissions(ctx echo.Context) error {
	var filter placement.SubmissionFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []placement.Submission{})
	}
	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), getContextUser(ctx), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *placementApi) retrieveSubmission(ctx echo.Context) error {
	s, err := api.svc.GetSubmission(ctx.Request().Context(), getContextUser(ctx), ctx.Param("submission"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
