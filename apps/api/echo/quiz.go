package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/quiz"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, auth, optAuth echo.MiddlewareFunc, svc *quiz.Service, validate *validator.Validate) {
	api := quizApi{svc: svc, validate: validate}

	qg := g.Group("/quizzes")
	qg.GET("/:quiz/availability", api.availability, optAuth)
	qg.POST("/:quiz/start", api.start, auth)
	qg.POST("", api.create, auth)
	qg.PUT("/:quiz", api.update, auth)
}

func (api *quizApi) availability(ctx echo.Context) error {
	av, err := api.svc.GetAvailability(ctx.Request().Context(), ctx.Param("quiz"), getContextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, av)
}

func (api *quizApi) start(ctx echo.Context) error {
	av, err := api.svc.EnsureCanStart(ctx.Request().Context(), ctx.Param("quiz"), getContextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, av)
}

func (api *quizApi) bind(ctx echo.Context) (quiz.NewQuiz, error) {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to NewQuiz")
	}
	return data, data.Validate(api.validate)
}

func (api *quizApi) create(ctx echo.Context) error {
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Create(ctx.Request().Context(), getContextUser(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) update(ctx echo.Context) error {
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Update(ctx.Request().Context(), getContextUser(ctx), ctx.Param("quiz"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}
