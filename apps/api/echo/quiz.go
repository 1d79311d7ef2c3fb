package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/courses/:course_id/quizzes", jwt)
	qg.GET("", api.list)
	qg.GET("/:quiz_id", api.detail)
	qg.POST("/:quiz_id/submissions", api.submit)
	qg.GET("/:quiz_id/results/:submission_id", api.result)
}

// Handlers

func (api *quizApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	quizzes, err := api.svc.ListForCourse(claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) detail(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	detail, err := api.svc.Detail(claims.Subject, ctx.Param("course_id"), ctx.Param("quiz_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *quizApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.SubmitQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitQuiz")
	}

	res, err := api.svc.Submit(claims.Subject, ctx.Param("course_id"), ctx.Param("quiz_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *quizApi) result(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.Result(claims.Subject, ctx.Param("course_id"), ctx.Param("quiz_id"), ctx.Param("submission_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
