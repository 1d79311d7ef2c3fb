package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
)

type assignmentApi struct {
	svc *assignment.Service
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assignment.Service) {
	api := assignmentApi{svc: svc}

	ag := g.Group("/courses/:course_id/assignments", jwt)
	ag.GET("", api.list)
	ag.GET("/:assignment_id", api.detail)
	ag.POST("/:assignment_id/submissions", api.submit)
}

// Handlers

func (api *assignmentApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	asgs, err := api.svc.ListForCourse(claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) detail(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	detail, err := api.svc.Detail(claims.Subject, ctx.Param("course_id"), ctx.Param("assignment_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a submission file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded submission")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	sub, err := api.svc.Submit(
		ctx.Request().Context(),
		claims.Subject,
		ctx.Param("course_id"),
		ctx.Param("assignment_id"),
		file,
		fileHdr.Filename,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}
