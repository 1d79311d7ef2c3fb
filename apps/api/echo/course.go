package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
)

type courseApi struct {
	svc     *course.Service
	certSvc *certificate.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, certSvc *certificate.Service) {
	api := courseApi{svc: svc, certSvc: certSvc}

	// un-authed catalog
	cg := g.Group("/courses")
	cg.GET("/explore", api.explore)
	cg.GET("/explore/:course_id", api.exploreDetail)
	cg.GET("/:course_id/curriculum", api.curriculum)
	cg.GET("/:course_id/outcomes", api.outcomes)
	cg.GET("/:course_id/prerequisites", api.prerequisites)
	cg.GET("/:course_id/description", api.description)
	cg.GET("/:course_id/feedback", api.feedback)

	// authed endpoints
	g.GET("/my-courses", api.myCourses, jwt)
	g.GET("/my-courses/:course_id/videos", api.videos, jwt)
	g.POST("/videos/:video_id/complete", api.completeVideo, jwt)
	g.GET("/my-certificates", api.myCertificates, jwt)

	ag := cg.Group("", jwt)
	ag.POST("/:course_id/feedback", api.submitFeedback)
	ag.GET("/:course_id/progress", api.progress)
	ag.GET("/:course_id/certificate", api.certificate)
}

// Handlers

func (api *courseApi) explore(ctx echo.Context) error {
	courses, err := api.svc.ExploreAll(ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "exploring courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) exploreDetail(ctx echo.Context) error {
	crs, err := api.svc.ExploreDetail(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) curriculum(ctx echo.Context) error {
	items, err := api.svc.Curriculum(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"curriculum": items})
}

func (api *courseApi) outcomes(ctx echo.Context) error {
	items, err := api.svc.Outcomes(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"outcomes": items})
}

func (api *courseApi) prerequisites(ctx echo.Context) error {
	items, err := api.svc.Prerequisites(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"prerequisites": items})
}

func (api *courseApi) description(ctx echo.Context) error {
	desc, err := api.svc.Description(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"description": desc})
}

func (api *courseApi) feedback(ctx echo.Context) error {
	fbs, err := api.svc.FeedbackFor(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	if fbs == nil {
		fbs = []course.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *courseApi) myCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	courses, err := api.svc.MyCourses(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing enrolled courses")
	}
	if courses == nil {
		courses = []course.EnrolledCourse{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) videos(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	vids, err := api.svc.VideosWithCheckpoint(claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	if vids == nil {
		vids = []course.VideoCheckpoint{}
	}
	return ctx.JSON(http.StatusOK, vids)
}

func (api *courseApi) completeVideo(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	vp, cp, err := api.svc.ToggleVideoCompleted(claims.Subject, ctx.Param("video_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"video_progress":  vp,
		"course_progress": cp,
	})
}

func (api *courseApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cp, err := api.svc.Progress(claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}

func (api *courseApi) submitFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}

	fb, err := api.svc.SubmitFeedback(claims.Subject, ctx.Param("course_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *courseApi) certificate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cert, err := api.certSvc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *courseApi) myCertificates(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	certs, err := api.certSvc.ListForUser(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing certificates")
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	return ctx.JSON(http.StatusOK, certs)
}
