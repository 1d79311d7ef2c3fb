package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/enroll"
)

type enrollApi struct {
	svc *enroll.Service
}

func registerEnrollAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *enroll.Service) {
	api := enrollApi{svc: svc}

	eg := g.Group("/enrollments", jwt)
	eg.GET("/courses/:course_id/purchase-info", api.purchaseInfo)
	eg.POST("/:course_id/payment-proof", api.submitPaymentProof)
	eg.GET("/:course_id/status", api.status)
}

// Handlers

func (api *enrollApi) purchaseInfo(ctx echo.Context) error {
	info, err := api.svc.GetPurchaseInfo(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *enrollApi) submitPaymentProof(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fileHdr, err := ctx.FormFile("proof")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "proof", Error: "a payment proof file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded proof")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	if err := api.svc.SubmitPaymentProof(ctx.Request().Context(), claims.Subject, ctx.Param("course_id"), file, fileHdr.Filename); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{
		Success: "Payment proof submitted. Your enrollment is pending admin approval.",
	})
}

func (api *enrollApi) status(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	info, err := api.svc.Status(claims.Subject, ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}
