package echoapi

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/user"
	oauthsvc "github.com/edutech/backend/services/oauth"
)

const oauthStateCookie = "oauthstate"

type userApi struct {
	svc       *user.Service
	googleSvc *oauthsvc.GoogleService
	storage   core.FileStorage
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service, googleSvc *oauthsvc.GoogleService, storage core.FileStorage) {
	api := userApi{
		svc:       svc,
		googleSvc: googleSvc,
		storage:   storage,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/signup", api.signup)
	ug.POST("/login", api.login)
	ug.POST("/admin-login", api.adminLogin)
	ug.GET("/google/login", api.googleLogin)
	ug.GET("/google/callback", api.googleCallback)
	ug.POST("/forgot-password", api.forgotPassword)
	ug.POST("/reset-password", api.resetPassword)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/profile", api.profile)
	ag.PUT("/profile", api.updateProfile)
	ag.POST("/profile/avatar", api.uploadAvatar)
}

// Handlers

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, User: usr})
}

func (api *userApi) login(ctx echo.Context) error {
	return api.doLogin(ctx, api.svc.Authenticate)
}

func (api *userApi) adminLogin(ctx echo.Context) error {
	return api.doLogin(ctx, api.svc.AuthenticateAdmin)
}

func (api *userApi) doLogin(ctx echo.Context, authenticate func(email, password string) (user.User, error)) error {
	var data user.LoginUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginUser")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(data.Email, data.Password)
	if err != nil {
		return err
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) googleLogin(ctx echo.Context) error {
	state := uuid.New().String()
	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  core.NowFunc().Add(10 * time.Minute),
		HttpOnly: true,
		Path:     "/",
	})
	return ctx.Redirect(http.StatusTemporaryRedirect, api.googleSvc.AuthURL(state))
}

func (api *userApi) googleCallback(ctx echo.Context) error {
	cookie, err := ctx.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != ctx.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	code := ctx.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	info, err := api.googleSvc.Exchange(ctx.Request().Context(), code)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}

	usr, err := api.svc.AuthenticateOAuth(info)
	if err != nil {
		return err
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	if base := core.Conf.FrontendBaseURL; base != "" {
		return ctx.Redirect(http.StatusTemporaryRedirect, base+"/oauth/callback?token="+url.QueryEscape(token))
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) forgotPassword(ctx echo.Context) error {
	var data user.ForgotPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with a PIN to reset your password.",
	})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) uploadAvatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fileHdr, err := ctx.FormFile("avatar")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "avatar", Error: "an avatar file is required"})
	}
	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded avatar")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	avatarURL, err := api.storage.Upload(ctx.Request().Context(), file, "avatars", fileHdr.Filename)
	if err != nil {
		return errors.Wrap(err, "uploading avatar")
	}

	usr, err = api.svc.SetAvatar(usr.ID, avatarURL)
	if err != nil {
		return errors.Wrap(err, "setting avatar")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
