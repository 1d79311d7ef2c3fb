package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core/user"
)

func TestAPI_Signup(t *testing.T) {
	env := setup(t)

	body := marchallObj(t, map[string]string{
		"full_name":        "Ada Lovelace",
		"email":            "ada@edutech.test",
		"password":         "s3cr3tPass!",
		"password_confirm": "s3cr3tPass!",
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/signup", body)
	env.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decodeBody(t, rec, &res)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada@edutech.test", res.User.Email)
	assert.Equal(t, user.RoleStudent, res.User.Role)

	// duplicate email is rejected
	req, rec = newRequest(http.MethodPost, "/v1/users/signup", body)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAPI_Login(t *testing.T) {
	env := setup(t)
	env.student(t, "ada@edutech.test")

	t.Run("ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "ada@edutech.test", "password": "s3cr3tPass!"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res struct {
			Token string `json:"token"`
		}
		decodeBody(t, rec, &res)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "ada@edutech.test", "password": "nope"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("student cannot use admin login", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "ada@edutech.test", "password": "s3cr3tPass!"})
		req, rec := newRequest(http.MethodPost, "/v1/users/admin-login", body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})
}

func TestAPI_Profile(t *testing.T) {
	env := setup(t)
	usr := env.student(t, "ada@edutech.test")
	token := getToken(t, usr)

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/profile")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String()) // missing jwt
	})

	t.Run("get", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/profile", token)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decodeBody(t, rec, &got)
		assert.Equal(t, usr.ID, got.ID)
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"full_name": "Ada L.", "bio": "Student of everything."})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/profile", token, body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decodeBody(t, rec, &got)
		assert.Equal(t, "Ada L.", got.FullName)
		assert.Equal(t, "Student of everything.", got.Bio)
	})

	t.Run("avatar upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/users/profile/avatar", token, "avatar", "me.png")
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decodeBody(t, rec, &got)
		assert.Contains(t, got.AvatarURL, "avatars/me.png")
	})
}

func TestAPI_ForgotPassword(t *testing.T) {
	env := setup(t)
	env.student(t, "ada@edutech.test")

	body := marchallObj(t, map[string]string{"email": "ada@edutech.test"})
	req, rec := newRequest(http.MethodPost, "/v1/users/forgot-password", body)
	env.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, env.mailSvc.SentMessages, 1)

	// unknown emails get the same generic answer
	body = marchallObj(t, map[string]string{"email": "ghost@edutech.test"})
	req, rec = newRequest(http.MethodPost, "/v1/users/forgot-password", body)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, env.mailSvc.SentMessages, 1)
}

func TestAPI_ResetPassword_InvalidPIN(t *testing.T) {
	env := setup(t)
	env.student(t, "ada@edutech.test")

	body := marchallObj(t, map[string]string{
		"email":            "ada@edutech.test",
		"pin":              "123456",
		"password":         "newPass123!",
		"password_confirm": "newPass123!",
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/reset-password", body)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
