package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/ficct/horarios/apps/api/echo"
	"github.com/ficct/horarios/core/user"
	"github.com/ficct/horarios/tests"
)

func Test_authApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "Gone", "gone", testPwd, nil, false)

	path := "/api/auth/login"
	failed := marchallObj(t, envelope{Message: "invalid username or password"})

	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, user.Credentials{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, envelope{
				Message: "password: this field is required; username: this field is required",
				Errors:  map[string]string{"username": "this field is required", "password": "this field is required"},
			}),
		},
		{name: "unknown user", body: marchallObj(t, user.Credentials{Username: "nobody", Password: testPwd}), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "wrong password", body: marchallObj(t, user.Credentials{Username: "admin", Password: "nope"}), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "inactive account", body: marchallObj(t, user.Credentials{Username: "gone", Password: testPwd}), wantCode: http.StatusBadRequest, wantData: failed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, path, "", tc.body)
			checkCodeAndData(t, tc, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := f.do(http.MethodPost, path, "", marchallObj(t, user.Credentials{Username: " ADMIN ", Password: testPwd}))
		require.Equal(t, http.StatusOK, rec.Code)

		var data echoapi.LoginResponse
		decodeData(t, rec, &data)
		assert.NotEmpty(t, data.Token)
		assert.Equal(t, "admin", data.User.Username)
		assert.False(t, data.User.LastLogin.IsZero())
		assert.NotContains(t, rec.Body.String(), "PasswordHash")
	})
}

func Test_authApi_session(t *testing.T) {
	f := setup(t)

	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		f.do(http.MethodGet, "/api/gestiones", ""))

	rec := f.do(http.MethodGet, "/api/gestiones", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/me", f.schedulerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decodeData(t, rec, &me)
	assert.Equal(t, "planner", me.Username)
	assert.True(t, me.CanSchedule())

	rec = f.do(http.MethodPost, "/api/auth/refresh", f.schedulerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed echoapi.TokenResponse
	decodeData(t, rec, &refreshed)
	assert.NotEqual(t, f.schedulerToken, refreshed.Token)

	rec = f.do(http.MethodPost, "/api/auth/logout", f.schedulerToken)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"success":true}`)}, rec)

	// the logged out token is dead, the refreshed one is not
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, envelope{Message: "session has ended"})},
		f.do(http.MethodGet, "/api/gestiones", f.schedulerToken))
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/gestiones", refreshed.Token).Code)
}
