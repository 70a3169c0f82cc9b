package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ficct/horarios/core/user"
)

type authApi struct {
	auth     *authenticator
	validate *validator.Validate
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	validate *validator.Validate,
) {
	api := authApi{
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	sg := ag.Group("", jwt, auth.checkRevoked)
	sg.POST("/logout", api.logout)
	sg.POST("/refresh", api.refreshToken)
	sg.GET("/me", api.me)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	token, usr, err := api.auth.login(data)
	if err != nil {
		return err
	}
	return success(ctx, http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.auth.revoke(ctx); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return successNoData(ctx)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return success(ctx, http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return success(ctx, http.StatusOK, usr)
}
