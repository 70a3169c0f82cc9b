package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	dig_container "github.com/ficct/horarios/apps/api/di/dig"
	echoapi "github.com/ficct/horarios/apps/api/echo"
	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/user"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		validate *validator.Validate,
		usrSvc *user.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer apiLogger.Info("Application stopped")

		if err := seedAdmin(conf, validate, usrSvc); err != nil {
			apiLogger.Fatal(fmt.Sprintf("seeding admin account: %v", err), err)
		}

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

// seedAdmin creates the configured admin account. Without a password nobody can log in.
func seedAdmin(conf *core.Config, validate *validator.Validate, svc *user.Service) error {
	if conf.Seed.AdminPassword == "" {
		return nil
	}
	nu := user.NewUser{
		Name:            conf.Seed.AdminName,
		Username:        conf.Seed.AdminUsername,
		Password:        conf.Seed.AdminPassword,
		PasswordConfirm: conf.Seed.AdminPassword,
		Roles:           []string{user.RoleAdminOwner},
	}
	if err := nu.Validate(validate, svc); err != nil {
		return err
	}
	_, err := svc.Create(nu)
	return err
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
