// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
	logsvc "github.com/ficct/horarios/services/logger"
	inmemdb "github.com/ficct/horarios/storage/database/inmem"
)

// Config returns a TEST configuration that never reaches the network.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		AppName:   "Horarios",
		Debug:     false,
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 2 * time.Hour,
			AllowOrigins:              []string{"*"},
		},
		Backend: core.BackendConfig{Timeout: 5 * time.Second},
	}
}

// Logger returns a logger writing to `buf`.
func Logger(buf *bytes.Buffer) core.Logger {
	return logsvc.NewRollbarLogger(log.New(buf, "TEST : ", 0), Config())
}

// Validate returns a validator with every validator of the module registered, and its translator.
func Validate() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := schedule.NewValidate(translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// SeededDB opens an in-memory database filled with the sample catalog.
func SeededDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	validate, _ := Validate()
	if err := inmemdb.Seed(context.Background(), db, validate); err != nil {
		t.Fatalf("inmemdb.Seed() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@ficct.test",
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
