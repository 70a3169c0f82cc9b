package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/ficct/horarios/apps/api/echo"
	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
	logsvc "github.com/ficct/horarios/services/logger"
	inmemdb "github.com/ficct/horarios/storage/database/inmem"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := schedule.NewValidate(translator)
	user.InitValidators(validate, translator)
	return validate
}

func newDB(conf *core.Config, validate *validator.Validate, loggerParam DBLoggerParam) *inmemdb.DB {
	logger := loggerParam.Logger

	db, err := inmemdb.Open()
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if conf.Seed.SampleData {
		if err := inmemdb.Seed(context.Background(), db, validate); err != nil {
			logger.Fatal("seeding database", err)
		}
		logger.Info("sample catalog loaded")
	}
	return db
}

func newScheduleRepository(db *inmemdb.DB, validate *validator.Validate) schedule.Repository {
	return inmemdb.NewScheduleRepository(db, validate)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(newDB))
	must(c.Provide(inmemdb.NewUserRepository))
	must(c.Provide(newScheduleRepository))
	must(c.Provide(user.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
