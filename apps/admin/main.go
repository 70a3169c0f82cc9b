package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/session"
	logsvc "github.com/ficct/horarios/services/logger"
	"github.com/ficct/horarios/storage/session/boltstore"
)

var stdLogger *log.Logger

func main() {
	defer os.Exit(0)

	stdLogger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up session store
	store, err := boltstore.Open(conf.Session.Path)
	errAndDie(err)
	//goland:noinspection GoUnhandledErrorResult
	defer store.Close()

	sess := session.NewManager(store)
	errAndDie(sess.Restore())
	sess.OnEnd(func(reason error) {
		if reason != nil {
			fmt.Fprintf(os.Stderr, "%s\n", reason)
		}
	})

	// start CLI
	cli := newCommandLine(conf, os.Stdout, appLogger, sess)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		//goland:noinspection GoUnhandledErrorResult
		store.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
