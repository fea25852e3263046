package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/session"
	"github.com/trezcool/masomo-console/services/apiclient"
	"github.com/trezcool/masomo-console/services/logger"
)

func main() {
	std := log.New(os.Stderr, "CONSOLE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)

	store, err := session.OpenFileStorage(core.Conf.Client.SessionFile)
	if err != nil {
		logger.Fatal("opening session file", err)
	}

	cli := newCommandLine(os.Stdin, os.Stdout)
	opts := apiclient.OptionsFromConfig(core.Conf.Client)
	opts.Logger = logger
	opts.Navigator = cli
	cli.client, err = apiclient.New(session.Open(store), opts)
	if err != nil {
		logger.Fatal("creating API client", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cli.run(ctx, os.Args)
	stop()
	logger.Close()
	if err != nil {
		if err != errHelp {
			cli.printError(err)
		}
		os.Exit(1)
	}
}
