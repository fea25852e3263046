package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/database"
	"github.com/trezcool/masomo-console/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(false) // admin errors are printed, not reported

	cli := commandLine{out: os.Stdout}

	// createdb runs before the app database exists
	if len(os.Args) > 1 && os.Args[1] != "createdb" {
		if !core.Conf.Database.Enabled() {
			logger.Fatal("no database configured: dbName is empty")
		}
		db, err := database.Open(context.Background(), core.Conf.Database)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()
		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxdb.NewUserRepository(db))
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			cli.printError(err)
		}
		os.Exit(1)
	}
}
