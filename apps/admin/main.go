package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/storage/database"
	sqlxrepos "github.com/clubemanager/backend/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	sqlxDB := sqlx.NewDb(db, conf.Database.Engine)

	usrRepo := sqlxrepos.NewUserRepository(sqlxDB)
	mbrRepo := sqlxrepos.NewMemberRepository(sqlxDB)
	billingRepo := sqlxrepos.NewBillingRepository(sqlxDB)

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    usrRepo,
		billingSvc: billing.NewService(sqlxDB, billingRepo, mbrRepo, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
