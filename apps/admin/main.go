package main

import (
	"log"
	"os"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/storage/database"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	sqlxrepos "github.com/trezcool/campus/storage/database/sqlx"
)

func main() {
	logger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	cli := new(commandLine)
	if conf.Database.Engine == "inmem" {
		cli.usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err)
		}
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		cli.usrRepo = sqlxrepos.NewUserRepository(db)
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
