package main

import (
	"errors"

	"github.com/trezcool/campus/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errNoDB = errors.New("migrations need the postgres engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDB
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
