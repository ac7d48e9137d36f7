package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type newUserArgs struct {
	name, username, email, password string
	roles                           []string
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(args newUserArgs) error {
	ctx := context.Background()
	uname := core.CleanString(args.username, true /* lower */)
	email := core.CleanString(args.email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Username: uname, CreatedAt: time.Now().UTC()}
	}
	if err = cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email, []user.User{usr}); err != nil {
		return err
	}

	usr.Email = email
	if name := core.CleanString(args.name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	for _, role := range args.roles {
		if user.RolePriority(role) == 0 {
			return errors.Errorf("unknown role %q", role)
		}
	}
	if args.roles != nil {
		usr.Roles = args.roles
	}
	usr.SetActive(true)
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(args.password); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
