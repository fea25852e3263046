package main

import (
	"context"

	"github.com/trezcool/masomo-console/core/user"
)

func (cli *commandLine) resetPassword(uname string, sp user.SetUserPassword) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := sp.Validate(usr); err != nil {
		return err
	}
	if _, err := cli.usrSvc.SetPassword(ctx, usr, sp); err != nil {
		return err
	}
	cli.printf("Password of %s updated.\n", usr.Username)
	return nil
}
