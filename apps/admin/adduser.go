package main

import (
	"context"

	"github.com/trezcool/masomo-console/core/user"
)

// addUser validates nu against the password policy and creates the operator.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	cli.printf("Created %s (%s) for %s.\n", usr.Name, usr.Username, usr.Institution.Name)
	return nil
}
