package main

import (
	"context"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/apiclient"
)

const mePath = "/v1/auth/me"

func (cli *commandLine) login(ctx context.Context, uname string) error {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	cli.printf("\n")
	if err != nil {
		return errors.Wrap(err, "reading password")
	}

	res, err := cli.client.Login(ctx, user.Credentials{Username: uname, Password: string(pwd)})
	if err != nil {
		return err
	}
	cli.printf("Signed in as %s (%s) at %s.\n", res.User.Name, res.User.Username, res.Institution.Name)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if !cli.client.Session().IsAuthenticated() {
		cli.printf("Not signed in.\n")
		return nil
	}
	if err := cli.client.Logout(ctx); err != nil {
		return err
	}
	cli.printf("Signed out.\n")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	sess := cli.client.Session()
	if !sess.IsAuthenticated() {
		cli.printf("Not signed in.\n")
		return nil
	}

	var res apiclient.Envelope[user.User]
	if err := cli.client.GetJSON(ctx, mePath, nil, &res); err != nil {
		return err
	}
	usr := res.Data
	inst := sess.Institution()
	cli.printf("%s (%s)\n", usr.Name, usr.Username)
	if usr.Email != "" {
		cli.printf("  email:       %s\n", usr.Email)
	}
	if len(usr.Roles) > 0 {
		cli.printf("  roles:       %s\n", strings.Join(usr.Roles, ", "))
	}
	cli.printf("  institution: %s [%s]\n", inst.Name, inst.Code)
	if at := sess.LoggedInAt(); !at.IsZero() {
		cli.printf("  signed in:   %s\n", at.Local().Format(time.RFC1123))
	}
	return nil
}
