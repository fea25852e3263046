package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	createDBFunc     = database.CreateIfNotExist // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	usrSvc *user.Service
	out    io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  adduser -name NAME -username USERNAME -email EMAIL -institution-code CODE -institution-name NAME [-roles ROLES]\n")
	cli.printf("      - create a console operator; the password is prompted next\n")
	cli.printf("  resetpassword -username USERNAME|EMAIL - reset an operator's password\n")
	cli.printf("  createdb - create the app database user and database if they do not exist\n")
	cli.printf("  migrate COMMAND [ARGS...] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The operator's full name.")
	addUserUname := addUserCmd.String("username", "", "The operator's username.")
	addUserEmail := addUserCmd.String("email", "", "The operator's email.")
	addUserRoles := addUserCmd.String("roles", user.RoleStaff, "Comma separated roles, among: "+strings.Join(user.AllRoles, ", "))
	addUserInstCode := addUserCmd.String("institution-code", core.Conf.Server.SeedInstitution.Code, "The institution's code.")
	addUserInstName := addUserCmd.String("institution-name", core.Conf.Server.SeedInstitution.Name, "The institution's name.")
	addUserInstEmail := addUserCmd.String("institution-email", core.Conf.Server.SeedInstitution.Email, "The institution's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The operator's username or email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.readNewPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Name:             *addUserName,
			Username:         *addUserUname,
			Email:            *addUserEmail,
			Password:         pwd,
			PasswordConfirm:  confirm,
			Roles:            splitRoles(*addUserRoles),
			InstitutionCode:  *addUserInstCode,
			InstitutionName:  *addUserInstName,
			InstitutionEmail: *addUserInstEmail,
		})
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.readNewPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, user.SetUserPassword{Password: pwd, PasswordConfirm: confirm})
	case "createdb":
		if err := createDBFunc(context.Background(), core.Conf.Database); err != nil {
			return err
		}
		cli.printf("Database %s is ready.\n", core.Conf.Database.Name)
		return nil
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// readNewPassword prompts for a password and its confirmation.
func (cli *commandLine) readNewPassword() (pwd, confirm string, err error) {
	cli.printf("Enter password:")
	p, err := readPasswordFunc(syscall.Stdin)
	cli.printf("\n")
	if err != nil || len(p) == 0 {
		return "", "", err
	}
	cli.printf("Confirm password:")
	c, err := readPasswordFunc(syscall.Stdin)
	cli.printf("\n")
	if err != nil {
		return "", "", err
	}
	return string(p), string(c), nil
}

func splitRoles(s string) []string {
	var roles []string
	for _, role := range strings.Split(s, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func (cli *commandLine) printError(err error) {
	flds, ok := core.FieldErrors(err)
	if !ok || len(flds) == 0 {
		cli.printf("\nerror: %s\n", err)
		return
	}
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)
	cli.printf("\ninvalid input:\n")
	for _, name := range names {
		cli.printf("  %s: %s\n", name, flds[name])
	}
}
