package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/services/apiclient"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	client *apiclient.Client
	in     *bufio.Scanner
	out    io.Writer

	// interactive is set while the shell runs; errors are printed instead of ending the process.
	interactive bool
}

var _ apiclient.Navigator = (*commandLine)(nil)

func newCommandLine(in io.Reader, out io.Writer) *commandLine {
	return &commandLine{in: bufio.NewScanner(in), out: out}
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  login -username USERNAME|EMAIL              - sign in; the password is prompted next\n")
	cli.printf("  logout                                      - sign out\n")
	cli.printf("  whoami                                      - show the signed in operator\n")
	cli.printf("  browse -kind KIND [-per-page N]             - browse teachers, staff, parents or students\n")
	cli.printf("  announcements [-search S] [-page N]         - list the published announcements\n")
	cli.printf("  announce -title T -body B -audience A       - publish an announcement\n")
	cli.printf("  shell                                       - run several commands in one session\n")
}

// Navigate is called by the API client when the session could not be refreshed.
func (cli *commandLine) Navigate(route string) {
	if route == core.Conf.Client.LoginRoute {
		cli.printf("Your session has expired. Sign in again with: login -username USERNAME\n")
		return
	}
	cli.printf("-> %s\n", route)
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	return cli.exec(ctx, args[1], args[2:])
}

func (cli *commandLine) exec(ctx context.Context, cmd string, args []string) error {
	// ContinueOnError: a typo in the shell must not end the process.
	errorHandling := flag.ExitOnError
	if cli.interactive {
		errorHandling = flag.ContinueOnError
	}

	switch cmd {
	case "login":
		fs := flag.NewFlagSet("login", errorHandling)
		fs.SetOutput(cli.out)
		uname := fs.String("username", "", "The operator's username or email. The password will be prompted next.")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *uname == "" {
			fs.Usage()
			return errHelp
		}
		return cli.login(ctx, *uname)
	case "logout":
		return cli.logout(ctx)
	case "whoami":
		return cli.whoami(ctx)
	case "browse":
		fs := flag.NewFlagSet("browse", errorHandling)
		fs.SetOutput(cli.out)
		kind := fs.String("kind", "", "teachers, staff, parents or students")
		perPage := fs.Int("per-page", 10, "rows per page: 10, 12, 24, 50 or 100")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *kind == "" {
			fs.Usage()
			return errHelp
		}
		return cli.browse(ctx, *kind, *perPage)
	case "announcements":
		fs := flag.NewFlagSet("announcements", errorHandling)
		fs.SetOutput(cli.out)
		search := fs.String("search", "", "search term")
		page := fs.Int("page", 1, "page number")
		perPage := fs.Int("per-page", 10, "rows per page: 10, 12, 24, 50 or 100")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cli.announcements(ctx, *search, *page, *perPage)
	case "announce":
		fs := flag.NewFlagSet("announce", errorHandling)
		fs.SetOutput(cli.out)
		title := fs.String("title", "", "title")
		body := fs.String("body", "", "body")
		audience := fs.String("audience", "all", "all, teachers, staff, parents or students")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cli.announce(ctx, *title, *body, *audience)
	case "shell":
		if cli.interactive {
			return nil
		}
		return cli.shell(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

// shell runs commands read from the input until EOF or `exit`. The API client, and the refresh
// cookie it holds, live as long as the shell.
func (cli *commandLine) shell(ctx context.Context) error {
	cli.interactive = true
	defer func() { cli.interactive = false }()

	for {
		cli.printf("masomo> ")
		line, ok := cli.readLine()
		if !ok {
			cli.printf("\n")
			return nil
		}
		args := splitArgs(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			cli.printUsage()
			continue
		}
		if err := cli.exec(ctx, args[0], args[1:]); err != nil && err != errHelp {
			cli.printError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (cli *commandLine) readLine() (string, bool) {
	if !cli.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(cli.in.Text()), true
}

// printError prints validation errors field by field.
func (cli *commandLine) printError(err error) {
	if flds, ok := core.FieldErrors(err); ok && len(flds) > 0 {
		printFields(cli, flds)
		return
	}
	var rErr *apiclient.ResponseError
	if errors.As(err, &rErr) && len(rErr.Fields) > 0 {
		printFields(cli, rErr.Fields)
		return
	}
	if apiclient.IsSessionExpired(err) {
		return // the navigator already told the operator
	}
	cli.printf("error: %s\n", err)
}

func printFields(cli *commandLine, flds map[string]string) {
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)
	cli.printf("invalid input:\n")
	for _, name := range names {
		cli.printf("  %s: %s\n", name, flds[name])
	}
}

// splitArgs splits a shell line on spaces; double quotes group words.
func splitArgs(line string) []string {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, cur.String())
	}
	return args
}
