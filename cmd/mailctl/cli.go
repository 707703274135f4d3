package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/simp-lee/mailsync/internal/client"
	"github.com/simp-lee/mailsync/internal/config"
	"github.com/simp-lee/mailsync/internal/notify"
	"github.com/simp-lee/mailsync/internal/store"
)

const usageText = `usage: mailctl [flags] <command>

commands:
  login [-password p] <email>        sign in (password from stdin when not given)
  logout                             forget the stored session
  <resource> list [-page n] [-size n] [-search s]
  <resource> get <id>
  <resource> delete <id>...
  contacts create -email e [-first f] [-last l] [-from s] [-unsubscribed]
  contacts import <file.csv>
  contacts assign -group <id> <id>...
  domains records [-o file] <id>
  watch [-size n] <resource>         search terms are read from stdin, one per line

resources: contacts, contact-groups, campaigns, domains, senders, tickets, plans, billing

flags:
`

// usageError is a malformed command line. run exits with status 2 for it.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// shown marks an error the presenter already printed from the event bus.
type shown struct{ error }

func (s shown) Unwrap() error { return s.error }

type cli struct {
	c      *client.Client
	in     *bufio.Reader
	out    io.Writer
	format string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mailctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "configs/config.yaml", "path to configuration file")
	format := fs.String("format", formatTable, "output format: table or yaml")
	quiet := fs.Bool("quiet", false, "hide informational notices")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if *format != formatTable && *format != formatYAML {
		fmt.Fprintf(stderr, "mailctl: unknown format %q\n", *format)
		return 2
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "mailctl: load config:", err)
		return 1
	}
	log, err := config.SetupCLILogger(&cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "mailctl: set up logging:", err)
		return 1
	}
	defer log.Close()

	c, err := client.New(cfg.Client, client.WithLogger(log.Logger))
	if err != nil {
		fmt.Fprintln(stderr, "mailctl:", err)
		return 1
	}
	defer c.Close()

	p, err := notify.New(c.Bus, stderr, notify.Quiet(*quiet), notify.WithLogger(log.Logger))
	if err != nil {
		fmt.Fprintln(stderr, "mailctl:", err)
		return 1
	}
	defer p.Close()

	cl := &cli{c: c, in: bufio.NewReader(stdin), out: stdout, format: *format}
	err = cl.dispatch(ctx, fs.Args())

	var ue usageError
	var sh shown
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		fmt.Fprintln(stderr, "mailctl:", ue.msg)
		fmt.Fprintln(stderr, "run 'mailctl -h' for usage")
		return 2
	case errors.As(err, &sh):
		return 1
	case errors.Is(err, context.Canceled):
		return 130
	default:
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}
}

func describe(err error) string {
	if msg, ok := store.Describe(err); ok {
		return msg
	}
	return err.Error()
}

func (cl *cli) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "login":
		return cl.login(ctx, args[1:])
	case "logout":
		return cl.c.Logout()
	case "watch":
		return cl.watch(ctx, args[1:])
	}

	rc, ok := cl.resource(args[0])
	if !ok {
		return usagef("unknown command %q", args[0])
	}
	if len(args) < 2 {
		return usagef("%s needs a subcommand", args[0])
	}
	sub, rest := args[1], args[2:]
	switch sub {
	case "list":
		return cl.list(ctx, rc, rest)
	case "get":
		return cl.get(ctx, rc, rest)
	case "delete":
		return cl.delete(ctx, rc, rest)
	}

	switch rc.kind().Tag + " " + sub {
	case "contact create":
		return cl.createContact(ctx, rest)
	case "contact import":
		return cl.importContacts(ctx, rest)
	case "contact assign":
		return cl.assign(ctx, rest)
	case "domain records":
		return cl.records(ctx, rest)
	}
	return usagef("unknown %s command %q", args[0], sub)
}

func (cl *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	if *password == "" {
		line, err := cl.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	if *password == "" {
		return usagef("login needs a password")
	}
	if _, err := cl.c.Login(ctx, fs.Arg(0), *password); err != nil {
		return shown{err}
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parse parses args into fs and requires at least want positional arguments.
func parse(fs *flag.FlagSet, args []string, want int) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() < want {
		return usagef("%s needs %d argument(s)", fs.Name(), want)
	}
	return nil
}
