package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"expense-wallet/internal/api"
	"expense-wallet/internal/config"
	"expense-wallet/internal/screens"
	"expense-wallet/internal/session"
	"expense-wallet/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the wiring shared by every command.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *storage.DB
	store    *storage.CredentialStore
	provider *api.Provider
	client   *api.Client
	sessions *session.Manager

	stdin  io.Reader
	lines  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	ui     *renderer
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"register":        {"register -email <email> -name <full name> -dob <YYYYMMDD> [-password <pw>]", "create an account", cmdRegister},
		"login":           {"login -email <email> [-password <pw>]", "sign in and store the token", cmdLogin},
		"logout":          {"logout", "sign out", cmdLogout},
		"status":          {"status", "show whether a token is stored", cmdStatus},
		"budgets":         {"budgets", "list budgets", cmdBudgets},
		"budget":          {"budget <id>", "show one budget", cmdBudget},
		"create-budget":   {"create-budget -name <name> -limit <amount> -start <YYYY-MM-DD> -end <YYYY-MM-DD> [-categories A,B]", "create a budget", cmdCreateBudget},
		"delete-budget":   {"delete-budget <id>", "delete a budget", cmdDeleteBudget},
		"report":          {"report <budget id>", "show a budget report", cmdReport},
		"download-report": {"download-report [-dir <dir>] <budget id>", "save the spreadsheet export", cmdDownloadReport},
		"receipts":        {"receipts", "list receipts by day", cmdReceipts},
		"receipt":         {"receipt <id>", "show one receipt", cmdReceipt},
		"set-category":    {"set-category <receipt id> <category>", "change a receipt category", cmdSetCategory},
		"scan":            {"scan <image.jpg>", "upload a receipt image", cmdScan},
		"categories":      {"categories", "list expense categories", cmdCategories},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("wallet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr, fs) }

	server := fs.String("server", api.DefaultBaseURL, "Backend base URL")
	dbPath := fs.String("db", config.DefaultDBPath, "Path to credential database file")
	verbose := fs.Bool("v", false, "Log requests to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		printUsage(stdout, fs)
		return fmt.Errorf("missing command")
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		printUsage(stdout, fs)
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Flags win over the environment when they were set explicitly.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.BaseURL = *server
		case "db":
			cfg.DBPath = *dbPath
		}
	})
	if *verbose {
		cfg.LogLevel = "debug"
	}

	a := &app{
		cfg:    cfg,
		stdin:  stdin,
		lines:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
		ui:     newRenderer(stdout),
	}
	a.log = config.NewLogger(stderr, cfg.LogLevel)
	if err := a.open(); err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func (a *app) open() error {
	db, err := storage.NewDB(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if a.cfg.StoreKey != "" {
		sealer, err := storage.NewSealer(a.cfg.StoreKey)
		if err != nil {
			db.Close()
			return err
		}
		db.WithSealer(sealer)
	}
	a.db = db
	a.store = storage.NewCredentialStore(db)

	apiCfg := a.cfg.APIConfig()
	apiCfg.Tokens = a.store
	apiCfg.Logger = &a.log
	a.provider = api.NewProvider(apiCfg)
	a.client, err = a.provider.Instance()
	if err != nil {
		db.Close()
		return err
	}
	a.sessions = session.NewManager(a.client, a.store, a.log)
	return nil
}

func (a *app) close() {
	a.provider.Close()
	a.db.Close()
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: wallet [-server <url>] [-db <db_path>] [-v] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-16s %s\n", n, commands[n].help)
	}
	fmt.Fprintln(w)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// await waits for a controller call and turns a failed state into an error.
func await[T any](ctx context.Context, v *screens.View[T], done <-chan struct{}) (T, error) {
	select {
	case <-done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	st := v.State()
	switch st.Status {
	case screens.StatusFailed:
		return st.Data, errors.New(st.Message)
	case screens.StatusLoaded:
		return st.Data, nil
	}
	return st.Data, context.Canceled
}

func (a *app) readPassword(prompt string) (string, error) {
	fmt.Fprint(a.stdout, prompt)
	password, err := a.readSecret()
	fmt.Fprintln(a.stdout) // Print newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

func (a *app) readSecret() (string, error) {
	// Check if stdin is a terminal
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	line, err := a.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
