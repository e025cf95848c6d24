// seatadmin performs administrative tasks against the seat booking
// database: schema migration, directory users, buffer capacity changes,
// bulk resets and admin API tokens.  It reads the same environment (and
// .env file) as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/iliyamo/office-seat-booking/internal/app"
	"github.com/iliyamo/office-seat-booking/internal/config"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/utils"
)

// command is one seatadmin subcommand.  needsApp commands get a wired
// *app.App; the rest run on configuration alone.
type command struct {
	summary  string
	needsApp bool
	run      func(ctx context.Context, env *cmdEnv, args []string) error
}

type cmdEnv struct {
	cfg config.Config
	app *app.App
	out io.Writer
}

var commands = map[string]command{
	"migrate":       {summary: "create the database schema", needsApp: true, run: runMigrate},
	"user":          {summary: "create or update a directory user", needsApp: true, run: runUser},
	"adjust-buffer": {summary: "change a day's buffer base capacity", needsApp: true, run: runAdjustBuffer},
	"reset":         {summary: "delete every booking and inventory row", needsApp: true, run: runReset},
	"token":         {summary: "mint an access token for the admin API", run: runToken},
}

func main() {
	config.LoadDotEnv()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg := config.LoadAdmin()
	env := &cmdEnv{cfg: cfg, out: out}
	if cmd.needsApp {
		bcfg, err := config.LoadBookingConfig()
		if err != nil {
			return err
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
		if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
			logger = logger.Level(lvl)
		}
		a, err := app.New(ctx, cfg, bcfg, logger, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()
		env.app = a
	}
	return cmd.run(ctx, env, args[1:])
}

func printUsage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "Usage: seatadmin <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'seatadmin <command> --help' for the flags of a command.")
}

func newFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("seatadmin "+name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parse wraps FlagSet.Parse and rejects stray positional arguments.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func runMigrate(_ context.Context, env *cmdEnv, args []string) error {
	if err := parse(newFlagSet("migrate", env.out), args); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "schema up to date (%s)\n", env.cfg.DBDriver)
	return nil
}

func runUser(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("user", env.out)
	email := fs.String("email", "", "email address (required, unique)")
	name := fs.String("name", "", "display name")
	employeeID := fs.String("employee-id", "", "employee id (unique when set)")
	batch := fs.String("batch", "", "rotation batch: B1 or B2 (required)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	b, err := model.ParseBatch(*batch)
	if err != nil {
		return err
	}
	u, err := env.app.Users.Upsert(ctx, *email, *name, *employeeID, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "user %d %s batch=%s\n", u.ID, u.Email, u.Batch)
	return nil
}

func runAdjustBuffer(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("adjust-buffer", env.out)
	date := fs.String("date", "", "day to change, YYYY-MM-DD (required)")
	delta := fs.Int("delta", 0, "seats to add (negative to remove)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *date == "" {
		return errors.New("--date is required")
	}
	inv, err := env.app.Service.AdjustBufferCapacity(ctx, *date, *delta)
	if err != nil {
		return err
	}
	av := inv.Availability()
	fmt.Fprintf(env.out, "%s buffer base=%d effective=%d booked=%d remaining=%d\n",
		model.FormatDate(inv.Date), inv.BufferBaseCapacity, av.BufferCapacity, inv.BufferBooked, av.BufferRemaining)
	return nil
}

func runReset(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("reset", env.out)
	yes := fs.Bool("yes", false, "confirm deleting all bookings and inventory")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to reset without --yes")
	}
	if err := env.app.Service.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.out, "all bookings and inventory deleted")
	return nil
}

func runToken(_ context.Context, env *cmdEnv, args []string) error {
	fs := newFlagSet("token", env.out)
	userID := fs.Uint64("user", 0, "subject user id (required)")
	role := fs.String("role", "ADMIN", "role claim")
	ttl := fs.Duration("ttl", time.Duration(env.cfg.AccessTTLMin)*time.Minute, "token lifetime")
	if err := parse(fs, args); err != nil {
		return err
	}
	if env.cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if *userID == 0 {
		return errors.New("--user is required")
	}
	tok, err := utils.NewAccessToken(env.cfg.JWTSecret, *userID, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, tok.Token)
	return nil
}
