// Command gamevault runs catalog imports and exchange-rate maintenance from
// the shell.
//
// Usage:
//
//	gamevault [--dry-run] <command> [flags] [args]
//
// Commands:
//
//	import FILE|DIR...       import TSV files (a directory imports every .tsv/.txt in it)
//	rate record CUR RATE     append an exchange rate
//	rate latest CUR          print the newest rate
//	rate history CUR         print recent rates, newest first
//	rate seed FILE           append every "CUR<TAB>RATE[<TAB>TIME]" line in one batch
//	convert                  recompute NOK prices from USD at the latest rate
//	value                    print the collection total
//	migrate                  apply the database schema
//
// --dry-run works against an empty in-memory store and needs no database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/gamevault/internal/application"
	"github.com/JonMunkholm/gamevault/internal/config"
	"github.com/JonMunkholm/gamevault/internal/logging"
)

type globalFlags struct {
	dryRun  bool
	verbose bool
}

func initGlobalFlags() *globalFlags {
	var flags globalFlags
	pflag.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Use an in-memory store; nothing is written to the database")
	pflag.BoolVarP(&flags.verbose, "verbose", "v", false, "Log at debug level")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = usage
	pflag.Parse()
	return &flags
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: gamevault [--dry-run] <import|rate|convert|value|migrate> [flags] [args]\n\n")
	pflag.PrintDefaults()
}

func main() {
	flags := initGlobalFlags()
	args := pflag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if flags.dryRun {
		cfg, err = config.LoadOffline()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	if args[0] == "migrate" {
		cfg.Database.Migrate = true
	}

	level := cfg.Logging.Level
	if flags.verbose {
		level = "debug"
	}
	logging.Setup(os.Stderr, level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := application.Open(ctx, cfg, application.Options{DryRun: flags.dryRun})
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	c := &cli{svc: app.Service, out: os.Stdout}
	code := c.run(ctx, args)
	app.Close()
	os.Exit(code)
}
