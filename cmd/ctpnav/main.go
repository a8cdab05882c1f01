// Command ctpnav reconciles CTP settlement statements and computes per-account
// unit/NAV series.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

var configPath = flag.String("config", "", "Path to the YAML configuration (defaults to $RECONCILER_CONFIG)")

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("WARNING: .env: %v", err)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&runCmd{logger: logger}, "batch")
	commander.Register(&parseCmd{logger: logger}, "batch")
	commander.Register(&serveCmd{logger: logger}, "server")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
