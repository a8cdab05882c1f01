package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/ctpnav/reconciler/internal/domain"
	"github.com/ctpnav/reconciler/internal/ingestion"
)

type parseCmd struct {
	logger *log.Logger
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "parse statements and print them as JSON" }
func (*parseCmd) Usage() string {
	return `ctpnav parse <file>...

  Parses each statement with the configured layout and prints the record
  and its single-statement findings as JSON.
`
}

func (*parseCmd) SetFlags(*flag.FlagSet) {}

type parsed struct {
	File          string                `json:"file"`
	Statement     *domain.SettlementDay `json:"statement,omitempty"`
	Discrepancies []domain.Discrepancy  `json:"discrepancies,omitempty"`
	Error         string                `json:"error,omitempty"`
}

func (c *parseCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one statement file is required")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	parser, err := ingestion.NewParser(cfg.Layout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	status := subcommands.ExitSuccess
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, name := range f.Args() {
		out := parsed{File: name}
		data, err := os.ReadFile(name)
		if err == nil {
			out.Statement, out.Discrepancies, err = parser.Parse(data, name)
		}
		if err != nil {
			c.logger.Printf("[ingestion] %v", err)
			out.Error = err.Error()
			status = subcommands.ExitFailure
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return status
}
