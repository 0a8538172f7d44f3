package main

import (
	"fmt"
	"io"
	"os"

	"github.com/RowanDark/cipherstack/internal/config"
)

func runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "config subcommand required")
		return 2
	}

	switch args[0] {
	case "print":
		return runConfigPrint()
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runConfigPrint() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	printResolvedConfig(stdout, cfg)
	return 0
}

func printResolvedConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "keyset_dir: %s\n", cfg.KeysetDir)
	fmt.Fprintf(out, "recipe_dir: %s\n", cfg.RecipeDir)
	fmt.Fprintf(out, "audit_log: %s\n", cfg.AuditLog)
	fmt.Fprintf(out, "default_order: %s\n", cfg.DefaultOrder)
	fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
}
