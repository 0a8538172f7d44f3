package main

import (
	"fmt"
	"io"
	"os"

	"github.com/RowanDark/cipherstack/internal/config"
	"github.com/RowanDark/cipherstack/internal/keyset"
	"github.com/RowanDark/cipherstack/internal/logging"
)

// stdout is swapped by tests to capture command output.
var stdout io.Writer = os.Stdout

// runtimeEnv bundles what most subcommands need.
type runtimeEnv struct {
	cfg   config.Config
	store *keyset.Store
	audit *logging.AuditLogger
}

func openEnv(component string) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := keyset.NewStore(cfg.KeysetDir)
	if err != nil {
		return nil, fmt.Errorf("open keyset store: %w", err)
	}
	audit, err := openAudit(cfg, component)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &runtimeEnv{cfg: cfg, store: store, audit: audit}, nil
}

func openAudit(cfg config.Config, component string) (*logging.AuditLogger, error) {
	if cfg.AuditLog == "" {
		return logging.Discard(component), nil
	}
	return logging.NewAuditLogger(component, logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
}

func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if err := e.audit.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close audit log: %v\n", err)
	}
}

// emit records an audit event. Audit failures are reported but never change
// a command's outcome.
func (e *runtimeEnv) emit(event logging.AuditEvent) {
	if err := e.audit.Emit(event); err != nil {
		fmt.Fprintf(os.Stderr, "write audit event: %v\n", err)
	}
}

func decisionFor(err error) logging.Decision {
	if err != nil {
		return logging.DecisionFailure
	}
	return logging.DecisionSuccess
}

func errorReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
