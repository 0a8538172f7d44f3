package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/RowanDark/cipherstack/internal/keyset"
	"github.com/RowanDark/cipherstack/internal/logging"
)

func runKeyset(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "keyset subcommand required")
		return 2
	}

	switch args[0] {
	case "list":
		return runKeysetList(args[1:])
	case "show":
		return runKeysetShow(args[1:])
	case "delete":
		return runKeysetDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown keyset subcommand: %s\n", args[0])
		return 2
	}
}

func runKeysetList(args []string) int {
	fs := flag.NewFlagSet("keyset list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	query := fs.String("q", "", "only list keysets whose name, id or fingerprint matches")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl keyset list [-q query]")
		return 2
	}

	env, err := openEnv("keyset")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.Close()

	var keysets []*keyset.Keyset
	if strings.TrimSpace(*query) != "" {
		keysets, err = env.store.Search(*query)
	} else {
		keysets, err = env.store.List()
	}
	if err != nil && !errors.Is(err, keyset.ErrUnreadableKeyset) {
		fmt.Fprintf(os.Stderr, "list keysets: %v\n", err)
		return 1
	}
	for _, ks := range keysets {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\t%s\n",
			ks.ID, ks.Name, strings.Join(ks.Order, ","), ks.Fingerprint, ks.CreatedAt.Format(time.RFC3339))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return 0
}

func runKeysetShow(args []string) int {
	fs := flag.NewFlagSet("keyset show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl keyset show <id|name>")
		return 2
	}

	env, err := openEnv("keyset")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.Close()

	ks, err := env.store.Resolve(fs.Arg(0))
	env.emit(logging.AuditEvent{
		EventType: logging.EventKeysetLoaded,
		KeysetID:  keysetID(ks),
		Decision:  decisionFor(err),
		Reason:    errorReason(err),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load keyset: %v\n", err)
		return 1
	}
	printKeyset(stdout, ks)
	return 0
}

// printKeyset describes ks without revealing key material.
func printKeyset(out io.Writer, ks *keyset.Keyset) {
	fmt.Fprintf(out, "id: %s\n", ks.ID)
	fmt.Fprintf(out, "name: %s\n", ks.Name)
	fmt.Fprintf(out, "fingerprint: %s\n", ks.Fingerprint)
	fmt.Fprintf(out, "created_at: %s\n", ks.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "updated_at: %s\n", ks.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintln(out, "layers:")
	for i, name := range ks.Order {
		layer := ks.Layers[name]
		fmt.Fprintf(out, "  %d. %s key=%d bytes", i+1, name, layer.KeyLength)
		if layer.NonceLength > 0 {
			fmt.Fprintf(out, " nonce=%d bytes", layer.NonceLength)
		}
		if layer.Counter != 0 {
			fmt.Fprintf(out, " counter=%d", layer.Counter)
		}
		fmt.Fprintln(out)
	}
}

func runKeysetDelete(args []string) int {
	fs := flag.NewFlagSet("keyset delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl keyset delete <id|name>")
		return 2
	}

	env, err := openEnv("keyset")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.Close()

	ks, err := env.store.Resolve(fs.Arg(0))
	if err == nil {
		err = env.store.Delete(ks.ID)
	}
	env.emit(logging.AuditEvent{
		EventType: logging.EventKeysetDeleted,
		KeysetID:  keysetID(ks),
		Decision:  decisionFor(err),
		Reason:    errorReason(err),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "delete keyset: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "deleted %s\n", ks.ID)
	return 0
}

func keysetID(ks *keyset.Keyset) string {
	if ks == nil {
		return ""
	}
	return ks.ID
}
