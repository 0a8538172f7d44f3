package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/cipherstack/internal/cipher"
	"github.com/RowanDark/cipherstack/internal/keyset"
	"github.com/RowanDark/cipherstack/internal/logging"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "name for the new keyset")
	orderFlag := fs.String("order", "", "comma separated layer order (defaults to config default_order)")
	deriveEnv := fs.String("derive-env", "", "derive key material from the secret held in this environment variable")
	salt := fs.String("salt", "", "salt used with -derive-env")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl keygen -name NAME [-order a,b,c] [-derive-env VAR -salt SALT]")
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		return 2
	}
	if *salt != "" && *deriveEnv == "" {
		fmt.Fprintln(os.Stderr, "-salt requires -derive-env")
		return 2
	}

	env, err := openEnv("keygen")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.Close()

	src := cipher.CryptoRandom()
	var order cipher.Order
	if strings.TrimSpace(*orderFlag) != "" {
		order, err = cipher.ParseOrder(*orderFlag)
	} else {
		order, err = env.cfg.Order(src)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve order: %v\n", err)
		return 2
	}

	var ks *keyset.Keyset
	derived := *deriveEnv != ""
	if derived {
		secret := os.Getenv(*deriveEnv)
		if secret == "" {
			fmt.Fprintf(os.Stderr, "environment variable %s is empty\n", *deriveEnv)
			return 2
		}
		ks, err = keyset.Derive(strings.TrimSpace(*name), []byte(secret), []byte(*salt), order)
	} else {
		var contexts cipher.Contexts
		contexts, err = cipher.GenerateContexts(src)
		if err == nil {
			ks, err = keyset.New(strings.TrimSpace(*name), order, contexts)
		}
	}
	if err != nil {
		env.emit(logging.AuditEvent{
			EventType: logging.EventKeyMaterialRejected,
			Decision:  logging.DecisionFailure,
			Reason:    err.Error(),
		})
		fmt.Fprintf(os.Stderr, "create keyset: %v\n", err)
		return 1
	}

	if err := env.store.Save(ks); err != nil {
		fmt.Fprintf(os.Stderr, "save keyset: %v\n", err)
		return 1
	}
	env.emit(logging.AuditEvent{
		EventType: logging.EventKeysetCreated,
		KeysetID:  ks.ID,
		Decision:  logging.DecisionSuccess,
		Metadata: map[string]any{
			"name":        ks.Name,
			"order":       strings.Join(ks.Order, ","),
			"fingerprint": ks.Fingerprint,
			"derived":     derived,
		},
	})

	fmt.Fprintf(stdout, "%s %s\n", ks.ID, ks.Fingerprint)
	return 0
}
