package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/RowanDark/cipherstack/internal/batch"
	"github.com/RowanDark/cipherstack/internal/cipher"
	"github.com/RowanDark/cipherstack/internal/keycodec"
	"github.com/RowanDark/cipherstack/internal/keyset"
	"github.com/RowanDark/cipherstack/internal/logging"
)

// sealedExt marks files produced by encrypt.
const sealedExt = ".csx"

type direction int

const (
	directionEncrypt direction = iota
	directionDecrypt
)

func (d direction) String() string {
	if d == directionDecrypt {
		return "decrypt"
	}
	return "encrypt"
}

func (d direction) eventType() logging.EventType {
	if d == directionDecrypt {
		return logging.EventDecrypt
	}
	return logging.EventEncrypt
}

func runEncrypt(args []string) int {
	return runCrypt(directionEncrypt, args)
}

func runDecrypt(args []string) int {
	return runCrypt(directionDecrypt, args)
}

func runCrypt(dir direction, args []string) int {
	fs := flag.NewFlagSet(dir.String(), flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	ref := fs.String("keyset", "", "keyset id or name")
	outDir := fs.String("out", "", "directory for output files (defaults to each input's directory)")
	workers := fs.Int("workers", 0, "number of files processed in parallel (defaults to config workers)")
	force := fs.Bool("force", false, "overwrite existing output files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*ref) == "" || fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: cipherstackctl %s -keyset ID [-out DIR] [-workers N] [-force] FILE...\n", dir)
		return 2
	}
	if *workers < 0 {
		fmt.Fprintln(os.Stderr, "-workers must not be negative")
		return 2
	}

	env, err := openEnv(dir.String())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer env.Close()

	ks, err := loadKeysetForUse(env, *ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load keyset: %v\n", err)
		return 1
	}

	jobs := make([]batch.Job, 0, fs.NArg())
	for i, input := range fs.Args() {
		output, err := outputPath(dir, input, *outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", input, err)
			return 2
		}
		jobs = append(jobs, batch.Job{ID: i, Input: input, Output: output})
	}

	n := *workers
	if n == 0 {
		n = env.cfg.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := batch.Run(ctx, n, jobs, transformFor(dir, ks), batch.WithOverwrite(*force))

	failed := 0
	for _, res := range results {
		env.emit(logging.AuditEvent{
			EventType: dir.eventType(),
			KeysetID:  ks.ID,
			Decision:  decisionFor(res.Err),
			Reason:    errorReason(res.Err),
			Metadata: map[string]any{
				"input":       res.Input,
				"output":      res.Output,
				"bytes":       res.Bytes,
				"fingerprint": ks.Fingerprint,
			},
		})
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Input, res.Err)
			continue
		}
		fmt.Fprintf(stdout, "%s -> %s\n", res.Input, res.Output)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// loadKeysetForUse resolves ref and decodes its material once up front so a
// damaged keyset fails before any file is touched.
func loadKeysetForUse(env *runtimeEnv, ref string) (*keyset.Keyset, error) {
	ks, err := env.store.Resolve(ref)
	if err == nil {
		_, err = ks.Contexts()
	}
	if err != nil {
		eventType := logging.EventKeysetLoaded
		if isKeyMaterialError(err) {
			eventType = logging.EventKeyMaterialRejected
		}
		env.emit(logging.AuditEvent{
			EventType: eventType,
			KeysetID:  keysetID(ks),
			Decision:  logging.DecisionFailure,
			Reason:    err.Error(),
		})
		return nil, err
	}
	env.emit(logging.AuditEvent{
		EventType: logging.EventKeysetLoaded,
		KeysetID:  ks.ID,
		Decision:  logging.DecisionSuccess,
		Metadata:  map[string]any{"fingerprint": ks.Fingerprint},
	})
	return ks, nil
}

func isKeyMaterialError(err error) bool {
	return errors.Is(err, cipher.ErrInvalidKeyMaterial) ||
		errors.Is(err, cipher.ErrMissingKeyMaterial) ||
		errors.Is(err, cipher.ErrMalformedOrder) ||
		errors.Is(err, keycodec.ErrDecimalEncodingOverflow) ||
		errors.Is(err, keycodec.ErrInvalidDecimal) ||
		errors.Is(err, keyset.ErrFingerprintMismatch)
}

func transformFor(dir direction, ks *keyset.Keyset) batch.Transform {
	return func(ctx context.Context, data []byte) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dir == directionDecrypt {
			return ks.Decrypt(data)
		}
		return ks.Encrypt(data)
	}
}

// outputPath derives the destination for input. Encryption appends .csx;
// decryption strips it, or appends .out when the input lacks it.
func outputPath(dir direction, input, outDir string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", errors.New("empty file name")
	}
	base := filepath.Base(input)
	switch dir {
	case directionDecrypt:
		if trimmed := strings.TrimSuffix(base, sealedExt); trimmed != base && trimmed != "" {
			base = trimmed
		} else {
			base += ".out"
		}
	default:
		base += sealedExt
	}
	target := filepath.Dir(input)
	if strings.TrimSpace(outDir) != "" {
		target = outDir
	}
	return filepath.Join(target, base), nil
}
