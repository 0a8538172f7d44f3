package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/cipherstack/internal/keycodec"
)

func runDecimal(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "decimal subcommand required")
		return 2
	}

	switch args[0] {
	case "encode":
		return runDecimalEncode(args[1:])
	case "decode":
		return runDecimalDecode(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown decimal subcommand: %s\n", args[0])
		return 2
	}
}

func runDecimalEncode(args []string) int {
	fs := flag.NewFlagSet("decimal encode", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl decimal encode HEX")
		return 2
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(fs.Arg(0)), "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode hex: %v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "%s\n", keycodec.BytesToDecimal(raw))
	return 0
}

func runDecimalDecode(args []string) int {
	fs := flag.NewFlagSet("decimal decode", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	length := fs.Int("length", -1, "number of bytes to decode into")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *length < 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl decimal decode -length N DECIMAL")
		return 2
	}

	raw, err := keycodec.DecimalToBytes(fs.Arg(0), *length)
	if err != nil {
		if errors.Is(err, keycodec.ErrDecimalEncodingOverflow) {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			fmt.Fprintf(stdout, "%s\n", hex.EncodeToString(raw))
			return 1
		}
		fmt.Fprintf(os.Stderr, "decode decimal: %v\n", err)
		return 2
	}
	fmt.Fprintf(stdout, "%s\n", hex.EncodeToString(raw))
	return 0
}
