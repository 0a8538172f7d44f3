package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/cipherstack/internal/cipher"
)

func runOps(args []string) int {
	fs := flag.NewFlagSet("ops", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opType := fs.String("type", "", "only list operations of this type (encrypt, decrypt, encode, decode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl ops [-type TYPE]")
		return 2
	}

	var ops []cipher.Operation
	if *opType != "" {
		ops = cipher.ListOperationsByType(cipher.OperationType(*opType))
	} else {
		ops = cipher.ListOperations()
	}
	for _, op := range ops {
		inverse := "-"
		if rev, ok := op.Reverse(); ok {
			inverse = rev.Name()
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), inverse, op.Description())
	}
	return 0
}
