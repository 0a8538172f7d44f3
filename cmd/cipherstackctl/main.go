package main

import (
	"flag"
	"fmt"
	"os"
)

const productName = "cipherstack"
const cliBanner = productName + " CLI (cipherstackctl)"

func init() {
	defaultUsage := flag.Usage
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintln(out, cliBanner)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "commands: keygen, keyset, encrypt, decrypt, pipeline, decimal, ops, config, version")
		if defaultUsage != nil {
			defaultUsage()
		}
	}
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(dispatch(args))
}

func dispatch(args []string) int {
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:])
	case "keyset":
		return runKeyset(args[1:])
	case "encrypt":
		return runEncrypt(args[1:])
	case "decrypt":
		return runDecrypt(args[1:])
	case "pipeline":
		return runPipeline(args[1:])
	case "decimal":
		return runDecimal(args[1:])
	case "ops":
		return runOps(args[1:])
	case "config":
		return runConfig(args[1:])
	case "version":
		return runVersion(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		return 2
	}
}
