package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/RowanDark/cipherstack/internal/cipher"
)

// version is stamped at release time with -ldflags "-X main.version=v1.2.3".
var version = "dev"

const shortRevision = 12

type buildInfo struct {
	Version   string   `json:"version"`
	Revision  string   `json:"revision,omitempty"`
	Modified  bool     `json:"modified,omitempty"`
	GoVersion string   `json:"go_version,omitempty"`
	Layers    []string `json:"layers"`
}

func currentBuildInfo() buildInfo {
	info, _ := debug.ReadBuildInfo()
	return buildInfoFrom(version, info)
}

// buildInfoFrom prefers a stamped version, then the module version recorded
// by go install, then the vcs settings recorded by go build.
func buildInfoFrom(stamped string, info *debug.BuildInfo) buildInfo {
	bi := buildInfo{Version: stamped, Layers: cipher.DefaultOrder().Strings()}
	if info == nil {
		return bi
	}
	bi.GoVersion = info.GoVersion
	if bi.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		bi.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			bi.Revision = setting.Value
			if len(bi.Revision) > shortRevision {
				bi.Revision = bi.Revision[:shortRevision]
			}
		case "vcs.modified":
			bi.Modified = setting.Value == "true"
		}
	}
	return bi
}

func (b buildInfo) String() string {
	var details []string
	if b.Revision != "" {
		rev := "rev " + b.Revision
		if b.Modified {
			rev += "+dirty"
		}
		details = append(details, rev)
	}
	if b.GoVersion != "" {
		details = append(details, b.GoVersion)
	}
	line := productName + " " + b.Version
	if len(details) > 0 {
		line += " (" + strings.Join(details, ", ") + ")"
	}
	return line
}

func versionString() string {
	return currentBuildInfo().String()
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "print build details as JSON")
	verbose := fs.Bool("v", false, "also list the supported cipher layers")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "usage: cipherstackctl version [-json] [-v]")
		return 2
	}

	bi := currentBuildInfo()
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(bi); err != nil {
			fmt.Fprintf(os.Stderr, "encode build info: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, bi)
	if *verbose {
		fmt.Fprintf(stdout, "layers: %s\n", strings.Join(bi.Layers, ", "))
	}
	return 0
}
