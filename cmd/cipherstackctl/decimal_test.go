package main

import (
	"strings"
	"testing"
)

func TestDecimalCommands(t *testing.T) {
	tests := []struct {
		name string
		run  func([]string) int
		args []string
		out  string
		code int
	}{
		{"encode", runDecimalEncode, []string{"0102"}, "258", 0},
		{"encode prefixed", runDecimalEncode, []string{"0xffff"}, "65535", 0},
		{"encode leading zeros", runDecimalEncode, []string{"000001"}, "1", 0},
		{"decode", runDecimalDecode, []string{"-length", "4", "258"}, "00000102", 0},
		{"decode overflow truncates", runDecimalDecode, []string{"-length", "2", "66051"}, "0203", 1},
		{"encode bad hex", runDecimalEncode, []string{"zz"}, "", 2},
		{"decode bad digits", runDecimalDecode, []string{"-length", "2", "12a"}, "", 2},
		{"decode missing length", runDecimalDecode, []string{"258"}, "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, code := capture(t, func() int { return tt.run(tt.args) })
			if code != tt.code {
				t.Fatalf("expected exit code %d, got %d", tt.code, code)
			}
			if strings.TrimSpace(out) != tt.out {
				t.Fatalf("expected output %q, got %q", tt.out, out)
			}
		})
	}
}
