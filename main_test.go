package main

import (
	"bytes"
	"strings"
	"testing"

	"relaydash/internal/auth/hash"
)

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-password", "password123"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	phc := strings.TrimSpace(out.String())
	if !hash.VerifyPassword(phc, "password123") {
		t.Fatalf("printed hash does not verify: %q", phc)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "relaydash ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
