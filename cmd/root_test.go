package main

import (
	"testing"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"user", "create"},
		{"token"},
		{"admin", "stats"},
		{"admin", "kick"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == rootCmd {
			t.Errorf("command %v not registered: %v", path, err)
		}
	}
}

func TestSkipConfig(t *testing.T) {
	stats, _, err := rootCmd.Find([]string{"admin", "stats"})
	if err != nil {
		t.Fatal(err)
	}
	if !skipConfig(stats) {
		t.Fatal("admin subcommands must not load local config")
	}
	if skipConfig(serveCmd) {
		t.Fatal("serve must load config")
	}
}

func TestInt64Arg(t *testing.T) {
	if id, err := int64Arg("42"); err != nil || id != 42 {
		t.Fatalf("got %d %v", id, err)
	}
	for _, s := range []string{"", "0", "-1", "abc"} {
		if _, err := int64Arg(s); err == nil {
			t.Errorf("%q must be rejected", s)
		}
	}
}
