package main

import (
	"testing"
)

func TestBuildRootHasSubcommands(t *testing.T) {
	root := buildRoot()
	want := []string{"serve", "status", "start", "stop", "restart", "ensure", "logs", "autostart", "sweep"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestServeRequiresConfig(t *testing.T) {
	if err := runServe(""); err == nil {
		t.Fatal("expected error without config path")
	}
}

func TestServeRejectsMissingConfig(t *testing.T) {
	if err := runServe("/nonexistent/procmate.toml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
