package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/otherjamesbrown/agriclassify/pkg/buildinfo"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	want := []string{"classify", "examples", "auth", "config", "version", "completion"}
	found := make(map[string]bool)
	for _, c := range root.Commands() {
		found[c.Name()] = true
	}
	for _, name := range want {
		if !found[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand_Text(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "agri version "+buildinfo.Version) {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--output-json"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}

	var info buildinfo.Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if info.ServiceName != serviceName {
		t.Errorf("ServiceName = %q, want %q", info.ServiceName, serviceName)
	}
}

func TestCompletionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})

	if err := root.Execute(); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(out.String(), "agri") {
		t.Error("bash completion does not mention agri")
	}
}
