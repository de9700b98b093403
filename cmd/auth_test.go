package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/otherjamesbrown/agriclassify/credentials"
)

func newTestAuth(t *testing.T) (*AuthCommandDeps, *bytes.Buffer) {
	t.Helper()
	keyring.MockInit()
	t.Setenv(credentials.EnvAPIKey, "")
	out := &bytes.Buffer{}
	return &AuthCommandDeps{
		Store:      credentials.NewStore(),
		ReadSecret: func(string) (string, error) { return "sk-prompted-1234\n", nil },
		Out:        out,
	}, out
}

func execAuth(deps *AuthCommandDeps, args ...string) error {
	cmd := NewAuthCommand(deps)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestAuthCommand_Subcommands(t *testing.T) {
	cmd := NewAuthCommand(nil)
	want := map[string]bool{"set-key": false, "status": false, "clear": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; !ok {
			t.Errorf("unexpected subcommand %q", sub.Name())
		}
		want[sub.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestAuthSetKey_FromArgument(t *testing.T) {
	deps, out := newTestAuth(t)

	if err := execAuth(deps, "set-key", "sk-argument-9876"); err != nil {
		t.Fatalf("set-key: %v", err)
	}
	if !strings.Contains(out.String(), "9876") || strings.Contains(out.String(), "sk-argument") {
		t.Errorf("output should show only the masked key, got %q", out.String())
	}

	got, err := deps.Store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-argument-9876" {
		t.Errorf("stored key = %q", got)
	}
}

func TestAuthSetKey_Prompted(t *testing.T) {
	deps, _ := newTestAuth(t)

	if err := execAuth(deps, "set-key"); err != nil {
		t.Fatalf("set-key: %v", err)
	}
	got, _ := deps.Store.Get()
	if got != "sk-prompted-1234" {
		t.Errorf("stored key = %q, want trimmed prompt input", got)
	}
}

func TestAuthSetKey_Empty(t *testing.T) {
	deps, _ := newTestAuth(t)
	deps.ReadSecret = func(string) (string, error) { return "  \n", nil }

	err := execAuth(deps, "set-key")
	if !errors.Is(err, credentials.ErrEmptyKey) {
		t.Errorf("err = %v, want ErrEmptyKey", err)
	}
}

func TestAuthStatus(t *testing.T) {
	deps, out := newTestAuth(t)

	if err := execAuth(deps, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "No API key configured") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := deps.Store.Set("sk-keyring-abcd"); err != nil {
		t.Fatal(err)
	}
	if err := execAuth(deps, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "abcd") || !strings.Contains(out.String(), deps.Store.Description()) {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	t.Setenv(credentials.EnvAPIKey, "sk-env-wxyz")
	if err := execAuth(deps, "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "wxyz") || !strings.Contains(out.String(), credentials.EnvAPIKey) {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestAuthClear(t *testing.T) {
	deps, out := newTestAuth(t)
	if err := deps.Store.Set("sk-to-clear"); err != nil {
		t.Fatal(err)
	}

	if err := execAuth(deps, "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := deps.Store.Get(); !errors.Is(err, credentials.ErrNoAPIKey) {
		t.Errorf("Get after clear = %v, want ErrNoAPIKey", err)
	}
	if !strings.Contains(out.String(), "removed") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestAuthStatus_KeyringUnavailable(t *testing.T) {
	deps, _ := newTestAuth(t)
	keyring.MockInitWithError(errors.New("dbus: no session bus"))

	err := execAuth(deps, "status")
	if !errors.Is(err, credentials.ErrKeyringUnavailable) {
		t.Errorf("err = %v, want ErrKeyringUnavailable", err)
	}
}
