package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/agriclassify/credentials"
)

// KeyStore persists the recognition API key; *credentials.Store satisfies it.
type KeyStore interface {
	Get() (string, error)
	Set(key string) error
	Clear() error
	Description() string
	Resolve() (key, source string, err error)
}

// AuthCommandDeps holds the dependencies for the auth commands.
type AuthCommandDeps struct {
	Store KeyStore
	// ReadSecret prompts for a key without echoing it.
	ReadSecret func(prompt string) (string, error)
	Out        io.Writer
}

// DefaultAuthDeps returns the default dependencies for production use.
func DefaultAuthDeps() *AuthCommandDeps {
	return &AuthCommandDeps{
		Store:      credentials.NewStore(),
		ReadSecret: readSecret,
		Out:        os.Stdout,
	}
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *AuthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAuthDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the recognition API key",
		Long: `Manage the API key used to call the recognition service.

The key is stored in the system keyring. The ` + credentials.EnvAPIKey + ` environment
variable takes precedence over the stored key.`,
	}

	cmd.AddCommand(newAuthSetKeyCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthClearCommand(deps))
	return cmd
}

func newAuthSetKeyCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the API key in the system keyring",
		Long: `Store the API key in the system keyring.

Without an argument the key is read from the terminal without echo, or from
standard input when it is not a terminal.`,
		Example: `  agri auth set-key
  echo "$KEY" | agri auth set-key`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				key, err = deps.ReadSecret("API key: ")
				if err != nil {
					return fmt.Errorf("reading API key: %w", err)
				}
			}

			if err := deps.Store.Set(key); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "API key %s saved to %s.\n", credentials.Mask(strings.TrimSpace(key)), deps.Store.Description())
			return nil
		},
	}
}

func newAuthStatusCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, source, err := deps.Store.Resolve()
			switch {
			case errors.Is(err, credentials.ErrNoAPIKey):
				fmt.Fprintln(deps.Out, "No API key configured.")
				fmt.Fprintf(deps.Out, "Run 'agri auth set-key' or set %s.\n", credentials.EnvAPIKey)
				return nil
			case err != nil:
				return err
			}

			fmt.Fprintf(deps.Out, "API key: %s\n", credentials.Mask(key))
			switch source {
			case credentials.SourceEnv:
				fmt.Fprintf(deps.Out, "Source:  %s environment variable\n", credentials.EnvAPIKey)
			default:
				fmt.Fprintf(deps.Out, "Source:  %s\n", deps.Store.Description())
			}
			return nil
		},
	}
}

func newAuthClearCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(deps.Out, "API key removed from %s.\n", deps.Store.Description())
			if os.Getenv(credentials.EnvAPIKey) != "" {
				fmt.Fprintf(deps.Out, "Note: %s is still set in the environment.\n", credentials.EnvAPIKey)
			}
			return nil
		},
	}
}

// readSecret reads hidden input from a terminal, falling back to a plain
// line from stdin.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}
