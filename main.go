// Package main provides the agri CLI entry point.
// agri classifies batches of agricultural produce images with a vision model.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/agriclassify/cmd"
	"github.com/otherjamesbrown/agriclassify/pkg/buildinfo"
)

const serviceName = "agriclassify"

// newRootCommand builds the agri command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "agri",
		Short: "Agricultural produce image classification",
		Long: `agri classifies batches of agricultural produce images with a vision model.

Each image is classified independently and concurrently. Results for images
that were recognized as produce are summarized when more than one qualifies.

COMMON WORKFLOWS:
  First run:        agri auth set-key  →  agri config init
  Classify:         agri classify ./photos
  Custom labels:    agri classify ./photos --examples-dir ./examples
  Check examples:   agri examples check ./examples

Run 'agri <command> --help' for flags and examples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: "classify", Title: "Classification:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	classifyCmd := cmd.NewClassifyCommand(nil)
	classifyCmd.GroupID = "classify"
	root.AddCommand(classifyCmd)

	examplesCmd := cmd.NewExamplesCommand(nil)
	examplesCmd.GroupID = "classify"
	root.AddCommand(examplesCmd)

	authCmd := cmd.NewAuthCommand(nil)
	authCmd.GroupID = "setup"
	root.AddCommand(authCmd)

	configCmd := cmd.NewConfigCommand(nil)
	configCmd.GroupID = "setup"
	root.AddCommand(configCmd)

	versionCmd := newVersionCommand()
	versionCmd.GroupID = "setup"
	root.AddCommand(versionCmd)

	completionCmd := newCompletionCommand(root)
	completionCmd.GroupID = "setup"
	root.AddCommand(completionCmd)

	return root
}

// newVersionCommand prints build information.
func newVersionCommand() *cobra.Command {
	var outputJSON bool

	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build time of the agri CLI.

Examples:
  agri version
  agri version --output-json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Get(serviceName)
			out := cmd.OutOrStdout()

			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "agri version %s\n", info.Version)
			fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
			fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
			return nil
		},
	}
	c.Flags().BoolVar(&outputJSON, "output-json", false, "Output as JSON")
	return c
}

// newCompletionCommand generates shell completion scripts for root.
func newCompletionCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for agri.

Bash:
  $ source <(agri completion bash)

Zsh:
  $ agri completion zsh > "${fpath[1]}/_agri"

Fish:
  $ agri completion fish | source

PowerShell:
  PS> agri completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

func main() {
	// An interrupt cancels in-flight calls; the run still reports every item.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
