package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/mediar-ai/terminator/internal/config"
	"github.com/mediar-ai/terminator/internal/logging"
)

// isTTY reports whether both stdin and stdout are attached to a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// CLI holds state shared by every subcommand: the resolved config and the
// logger every core component is constructed with.
type CLI struct {
	cfg     *config.Config
	log     logging.Logger
	verbose bool
}

// loadConfig resolves the config file path flag (falling back to viper's
// search paths) and layers it over defaults and the environment
// (spec.md §6), mirroring the teacher's default→file→env precedence.
func (cli *CLI) loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if err := viper.ReadInConfig(); err == nil {
			path = viper.ConfigFileUsed()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cli.cfg = cfg

	level := "info"
	if cli.verbose {
		level = "debug"
	}
	cli.log = logging.New(logging.Config{Level: level})
	return nil
}

// NewRootCommand builds the terminator root command and every subcommand.
func NewRootCommand() *cobra.Command {
	cli := &CLI{}

	root := &cobra.Command{
		Use:   "terminator",
		Short: "Desktop UI-automation core: tree, locate, click, bridge, and workflow from the command line",
		Long: bold("terminator") + ` drives the Accessibility Engine, Extension Bridge, and
Workflow Host directly, without going through the JavaScript SDK.

Examples:
  terminator tree --pid 1234 --format compact
  terminator click "role:Button|name:OK" --pid 1234
  terminator bridge serve
  terminator workflow run ./my-workflow`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Verbose (debug) logging")

	root.AddCommand(newTreeCommand(cli))
	root.AddCommand(newClickCommand(cli))
	root.AddCommand(newBridgeCommand(cli))
	root.AddCommand(newWorkflowCommand(cli))

	return root
}
