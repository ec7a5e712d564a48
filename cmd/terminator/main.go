// Command terminator is the scriptable CLI front-end over the core: it
// wires configuration, logging, the Platform Adapter, the Extension
// Bridge, and the Workflow Host behind a handful of cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/viper"
)

func main() {
	if !isTTY() {
		color.NoColor = true
	}

	rootCmd := NewRootCommand()

	viper.SetConfigName("terminator")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.config/terminator")
	viper.AddConfigPath(".")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}
