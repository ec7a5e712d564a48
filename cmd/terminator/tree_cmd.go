package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/treeformat"
)

func newAdapter(cli *CLI) *platform.Adapter {
	return platform.NewAdapter(platform.UnsupportedBackend{}, cli.log, nil)
}

func newTreeCommand(cli *CLI) *cobra.Command {
	var format string
	var pid int
	var title string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print a window's accessibility tree (compact YAML, verbose JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.loadConfig(cmd); err != nil {
				return err
			}

			adapter := newAdapter(cli)
			buildCfg := platform.TreeBuildConfig{
				PropertyMode:      platform.PropertyMode(cli.cfg.Tree.PropertyMode),
				YieldEvery:        cli.cfg.Tree.YieldEvery,
				MaxDepth:          cli.cfg.Tree.MaxDepth,
				PerElementTimeout: cli.cfg.Tree.PerOperationBudget,
			}

			root, err := adapter.GetWindowTree(context.Background(), pid, title, buildCfg)
			if err != nil {
				return fmt.Errorf("get window tree: %w", err)
			}

			switch format {
			case "", "compact":
				res := treeformat.CompactYaml(root)
				fmt.Println(res.Formatted)
				fmt.Println(gray(fmt.Sprintf("%d elements", res.ElementCount)))
			case "json":
				res, err := treeformat.VerboseJson(root)
				if err != nil {
					return err
				}
				fmt.Println(res.Formatted)
			default:
				return fmt.Errorf("unknown --format %q (want compact|json)", format)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "Process id to build the tree for (required)")
	cmd.Flags().StringVar(&title, "title", "", "Preferred window title for best-match disambiguation")
	cmd.Flags().StringVar(&format, "format", "compact", "Output format: compact|json")
	cmd.MarkFlagRequired("pid")

	return cmd
}
