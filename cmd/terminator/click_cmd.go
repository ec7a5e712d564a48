package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediar-ai/terminator/internal/element"
	"github.com/mediar-ai/terminator/internal/locator"
	"github.com/mediar-ai/terminator/internal/logexec"
	"github.com/mediar-ai/terminator/internal/selector"
)

func newClickCommand(cli *CLI) *cobra.Command {
	var pid int
	var timeoutMS int

	cmd := &cobra.Command{
		Use:   "click <selector>",
		Short: "Resolve a selector under a process and click the first match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.loadConfig(cmd); err != nil {
				return err
			}
			selStr := args[0]

			sel, err := selector.Parse(selStr)
			if err != nil {
				return fmt.Errorf("parse selector: %w", err)
			}

			logger := logexec.New(logexec.Config{
				Disabled:      cli.cfg.Logger.Disabled,
				RootDir:       cli.cfg.Logger.RootDir,
				RetentionDays: cli.cfg.Logger.RetentionDays,
				Logger:        cli.log,
			})

			ctx := context.Background()
			ec := logger.LogRequest(ctx, "click_element", map[string]any{"pid": pid, "selector": selStr}, "", "", nil)

			start := time.Now()
			res, clickErr := runClick(ctx, cli, sel, pid, timeoutMS)
			logger.LogResponse(ctx, ec, logexec.Result{Value: res, Err: clickErr}, time.Since(start).Milliseconds(), nil)

			if clickErr != nil {
				return clickErr
			}
			fmt.Println(green("clicked"), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "Process id to scope the search to (required)")
	cmd.Flags().IntVar(&timeoutMS, "timeout", 5000, "Resolution timeout in milliseconds")
	cmd.MarkFlagRequired("pid")

	return cmd
}

func runClick(ctx context.Context, cli *CLI, sel selector.Selector, pid, timeoutMS int) (element.ClickResult, error) {
	adapter := newAdapter(cli)

	root, err := adapter.ApplicationByPID(ctx, pid, cli.cfg.Selector.DefaultTimeout)
	if err != nil {
		return element.ClickResult{}, fmt.Errorf("find process %d: %w", pid, err)
	}

	loc := locator.New(locator.NewAdapterEngine(adapter), sel, root)
	el, err := loc.First(ctx, time.Duration(timeoutMS)*time.Millisecond)
	if err != nil {
		return element.ClickResult{}, err
	}

	return element.New(el).Click(ctx)
}
