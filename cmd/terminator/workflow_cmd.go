package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediar-ai/terminator/internal/workflow"
)

func newWorkflowCommand(cli *CLI) *cobra.Command {
	root := &cobra.Command{
		Use:   "workflow",
		Short: "Run declarative workflows through the Workflow Host",
	}
	root.AddCommand(newWorkflowRunCommand(cli))
	return root
}

func newWorkflowRunCommand(cli *CLI) *cobra.Command {
	var startFromStep, endAtStep string

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Launch a workflow's terminator.ts entry point and stream its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.loadConfig(cmd); err != nil {
				return err
			}

			host := workflow.New(workflow.Config{
				RuntimeBinary:  cli.cfg.Workflow.RuntimeBinary,
				Mode:           workflow.Mode(cli.cfg.Workflow.ExecutionMode),
				ParentPollSecs: cli.cfg.Workflow.ParentPollSecs,
				Logger:         cli.log,
			})
			defer host.Shutdown()

			ctx := context.Background()
			outcome, err := host.Execute(ctx, args[0], workflow.RunOptions{
				StartFromStep: startFromStep,
				EndAtStep:     endAtStep,
			})
			if err != nil {
				return fmt.Errorf("run workflow: %w", err)
			}

			data, _ := json.MarshalIndent(outcome.Result, "", "  ")
			fmt.Println(string(data))
			for _, entry := range outcome.Logs {
				fmt.Printf("%s [%s] %s\n", gray(entry.Timestamp), cyan(entry.Level), entry.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startFromStep, "start-from", "", "Step id to resume from")
	cmd.Flags().StringVar(&endAtStep, "end-at", "", "Step id to stop at")

	return cmd
}
