package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediar-ai/terminator/internal/bridge"
)

func newBridgeCommand(cli *CLI) *cobra.Command {
	root := &cobra.Command{
		Use:   "bridge",
		Short: "Extension Bridge WebSocket coordinator",
	}
	root.AddCommand(newBridgeServeCommand(cli))
	return root
}

func newBridgeServeCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Extension Bridge and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.loadConfig(cmd); err != nil {
				return err
			}

			b := bridge.New(bridge.Config{
				BindAddr:          cli.cfg.Bridge.BindAddr,
				Port:              cli.cfg.Bridge.Port,
				HandshakeTimeout:  cli.cfg.Bridge.HandshakeTimeout,
				EvalTimeout:       cli.cfg.Bridge.EvalTimeout,
				ClientWaitTimeout: cli.cfg.Bridge.ClientWaitTimeout,
				LegacyClientAge:   cli.cfg.Bridge.LegacyClientAge,
				PortRecoveryDelay: cli.cfg.Bridge.PortRecoveryDelay,
				Logger:            cli.log,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := b.Start(ctx); err != nil {
				return fmt.Errorf("start bridge: %w", err)
			}
			fmt.Printf("%s bridge listening on %s (mode=%s)\n", green("started"), b.Addr(), b.Mode())

			<-ctx.Done()
			fmt.Println(yellow("shutting down"))
			return b.Close(context.Background())
		},
	}
}
