package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	err := newRootCommand(opts).ExecuteContext(ctx)
	opts.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type rootOptions struct {
	client string
	app    *app
}

// close flushes metrics and releases the app, also after a failed command.
func (o *rootOptions) close() {
	if o.app == nil {
		return
	}
	o.app.flushMetrics()
	o.app.Close()
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "outreach",
		Short:         "multi-tenant outreach planning and variant learning",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.client, "client", "", "client slug (default: every configured client where allowed)")

	rootCmd.AddCommand(
		runCommand(opts),
		planCommand(opts),
		draftCommand(opts),
		approveCommand(opts),
		sendCommand(opts),
		eventCommand(opts),
		syncRepliesCommand(opts),
		statsCommand(opts),
		metricsCommand(opts),
		serveCommand(opts),
	)
	return rootCmd
}
