package main

import (
	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/cmd/emberctl/interactive"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session on one connection",
	Long: `Open one connection and accept commands interactively. Type 'help'
inside the shell for the command list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		if err := a.client.Connect(ctx); err != nil {
			return err
		}

		sh, err := interactive.New(a.client, interactive.Config{
			Target:    a.client.Config().ConnID,
			Formatter: a.formatter,
			Watch:     a.cfg.WatchOptions(),
		})
		if err != nil {
			return err
		}
		sh.Run(ctx)
		return nil
	},
}
