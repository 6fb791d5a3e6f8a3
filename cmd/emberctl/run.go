package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/workitem"
)

var runContinue bool

var runCmd = &cobra.Command{
	Use:   "run <batch.yaml>",
	Short: "Run a batch of work items",
	Long: `Run the work items of a YAML batch file in order on one connection.

  name: level check
  continueOnFailure: true
  items:
    - operation: get
      path: Device.Audio.Gain
    - operation: set
      path: 0.1.2
      value: "-6"
      valueType: number

A failing item stops the batch unless continueOnFailure (or the flag) is
set. Connection failures always stop it.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	runCmd.Flags().BoolVar(&runContinue, "continue-on-failure", false, "Keep going after a failed item")
}

func runBatch(cmd *cobra.Command, args []string) error {
	batch, err := workitem.LoadBatch(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	runner := workitem.NewRunner(a.client, workitem.RunnerConfig{
		ContinueOnFailure: batch.ContinueOnFailure || runContinue,
		Logger:            a.logger,
	})
	res := runner.Run(ctx, batch.Items)

	if globals.output == "json" {
		if err := res.WriteJSON(a.out); err != nil {
			return err
		}
	} else {
		res.WriteText(a.out)
	}

	for _, r := range res.Results {
		if r.Err != nil {
			return fmt.Errorf("batch %q: %d of %d items failed: %w", batch.Name, res.FailCount, len(batch.Items), r.Err)
		}
	}
	return nil
}
