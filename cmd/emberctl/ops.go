package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/inspect"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

var (
	browseRecursive bool
	browseDepth     int
	setType         string
	subscribeCount  int
)

var browseCmd = &cobra.Command{
	Use:   "browse [path]",
	Short: "List the children of a node",
	Long: `List the immediate children of a node. Without a path the root is
listed. With --recursive the whole subtree is fetched.`,
	Example: `  emberctl browse --host 10.0.0.5
  emberctl browse Device.Audio --host 10.0.0.5
  emberctl browse --recursive --depth 3 --host 10.0.0.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

var getCmd = &cobra.Command{
	Use:     "get <path>",
	Short:   "Read a parameter value",
	Example: `  emberctl get 0.1.2 --host 10.0.0.5`,
	Args:    cobra.ExactArgs(1),
	RunE:    runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Write a parameter value",
	Long: `Write a parameter value. The raw value is converted according to
--type: string (default), number, boolean or null. Booleans accept
true/false, 1/0, yes/no and on/off.`,
	Example: `  emberctl set Device.Audio.Gain -6 --type number --host 10.0.0.5
  emberctl set 0.1.0 on --type boolean --host 10.0.0.5`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <path>...",
	Short: "Print value changes until interrupted",
	Long: `Subscribe to one or more parameters and print every change until
interrupted. The connection is not re-established when lost; use watch for
that.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubscribe,
}

func init() {
	browseCmd.Flags().BoolVarP(&browseRecursive, "recursive", "r", false, "Fetch the whole subtree")
	browseCmd.Flags().IntVar(&browseDepth, "depth", 0, "Maximum depth for --recursive (0 = unlimited)")
	setCmd.Flags().StringVarP(&setType, "type", "t", "string", "Value type: string, number, boolean, null")
	subscribeCmd.Flags().IntVarP(&subscribeCount, "count", "n", 0, "Exit after this many updates (0 = never)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	return withClient(cmd, func(ctx context.Context, a *app) error {
		if browseRecursive {
			ins := inspect.NewInspector(a.client)
			ins.MaxDepth = browseDepth
			nodes, err := ins.InspectTree(ctx, path)
			if err != nil {
				return err
			}
			return a.print(nodes, strings.TrimSuffix(a.formatter.FormatTree(nodes), "\n"))
		}

		res, err := a.client.Browse(ctx, path)
		if err != nil {
			return err
		}
		return a.print(res, strings.TrimSuffix(a.formatter.FormatBrowse(res), "\n"))
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, a *app) error {
		res, err := a.client.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return a.print(res, a.formatter.FormatGet(res))
	})
}

func runSet(cmd *cobra.Command, args []string) error {
	kind, err := value.ParseKind(setType)
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, a *app) error {
		res, err := a.client.SetRaw(ctx, args[0], args[1], kind)
		if err != nil {
			return err
		}
		return a.print(res, a.formatter.FormatSet(res))
	})
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, a *app) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		records := make(chan consumer.Record, 64)
		for _, path := range args {
			res, err := a.client.Subscribe(ctx, path, func(c subscription.Change) {
				select {
				case records <- changeRecord(c):
				default:
					a.logger.Warn("Dropping update, output is slow", "path", c.Path)
				}
			})
			if err != nil {
				return err
			}
			if err := a.print(res, fmt.Sprintf("subscribed %s = %s", res.Path, a.formatter.FormatValue(res.CurrentValue))); err != nil {
				return err
			}
		}

		a.client.OnLost(func(cause error) { cancel() })

		seen := 0
		for {
			select {
			case <-ctx.Done():
				if !a.client.IsConnected() {
					return &consumer.Error{
						Kind:    consumer.KindNotConnected,
						Op:      "subscribe",
						Host:    a.cfg.Host,
						Port:    a.cfg.Port,
						Message: "connection lost",
					}
				}
				return nil
			case rec := <-records:
				if err := a.print(rec, a.formatter.FormatRecord(rec)); err != nil {
					return err
				}
				seen++
				if subscribeCount > 0 && seen >= subscribeCount {
					return nil
				}
			}
		}
	})
}

// changeRecord converts a dispatched change into a record.
func changeRecord(c subscription.Change) consumer.Record {
	rec := consumer.Record{
		Path:      c.Path,
		Value:     toValue(c.Value),
		Timestamp: c.Timestamp,
	}
	if !c.First && c.Previous != nil {
		prev := toValue(c.Previous)
		rec.PreviousValue = &prev
	}
	return rec
}

func toValue(x any) value.Value {
	v, err := value.FromAny(x)
	if err != nil {
		return value.String(fmt.Sprint(x))
	}
	return v
}
