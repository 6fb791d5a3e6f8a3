// Package interactive provides the interactive shell of emberctl.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/inspect"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Config configures a Shell.
type Config struct {
	// Target is shown in the prompt, usually host:port.
	Target string

	Formatter *inspect.Formatter

	// Watch configures subscriptions made with "sub".
	Watch consumer.WatchOptions
}

// Shell runs commands against one connected client.
type Shell struct {
	client    *consumer.Client
	config    Config
	formatter *inspect.Formatter
	inspector *inspect.Inspector
	watcher   *consumer.Watcher
	rl        *readline.Instance

	cwd string
}

// New creates a shell on client. The client should already be connected.
func New(client *consumer.Client, cfg Config) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt(cfg.Target, ""),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	f := cfg.Formatter
	if f == nil {
		f = inspect.NewFormatter()
	}

	s := &Shell{
		client:    client,
		config:    cfg,
		formatter: f,
		inspector: inspect.NewInspector(client),
		rl:        rl,
	}
	s.watcher = consumer.NewWatcher(client, cfg.Watch, func(rec consumer.Record) {
		fmt.Fprintln(s.rl.Stdout(), s.formatter.FormatRecord(rec))
	})
	s.watcher.OnExhausted(func(err error) {
		fmt.Fprintf(s.rl.Stderr(), "Connection lost for good: %v\n", err)
	})
	s.watcher.OnRestored(func() {
		fmt.Fprintln(s.rl.Stdout(), "Connection restored")
	})
	return s, nil
}

// Run reads commands until quit, EOF or ctx ends. Subscriptions are
// dropped and the client is closed on return.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()
	defer s.watcher.Close(context.Background())

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()
		case "ls", "browse":
			s.cmdBrowse(ctx, args)
		case "cd":
			s.cmdCd(ctx, args)
		case "pwd":
			fmt.Fprintln(s.rl.Stdout(), displayPath(s.cwd))
		case "tree":
			s.cmdTree(ctx, args)
		case "get":
			s.cmdGet(ctx, args)
		case "set":
			s.cmdSet(ctx, args)
		case "sub", "subscribe":
			s.cmdSub(ctx, args)
		case "unsub", "unsubscribe":
			s.cmdUnsub(args)
		case "subs":
			s.cmdSubs()
		case "status":
			s.cmdStatus()
		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) arg(args []string, i int) string {
	if i < len(args) {
		return resolvePath(s.cwd, args[i])
	}
	return s.cwd
}

func (s *Shell) cmdBrowse(ctx context.Context, args []string) {
	res, err := s.client.Browse(ctx, s.arg(args, 0))
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.rl.Stdout(), s.formatter.FormatBrowse(res))
}

func (s *Shell) cmdCd(ctx context.Context, args []string) {
	target := ""
	if len(args) > 0 {
		target = resolvePath(s.cwd, args[0])
	}
	if target != "" {
		res, err := s.client.Get(ctx, target)
		if err != nil {
			s.printError(err)
			return
		}
		target = res.Path
	}
	s.cwd = target
	s.rl.SetPrompt(prompt(s.config.Target, displayPath(s.cwd)))
}

func (s *Shell) cmdTree(ctx context.Context, args []string) {
	path := s.arg(args, 0)
	depth := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			fmt.Fprintf(s.rl.Stdout(), "Invalid depth: %s\n", args[1])
			return
		}
		depth = n
	}
	s.inspector.MaxDepth = depth

	nodes, err := s.inspector.InspectTree(ctx, path)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.rl.Stdout(), s.formatter.FormatTree(nodes))
}

func (s *Shell) cmdGet(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: get <path>")
		return
	}
	res, err := s.client.Get(ctx, s.arg(args, 0))
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), s.formatter.FormatGet(res))
}

func (s *Shell) cmdSet(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: set <path> <value> [string|number|boolean]")
		return
	}
	path := s.arg(args, 0)

	var kind value.Kind
	if len(args) > 2 {
		k, err := value.ParseKind(args[2])
		if err != nil {
			s.printError(err)
			return
		}
		kind = k
	} else {
		cur, err := s.client.Get(ctx, path)
		if err != nil {
			s.printError(err)
			return
		}
		kind = cur.Value.Kind()
		if kind == value.KindNull {
			kind = value.KindString
		}
	}

	res, err := s.client.SetRaw(ctx, path, args[1], kind)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), s.formatter.FormatSet(res))
}

func (s *Shell) cmdSub(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: sub <path>")
		return
	}
	res, err := s.watcher.Watch(ctx, s.arg(args, 0))
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Subscribed to %s (current %s)\n",
		res.Path, s.formatter.FormatValue(res.CurrentValue))
}

func (s *Shell) cmdUnsub(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unsub <path>")
		return
	}
	path := s.arg(args, 0)
	if !s.watcher.Unwatch(path) {
		fmt.Fprintf(s.rl.Stdout(), "Not subscribed: %s\n", displayPath(path))
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Unsubscribed from %s\n", displayPath(path))
}

func (s *Shell) cmdSubs() {
	paths := s.watcher.Desired()
	if len(paths) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No subscriptions")
		return
	}
	bound := s.client.Registry().Paths()
	active := make(map[string]bool, len(bound))
	for _, p := range bound {
		active[p] = true
	}
	for _, p := range paths {
		state := "pending"
		if active[p] {
			state = "active"
		}
		fmt.Fprintf(s.rl.Stdout(), "  %s (%s)\n", p, state)
	}
}

func (s *Shell) cmdStatus() {
	out := s.rl.Stdout()
	cfg := s.client.Config()
	fmt.Fprintf(out, "Provider:      %s\n", cfg.ConnID)
	fmt.Fprintf(out, "State:         %s\n", s.client.State())
	fmt.Fprintf(out, "Subscriptions: %d\n", len(s.watcher.Desired()))
	fmt.Fprintf(out, "Directory:     %s\n", displayPath(s.cwd))
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
	var ce *consumer.Error
	if errors.As(err, &ce) {
		if hint := ce.Hint(); hint != "" {
			fmt.Fprintf(s.rl.Stdout(), "Hint: %s\n", hint)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `
Commands:
  ls [path]                 List children (alias: browse)
  cd <path>|..|/            Change directory
  pwd                       Show current directory
  tree [path] [depth]       Show subtree
  get <path>                Read a parameter
  set <path> <value> [type] Write a parameter (type: string, number, boolean)
  sub <path>                Subscribe and print changes
  unsub <path>              Cancel a subscription
  subs                      List subscriptions
  status                    Show connection state
  help                      Show this help
  quit                      Exit

Paths are relative to the current directory unless they start with '/'.
Numeric and identifier segments may be mixed: /0.Audio.2

`)
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
