// Package interactive provides the interactive command-line interface
// for the OPC session shell.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/openda-project/openda-go/pkg/discovery"
	"github.com/openda-project/openda-go/pkg/health"
	"github.com/openda-project/openda-go/pkg/opc"
	"github.com/openda-project/openda-go/pkg/sim"
)

// Config provides session information to the shell.
type Config struct {
	Server  string
	Host    string
	Timeout time.Duration
	Version string
}

// Session handles interactive mode for opc-cli.
type Session struct {
	client *opc.Client
	src    *sim.Source
	config Config
	rl     *readline.Instance
}

// New creates a new interactive session handler.
func New(client *opc.Client, src *sim.Source, cfg Config) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "opc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Session{
		client: client,
		src:    src,
		config: cfg,
		rl:     rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (s *Session) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Session) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
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

		case "read", "r":
			s.cmdRead(ctx, args)

		case "write", "w":
			s.cmdWrite(ctx, args)

		case "groups", "g":
			s.cmdGroups()

		case "remove", "rm":
			s.cmdRemove(args)

		case "tags", "ls":
			s.cmdTags()

		case "health":
			s.cmdHealth(ctx)

		case "discover":
			s.cmdDiscover(ctx)

		case "info":
			s.cmdInfo()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
OPC Session Commands:
  Data:
    read <tag> [tag...]        - Read tags (add -g <group> to persist the group)
    write <tag>=<value> [...]  - Write values
    tags                       - List the simulated server's tags

  Groups:
    groups                     - List active tag groups
    remove <group> [...]       - Remove tag groups

  General:
    health                     - Read the system health tags
    discover                   - Browse for gateway sessions (5s)
    info                       - Show session information
    help                       - Show this help
    quit                       - Exit`)
}

// cmdRead handles: read [-g group] <tag> [tag...]
func (s *Session) cmdRead(ctx context.Context, args []string) {
	opts := opc.ReadOptions{Timeout: s.config.Timeout, IncludeError: true}

	var tags []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-g" && i+1 < len(args) {
			opts.Group = args[i+1]
			i++
			continue
		}
		tags = append(tags, args[i])
	}
	if len(tags) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: read [-g group] <tag> [tag...]")
		return
	}

	readings, err := s.client.Read(ctx, tags, opts)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	for _, r := range readings {
		s.printReading(r)
	}
}

// cmdWrite handles: write <tag>=<value> [tag=value...]
func (s *Session) cmdWrite(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: write <tag>=<value> [tag=value...]")
		return
	}

	pairs := make([]opc.TagValue, 0, len(args))
	for _, arg := range args {
		tag, raw, found := strings.Cut(arg, "=")
		if !found || tag == "" {
			fmt.Fprintf(s.rl.Stdout(), "Malformed pair %q, want tag=value\n", arg)
			return
		}
		pairs = append(pairs, opc.TagValue{Tag: tag, Value: parseValue(raw)})
	}

	results, err := s.client.Write(ctx, pairs, opc.WriteOptions{IncludeError: true})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Write failed: %v\n", err)
		return
	}
	for _, r := range results {
		if r.Status == opc.StatusSuccess {
			fmt.Fprintf(s.rl.Stdout(), "  %-24s %s\n", r.Tag, r.Status)
		} else {
			fmt.Fprintf(s.rl.Stdout(), "  %-24s %s  %s\n", r.Tag, r.Status, r.Error)
		}
	}
}

func (s *Session) cmdGroups() {
	groups := s.client.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No active groups")
		return
	}
	for _, group := range groups {
		fmt.Fprintf(s.rl.Stdout(), "  %s\n", group)
	}
}

func (s *Session) cmdRemove(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: remove <group> [group...]")
		return
	}
	if err := s.client.Remove(args...); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Remove failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Removed")
}

func (s *Session) cmdTags() {
	tags := s.src.Tags()
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(s.rl.Stdout(), "  %s\n", tag)
	}
}

func (s *Session) cmdHealth(ctx context.Context) {
	readings, err := s.client.Read(ctx, []string{
		health.TagMemFree, health.TagMemUsed, health.TagSane,
		health.TagTasks, health.TagUptime,
	}, opc.ReadOptions{})
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Health read failed: %v\n", err)
		return
	}
	for _, r := range readings {
		s.printReading(r)
	}
}

func (s *Session) cmdDiscover(ctx context.Context) {
	browseCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	results, err := browser.Browse(browseCtx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Discovery failed: %v\n", err)
		return
	}

	found := 0
	for gw := range results {
		found++
		fmt.Fprintf(s.rl.Stdout(), "  %s  server=%s session=%s %v\n",
			gw.InstanceName, gw.Server, gw.SessionID, gw.Addresses)
	}
	if found == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No gateway sessions found")
	}
}

func (s *Session) cmdInfo() {
	out := s.rl.Stdout()
	fmt.Fprintf(out, "  Server:     %s\n", s.config.Server)
	fmt.Fprintf(out, "  Host:       %s\n", s.config.Host)
	fmt.Fprintf(out, "  Session:    %s\n", s.client.GUID())
	if name := s.client.ClientName(); name != "" {
		fmt.Fprintf(out, "  Client:     %s\n", name)
	}
	fmt.Fprintf(out, "  Timeout:    %s\n", s.config.Timeout)
	fmt.Fprintf(out, "  Version:    %s\n", s.config.Version)
	fmt.Fprintf(out, "  Groups:     %d\n", len(s.client.Groups()))
}

func (s *Session) printReading(r opc.Reading) {
	if r.Quality == opc.QualityError {
		fmt.Fprintf(s.rl.Stdout(), "  %-24s <error>  %s\n", r.Tag, r.Error)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "  %-24s %-12v %-10s %s\n", r.Tag, r.Value, r.Quality, r.Timestamp)
}

// parseValue interprets a written value as bool, int, or float before
// falling back to a string.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
