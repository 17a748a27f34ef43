// Command opc-trace views and analyzes OPC session trace files.
//
// Trace files are created by running opc-cli with the -trace flag, or by
// attaching a trace.FileLogger to a session.
//
// Usage:
//
//	opc-trace <command> [flags] <file.olog>
//
// Commands:
//
//	view     View a trace file in human-readable format
//	export   Export a trace file as JSON lines
//	filter   Filter a trace file and write the matches to a new file
//	stats    Show per-operation statistics
//
// Examples:
//
//	# View all events
//	opc-trace view session.olog
//
//	# View only failed operations
//	opc-trace view -errors session.olog
//
//	# View one sub-group's sync reads
//	opc-trace view -op SYNC_READ -group plant.0 session.olog
//
//	# Keep one session's events in a new file
//	opc-trace filter -session 7c9e6679 -o filtered.olog session.olog
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/openda-project/openda-go/pkg/trace"
)

const usage = `opc-trace - OPC session trace analyzer

Usage:
  opc-trace <command> [flags] <file.olog>

Commands:
  view     View a trace file in human-readable format
  export   Export a trace file as JSON lines
  filter   Filter a trace file and write the matches to a new file
  stats    Show per-operation statistics

Use "opc-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs and returns a
// builder that assembles the trace.Filter after parsing.
func filterFlags(fs *flag.FlagSet) func() (trace.Filter, error) {
	session := fs.String("session", "", "Filter by session ID")
	op := fs.String("op", "", "Filter by operation (e.g. SYNC_READ, CALLBACK)")
	group := fs.String("group", "", "Filter by sub-group name")
	onlyErrors := fs.Bool("errors", false, "Keep only failed operations")

	return func() (trace.Filter, error) {
		filter := trace.Filter{
			SessionID:  *session,
			Group:      *group,
			OnlyErrors: *onlyErrors,
		}
		if *op != "" {
			parsed, err := parseOp(*op)
			if err != nil {
				return trace.Filter{}, err
			}
			filter.Op = &parsed
		}
		return filter, nil
	}
}

func parseOp(name string) (trace.Op, error) {
	want := strings.ToUpper(name)
	for op := trace.OpConnect; op <= trace.OpCallback; op++ {
		if op.String() == want {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", name)
}

func openReader(fs *flag.FlagSet, build func() (trace.Filter, error)) (*trace.Reader, error) {
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, fmt.Errorf("trace file path required")
	}
	filter, err := build()
	if err != nil {
		return nil, err
	}
	return trace.NewFilteredReader(fs.Arg(0), filter)
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := openReader(fs, build)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		printEvent(event)
	}
}

func printEvent(event trace.Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-13s", event.Timestamp.Format("15:04:05.000000"), event.Op)
	if event.Group != "" {
		fmt.Fprintf(&b, "  group=%s", event.Group)
	}
	if event.TagCount > 0 {
		fmt.Fprintf(&b, "  tags=%d", event.TagCount)
	}
	if event.TransactionID != 0 {
		fmt.Fprintf(&b, "  tx=%d", event.TransactionID)
	}
	if event.Source != "" {
		fmt.Fprintf(&b, "  source=%s", event.Source)
	}
	if event.Duration > 0 {
		fmt.Fprintf(&b, "  took=%s", event.Duration)
	}
	if event.Error != "" {
		fmt.Fprintf(&b, "  error=%q", event.Error)
	}
	fmt.Println(b.String())
}

// exportedEvent is the JSON shape of one trace event.
type exportedEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	Op            string    `json:"op"`
	Group         string    `json:"group,omitempty"`
	TagCount      int       `json:"tag_count,omitempty"`
	TransactionID uint16    `json:"transaction_id,omitempty"`
	Source        string    `json:"source,omitempty"`
	DurationUS    int64     `json:"duration_us,omitempty"`
	Error         string    `json:"error,omitempty"`
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := openReader(fs, build)
	if err != nil {
		return err
	}
	defer reader.Close()

	enc := json.NewEncoder(os.Stdout)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		out := exportedEvent{
			Timestamp:     event.Timestamp,
			SessionID:     event.SessionID,
			Op:            event.Op.String(),
			Group:         event.Group,
			TagCount:      event.TagCount,
			TransactionID: event.TransactionID,
			Source:        event.Source,
			DurationUS:    event.Duration.Microseconds(),
			Error:         event.Error,
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}

func runFilter(args []string) error {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	build := filterFlags(fs)
	outPath := fs.String("o", "", "Output file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("output file required (-o)")
	}

	reader, err := openReader(fs, build)
	if err != nil {
		return err
	}
	defer reader.Close()

	out, err := trace.NewFileLogger(*outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		out.Log(event)
		count++
	}
	fmt.Printf("Wrote %d events to %s\n", count, *outPath)
	return nil
}

type opStats struct {
	count    int
	errors   int
	total    time.Duration
	longest  time.Duration
	tagTotal int
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := openReader(fs, build)
	if err != nil {
		return err
	}
	defer reader.Close()

	stats := make(map[trace.Op]*opStats)
	var first, last time.Time
	total := 0

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		total++
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if event.Timestamp.After(last) {
			last = event.Timestamp
		}

		s := stats[event.Op]
		if s == nil {
			s = &opStats{}
			stats[event.Op] = s
		}
		s.count++
		s.total += event.Duration
		s.tagTotal += event.TagCount
		if event.Duration > s.longest {
			s.longest = event.Duration
		}
		if event.Error != "" {
			s.errors++
		}
	}

	if total == 0 {
		fmt.Println("No events")
		return nil
	}

	fmt.Printf("Events: %d  (%s .. %s)\n\n", total,
		first.Format(time.RFC3339), last.Format(time.RFC3339))
	fmt.Printf("%-13s %8s %8s %8s %12s %12s\n",
		"OP", "COUNT", "ERRORS", "TAGS", "AVG", "MAX")

	ops := make([]trace.Op, 0, len(stats))
	for op := range stats {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })

	for _, op := range ops {
		s := stats[op]
		avg := time.Duration(0)
		if s.count > 0 {
			avg = s.total / time.Duration(s.count)
		}
		fmt.Printf("%-13s %8d %8d %8d %12s %12s\n",
			op, s.count, s.errors, s.tagTotal, avg, s.longest)
	}
	return nil
}
