package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
	"github.com/eugenenazirov/code-allocator/internal/display"
	"github.com/eugenenazirov/code-allocator/internal/logging"
	"github.com/eugenenazirov/code-allocator/internal/parser"
	"github.com/eugenenazirov/code-allocator/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "allocate: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	input     string
	target    int
	unit      int
	window    int
	overshoot int
	maxAmount int
	logLevel  string

	noOvershoot bool
	strategy    string
	sort        string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options

	app := kingpin.New("allocate", "Pick code combinations that reach a target amount")
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	app.Flag("input", "File with pasted codes (defaults to stdin)").Short('i').StringVar(&opts.input)
	app.Flag("target", "Target amount").Short('t').Default(fmt.Sprint(storage.DefaultTarget)).IntVar(&opts.target)
	app.Flag("unit", "Quantization unit").Default(fmt.Sprint(allocator.DefaultUnit)).IntVar(&opts.unit)
	app.Flag("max-amount", "Largest accepted amount per line").Default(fmt.Sprint(parser.DefaultMaxAmount)).IntVar(&opts.maxAmount)
	app.Flag("log-level", "Log level written to stderr").Default("warn").StringVar(&opts.logLevel)

	solve := app.Command("solve", "Find the single combination closest to the target")
	solve.Flag("no-overshoot", "Never exceed the target").BoolVar(&opts.noOvershoot)
	solve.Flag("strategy", "Search strategy").Default("dp").EnumVar(&opts.strategy, "dp", "greedy")
	solve.Flag("overshoot-window", "Overshoot bound in quantized units (-1 sizes it to the largest item)").
		Default(fmt.Sprint(allocator.AutoOvershootWindow)).IntVar(&opts.overshoot)

	partition := app.Command("partition", "Split every code into sets that each reach the target")
	partition.Flag("window", "Extraction window above the target, in quantized units").
		Default(fmt.Sprint(allocator.DefaultExtractionWindow)).IntVar(&opts.window)
	partition.Flag("sort", "Order of the printed sets").Default(string(allocator.SortByIndex)).StringVar(&opts.sort)

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pool, err := readPool(opts, stdin, stderr)
	if err != nil {
		return err
	}

	switch command {
	case solve.FullCommand():
		return runSolve(opts, pool, stdout)
	case partition.FullCommand():
		return runPartition(ctx, opts, pool, logger, stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// readPool parses the input and reports rejected lines on stderr.
func readPool(opts options, stdin io.Reader, stderr io.Writer) ([]allocator.Item, error) {
	src := stdin
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	result := parser.Parse(string(raw), parser.WithMaxAmount(opts.maxAmount))
	for _, line := range result.Lines {
		if !line.Valid {
			fmt.Fprintf(stderr, "line %d: %s\n", line.Number, line.Error)
		}
	}
	if result.ValidCount == 0 {
		return nil, fmt.Errorf("no valid codes in input")
	}
	return result.Items, nil
}

func runSolve(opts options, pool []allocator.Item, stdout io.Writer) error {
	var solver allocator.Solver = allocator.Greedy{}
	if opts.strategy != "greedy" {
		engine, err := allocator.New(
			allocator.WithUnit(opts.unit),
			allocator.WithOvershootWindow(opts.overshoot),
		)
		if err != nil {
			return err
		}
		solver = engine
	}

	result, err := solver.SolveBestCombination(pool, opts.target, !opts.noOvershoot)
	if err != nil {
		return err
	}

	if result.Count > 0 {
		fmt.Fprintln(stdout, display.CombinationText(result))
		fmt.Fprintln(stdout)
	}
	fmt.Fprintf(stdout, "%d items, sum %s, diff %s\n",
		result.Count, display.FormatAmount(result.Sum), display.FormatAmount(result.Diff))
	return nil
}

func runPartition(ctx context.Context, opts options, pool []allocator.Item, logger *zap.Logger, stdout io.Writer) error {
	engine, err := allocator.New(
		allocator.WithUnit(opts.unit),
		allocator.WithExtractionWindow(opts.window),
	)
	if err != nil {
		return err
	}

	result, err := allocator.NewPartitioner(engine, allocator.WithLogger(logger)).Partition(ctx, pool, opts.target)
	if err != nil {
		return err
	}
	if result.Sets, err = allocator.SortSets(result.Sets, allocator.SortKey(opts.sort)); err != nil {
		return err
	}

	if text := display.BatchText(result); text != "" {
		fmt.Fprintln(stdout, text)
		fmt.Fprintln(stdout)
	}
	fmt.Fprintf(stdout, "%d of %d possible sets, efficiency %s%%, allocated %s, unallocated %s\n",
		result.TotalSets, result.TheoreticalMax, result.Efficiency.String(),
		display.FormatAmount(result.TotalAllocated), display.FormatAmount(result.TotalUnallocated))
	return nil
}
