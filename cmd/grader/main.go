// Command grader compiles a program, runs it against a directory of test
// cases and prints a verdict for each of them.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/programme-lv/grader"
	"github.com/programme-lv/grader/internal/environment"
	"github.com/programme-lv/grader/internal/gatherer/multigath"
	"github.com/programme-lv/grader/internal/gatherer/natsgath"
	"github.com/programme-lv/grader/internal/gatherer/respbuilder"
	"github.com/programme-lv/grader/internal/gatherer/sqsgath"
	"github.com/programme-lv/grader/internal/gatherer/termgath"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args)
	if err != nil {
		// the terminal gatherer has already printed the diagnostics
		if !grader.IsKind(err, grader.KindCompile) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "grader",
		Usage:     "grade a program against a directory of test cases",
		ArgsUsage: "<file> <dir> [time-ms] [mem-mb]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "executable", Aliases: []string{"e"}, Usage: "file is already compiled"},
			&cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print compile details, program output and debug logs"},
			&cli.BoolFlag{Name: "zstd", Usage: "also pick up .in.zst and .out.zst test files"},
			&cli.StringFlag{Name: "nats-url", Usage: "publish job events to this NATS server"},
			&cli.StringFlag{Name: "nats-subject", Usage: "NATS subject for job events"},
			&cli.StringFlag{Name: "sqs-queue-url", Usage: "send job events to this SQS queue"},
			&cli.StringFlag{Name: "report", Usage: "write a JSON report of the job to this path"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, stdout, stderr)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	cfg, err := environment.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, cmd); err != nil {
		return err
	}

	level := cfg.SlogLevel()
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))

	gatherers := []grader.Gatherer{termgath.New(stdout, cmd.Bool("verbose"))}

	if cfg.Report.NatsUrl != "" {
		conn, err := natsgath.Connect(cfg.Report.NatsUrl, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		gatherers = append(gatherers, natsgath.New(conn, cfg.Report.NatsSubject, logger))
	}
	if cfg.Report.SqsQueueUrl != "" {
		client, err := sqsgath.NewClient(ctx, cfg.Report.AwsRegion)
		if err != nil {
			return err
		}
		gatherers = append(gatherers, sqsgath.New(client, cfg.Report.SqsQueueUrl, "", logger))
	}
	var report *respbuilder.Builder
	if path := cmd.String("report"); path != "" {
		report = respbuilder.New()
		gatherers = append(gatherers, report)
		defer func() {
			if err := report.WriteFile(path); err != nil {
				logger.Error("failed to write report", "path", path, "error", err)
			}
		}()
	}

	gcfg := grader.Config{
		TimeLimitMs:   cfg.TimeLimitMs,
		MemoryLimitMb: cfg.MemoryLimitMb,
	}
	file := cmd.Args().Get(0)
	if cmd.Bool("executable") {
		gcfg.Exec = file
	} else {
		gcfg.Source = file
	}

	g, err := grader.New(gcfg,
		grader.WithLogger(logger),
		grader.WithGatherer(multigath.New(gatherers...)),
		grader.WithCompiler(cfg.Compiler.Path, cfg.Compiler.Flags),
		grader.WithCacheDir(cfg.CacheDir),
		grader.WithPollInterval(cfg.PollInterval()),
		grader.WithZstdTests(cfg.Tests.Zstd),
	)
	if err != nil {
		return err
	}

	results, err := g.Grade(ctx, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	for results.Next() {
	}
	return results.Err()
}

// applyFlags puts positional limits and flags over the loaded configuration.
func applyFlags(cfg *environment.Config, cmd *cli.Command) error {
	args := cmd.Args()
	if args.Len() < 2 || args.Len() > 4 {
		return fmt.Errorf("expected <file> <dir> [time-ms] [mem-mb], got %d arguments", args.Len())
	}
	if args.Len() > 2 {
		ms, err := positiveInt("time-ms", args.Get(2))
		if err != nil {
			return err
		}
		cfg.TimeLimitMs = ms
	}
	if args.Len() > 3 {
		mb, err := positiveInt("mem-mb", args.Get(3))
		if err != nil {
			return err
		}
		cfg.MemoryLimitMb = mb
	}

	if cmd.Bool("zstd") {
		cfg.Tests.Zstd = true
	}
	if v := cmd.String("nats-url"); v != "" {
		cfg.Report.NatsUrl = v
	}
	if v := cmd.String("nats-subject"); v != "" {
		cfg.Report.NatsSubject = v
	}
	if v := cmd.String("sqs-queue-url"); v != "" {
		cfg.Report.SqsQueueUrl = v
	}
	return nil
}

func positiveInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return n, nil
}
