package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"iconkit/parallel"
	"iconkit/preview"
	"iconkit/recolor"

	"github.com/alecthomas/kong"
)

type cli struct {
	Workers   int    `help:"Number of parallel workers, 0 for one per CPU" default:"1" env:"ICONKIT_WORKERS"`
	LogLevel  string `help:"Log level" enum:"debug,info,warn,error" default:"info" env:"ICONKIT_LOG_LEVEL"`
	LogFormat string `help:"Log format" enum:"text,json" default:"text"`

	Recolor recolor.CLICmd `cmd:"" help:"Recolor colored pixels of icons to a theme color"`
	Preview preview.CLICmd `cmd:"" help:"Preview service smoke test tools"`
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unsupported log format %q", format)
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("iconkit"),
		kong.Description("Icon theming and preview smoke test tools"),
		kong.UsageOnError(),
	)

	logger, err := newLogger(os.Stdout, c.LogLevel, c.LogFormat)
	kctx.FatalIfErrorf(err)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := parallel.Start(c.Workers)
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(os.Stdout, (*io.Writer)(nil))

	err = kctx.Run(pool)
	stop()
	kctx.FatalIfErrorf(err)
}
