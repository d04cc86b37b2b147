package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"habitbot/internal/app"
	"habitbot/internal/dateparse"
	"habitbot/internal/extract"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

// Context is bound into every subcommand's Run.
type Context struct {
	ConfigPath string
	Out        io.Writer
	Log        logx.Logger
}

type RunCmd struct {
	StopTimeout time.Duration `help:"Upper bound for graceful shutdown." default:"10s"`
}

func (c *RunCmd) Run(cctx *Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cctx.ConfigPath)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, stop := context.WithTimeout(context.Background(), c.StopTimeout)
		defer stop()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		} else {
			reason = app.StopAppStop
		}
	}

	stopCtx, stop := context.WithTimeout(context.Background(), c.StopTimeout)
	defer stop()
	if err := a.Stop(stopCtx, reason); err != nil {
		return err
	}
	return a.Err()
}

type ParseDateCmd struct {
	Text []string `arg:"" help:"Date expression, e.g. 'завтра' or '31.12.2025'."`
}

func (c *ParseDateCmd) Run(cctx *Context) error {
	p := dateparse.New()
	text := strings.Join(c.Text, " ")
	t, ok := p.Parse(text)
	if !ok {
		return fmt.Errorf("no date found in %q", text)
	}
	if err := p.Validate(t); err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "%s (%s)\n", dateparse.Format(t), p.Relative(t))
	return nil
}

type ExtractCmd struct {
	Text []string `arg:"" help:"Habit description."`
}

func (c *ExtractCmd) Run(cctx *Context) error {
	dates := dateparse.New()
	in := extract.New(dates).Extract(strings.Join(c.Text, " "))

	w := cctx.Out
	fmt.Fprintf(w, "name:     %s\n", in.Name)
	if in.Rule != nil {
		fmt.Fprintf(w, "rule:     %s\n", in.Rule.Describe())
	}
	if in.Time != nil {
		fmt.Fprintf(w, "time:     %s (%s)\n", in.Time, in.Time.Qualifier)
	}
	if in.Duration != nil {
		fmt.Fprintf(w, "duration: %s\n", in.Duration)
	}
	for _, d := range in.Dates {
		fmt.Fprintf(w, "date:     %s\n", dateparse.Format(d))
	}
	fmt.Fprintf(w, "reminder: %t\n", in.Reminder)
	for _, e := range in.Errors {
		fmt.Fprintf(w, "error:    %s\n", e)
	}
	return nil
}

type MigrateCmd struct {
	DB     string `help:"SQLite database file." default:"./habitbot.db" type:"path"`
	Status bool   `help:"Only print the current schema version."`
}

func (c *MigrateCmd) Run(cctx *Context) error {
	db, err := storage.OpenDB(storage.Config{Driver: "sqlite", Path: c.DB})
	if err != nil {
		return err
	}
	defer db.Close()

	if !c.Status {
		if err := storage.Migrate(db, cctx.Log); err != nil {
			return err
		}
	}
	v, err := storage.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Fprintf(cctx.Out, "schema version: %d\n", v)
	return nil
}
