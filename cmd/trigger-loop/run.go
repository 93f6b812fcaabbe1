package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/trigger-loop/internal/binding"
	"github.com/sweeney/trigger-loop/internal/config"
	"github.com/sweeney/trigger-loop/internal/gpio"
	"github.com/sweeney/trigger-loop/internal/logger"
	"github.com/sweeney/trigger-loop/internal/loop"
	"github.com/sweeney/trigger-loop/internal/mqtt"
	"github.com/sweeney/trigger-loop/internal/status"
	"github.com/sweeney/trigger-loop/internal/task"
	"github.com/sweeney/trigger-loop/internal/web"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the control loop until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts.ConfigPath, cfg, log)
		},
	}
}

func run(ctx context.Context, path string, cfg *config.Config, log *slog.Logger) error {
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Lines())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	d, err := newDaemon(path, cfg, reader, publisher, publisher, time.Now, log)
	if err != nil {
		return err
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, d.tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTP)
	}

	log.Info("started",
		"poll", cfg.Poll,
		"heartbeat", cfg.Heartbeat,
		"broker", cfg.Broker,
		"inputs", len(cfg.Inputs),
		"tasks", len(cfg.Tasks),
		"bindings", d.reactions,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return d.runLoop(ctx, ticker.C, sigCh)
}

// daemon is the assembled control loop with its reporting.
type daemon struct {
	inputs    *gpio.Inputs
	sched     *task.Scheduler
	loop      *loop.Loop
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus // may be nil
	tracker   *status.Tracker
	reactions int

	heartbeat time.Duration
	lastBeat  time.Time
	now       func() time.Time
	log       *slog.Logger
}

func newDaemon(path string, cfg *config.Config, reader gpio.Reader, publisher mqtt.Publisher, conn mqtt.ConnectionStatus, now func() time.Time, log *slog.Logger) (*daemon, error) {
	d := &daemon{
		inputs:    gpio.NewInputs(reader),
		sched:     task.NewScheduler(now, mqtt.NewNotifier(publisher, log)),
		publisher: publisher,
		conn:      conn,
		heartbeat: cfg.Heartbeat,
		now:       now,
		log:       log,
	}
	d.loop = loop.New(d.inputs, d.sched, log)

	n, err := binding.Build(cfg, d.loop, d.inputs, d.sched, binding.WithClock(now), binding.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build bindings: %w", err)
	}
	d.reactions = n

	d.tracker = status.NewTracker(now(), status.Config{
		Path:        path,
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
		Inputs:      len(cfg.Inputs),
		Tasks:       len(cfg.Tasks),
		Bindings:    n,
	})
	d.loop.Observe(d.afterCycle)
	return d, nil
}

// runLoop publishes STARTUP, cycles on every tick until a signal arrives or
// ctx ends, then cancels running tasks and publishes SHUTDOWN.
func (d *daemon) runLoop(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.lastBeat = d.now()
	d.publishStatus("STARTUP", "", true)

	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			d.log.Info("shutting down", "signal", s)
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
			reason <- "CONTEXT"
		}
	}()

	err := d.loop.Run(ctx, tick, d.now)
	cancel()
	why := <-reason

	d.sched.StopAll()
	d.publishStatus("SHUTDOWN", why, true)
	return err
}

// afterCycle runs on the loop goroutine after every cycle.
func (d *daemon) afterCycle(now time.Time, err error) {
	d.updateTracker()
	if err == nil {
		d.log.Log(context.Background(), logger.LevelTrace, "cycle", "active", d.sched.Active())
	}

	if d.heartbeat > 0 && now.Sub(d.lastBeat) >= d.heartbeat {
		d.lastBeat = now
		c := d.sched.Counts()
		d.log.Info("heartbeat",
			"cycles", d.loop.Stats().Cycles,
			"started", c.Started,
			"timed_out", c.TimedOut,
			"interrupted", c.Interrupted,
		)
		d.publishStatus("HEARTBEAT", "", false)
	}
}

func (d *daemon) updateTracker() {
	sample, inputErr := d.inputs.Sample()
	d.tracker.Update(sample, inputErr, d.sched.States(), d.sched.Counts(), d.loop.Stats())
	if d.conn != nil {
		d.tracker.SetMQTTConnected(d.conn.IsConnected())
	}
}

func (d *daemon) publishStatus(event, reason string, retained bool) {
	d.updateTracker()
	snap := d.tracker.Snapshot()
	err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		d.log.Warn("publish system event", "event", event, "err", err)
		return
	}
	d.log.Info("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
