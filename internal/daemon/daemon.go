// Package daemon wires the queue monitor, the control socket, the wake
// prober, and the history ledger into the long-running cupswatch watch
// process.
package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/msageha/cupswatch/internal/config"
	"github.com/msageha/cupswatch/internal/cups"
	"github.com/msageha/cupswatch/internal/events"
	"github.com/msageha/cupswatch/internal/history"
	"github.com/msageha/cupswatch/internal/lock"
	"github.com/msageha/cupswatch/internal/model"
	"github.com/msageha/cupswatch/internal/monitor"
	"github.com/msageha/cupswatch/internal/notify"
	"github.com/msageha/cupswatch/internal/uds"
	"github.com/msageha/cupswatch/internal/wake"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func parseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Daemon is the cupswatch watch process.
type Daemon struct {
	cfgPath  string
	dir      string
	config   *model.Config
	logLevel LogLevel
	logger   *log.Logger
	logFile  io.Closer

	fileLock *lock.FileLock
	server   *uds.Server
	bus      *events.Bus
	mon      *monitor.Monitor
	prober   *wake.Prober
	ledger   *history.Store
	cfgWatch *config.Watcher

	unsubs   []func()
	shutdown sync.Once
}

// Dir returns the daemon working directory (socket, lock, logs).
func Dir(cfgPath string, cfg *model.Config) string {
	if cfg.Daemon.Dir != "" {
		return cfg.Daemon.Dir
	}
	return filepath.Dir(cfgPath)
}

// New creates a daemon logging to <dir>/logs/cupswatch.log.
func New(cfgPath string, cfg *model.Config) (*Daemon, error) {
	dir := Dir(cfgPath, cfg)
	logPath := filepath.Join(dir, "logs", "cupswatch.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open daemon log: %w", err)
	}

	return newDaemon(cfgPath, cfg, nil, logFile, logFile), nil
}

// newDaemon is the internal constructor for testing: runner and the log
// writer are injectable.
func newDaemon(cfgPath string, cfg *model.Config, runner cups.Runner, w io.Writer, closer io.Closer) *Daemon {
	dir := Dir(cfgPath, cfg)

	bus := events.NewBus(64)
	logger := log.New(w, "", log.LstdFlags)
	client := cups.NewClient(cfg.Printer.Name, cfg.Printer.UseSudo, runner)

	d := &Daemon{
		cfgPath:  cfgPath,
		dir:      dir,
		config:   cfg,
		logLevel: parseLogLevel(cfg.Logging.Level),
		logger:   logger,
		logFile:  closer,
		fileLock: lock.NewFileLock(filepath.Join(dir, "cupswatch.lock")),
		server:   uds.NewServer(filepath.Join(dir, uds.DefaultSocketName)),
		bus:      bus,
		mon:      monitor.New(client, bus, logger),
	}

	if cfg.Printer.Host != "" {
		d.prober = wake.New(cfg.Printer.Host, cfg.Wake.Port, bus, logger)
	}
	return d
}

// Start acquires the lock and brings every component up. It does not
// block; pair with WaitSignals or Shutdown.
func (d *Daemon) Start() error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("ensure daemon dir: %w", err)
	}
	if err := d.fileLock.TryLock(); err != nil {
		return err
	}

	if d.config.History.Enabled {
		path := d.config.History.Path
		if path == "" {
			path = filepath.Join(d.dir, "history.db")
		}
		ledger, err := history.Open(path)
		if err != nil {
			d.cleanup()
			return err
		}
		d.ledger = ledger
		d.unsubs = append(d.unsubs, d.bus.Subscribe(events.TypeSnapshot, d.recordSnapshot))
	}

	// Queue state flips are worth a desktop notification; everything
	// else stays in the log.
	d.unsubs = append(d.unsubs, d.bus.Subscribe(events.TypeQueueStateChanged, d.notifyStateChange))

	d.registerHandlers()
	if err := d.server.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start control server: %w", err)
	}
	d.log(LogLevelInfo, "control socket listening in %s", d.dir)

	d.mon.SetHighlightThreshold(d.config.Highlight.ThresholdMin)
	d.mon.Refresh()
	d.mon.SetInterval(d.config.RefreshInterval())

	if d.prober != nil {
		d.prober.Start(d.config.WakeInterval())
	}

	watcher, err := config.Watch(d.cfgPath, d.applyConfig)
	if err != nil {
		d.log(LogLevelWarn, "config watch disabled: %v", err)
	} else {
		d.cfgWatch = watcher
	}

	d.log(LogLevelInfo, "watching printer %s (refresh %s)",
		d.config.Printer.Name, d.config.RefreshInterval())
	return nil
}

// Run starts the daemon and blocks until a shutdown signal arrives.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}
	d.waitSignals()
	return nil
}

// applyConfig folds a live config edit into the running components.
// Printer identity changes need a restart and are ignored with a log
// line; interval and threshold changes apply immediately.
func (d *Daemon) applyConfig(cfg *model.Config) {
	if cfg.Printer.Name != d.config.Printer.Name {
		d.log(LogLevelWarn, "printer.name changed on disk; restart to apply")
	}

	d.log(LogLevelInfo, "config reloaded: refresh %s, highlight %dm",
		cfg.RefreshInterval(), cfg.Highlight.ThresholdMin)
	d.mon.SetHighlightThreshold(cfg.Highlight.ThresholdMin)
	d.mon.SetInterval(cfg.RefreshInterval())
	if d.prober != nil {
		d.prober.Start(cfg.WakeInterval())
	}
	d.config.Refresh = cfg.Refresh
	d.config.Highlight = cfg.Highlight
	d.config.Wake = cfg.Wake
}

func (d *Daemon) recordSnapshot(e events.Event) {
	snap, ok := e.Data["snapshot"].(*model.Snapshot)
	if !ok || d.ledger == nil {
		return
	}
	if err := d.ledger.RecordSnapshot(snap); err != nil {
		d.log(LogLevelError, "record history: %v", err)
	}
}

func (d *Daemon) notifyStateChange(e events.Event) {
	urgency := "normal"
	if e.Severity == events.SeverityWarning {
		urgency = "critical"
	}
	if err := notify.Send("cupswatch", e.Message, urgency); err != nil {
		d.log(LogLevelDebug, "desktop notification: %v", err)
	}
}

// waitSignals blocks until a shutdown signal is received.
func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	d.log(LogLevelInfo, "received signal=%s, shutting down", sig)

	// Second signal forces exit.
	go func() {
		<-sigCh
		d.log(LogLevelWarn, "received second signal, forcing exit")
		os.Exit(1)
	}()

	d.Shutdown()
}

// Shutdown stops every component, idempotently. The refresh scheduler
// only stops future ticks; an in-flight refresh finishes and publishes
// before the bus closes behind it.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.log(LogLevelInfo, "shutdown started")

		if d.cfgWatch != nil {
			_ = d.cfgWatch.Close()
		}
		if d.prober != nil {
			d.prober.Stop()
		}
		d.mon.Stop()
		if d.server != nil {
			_ = d.server.Stop()
		}

		// Give a straggling scheduled refresh a moment to publish.
		deadline := time.Duration(d.config.Daemon.ShutdownTimeoutSec) * time.Second
		if deadline > 0 {
			done := make(chan struct{})
			go func() {
				d.mon.Refresh() // queues behind any in-flight cycle
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(deadline):
				d.log(LogLevelWarn, "shutdown timeout after %s", deadline)
			}
		}

		d.cleanup()
		d.log(LogLevelInfo, "daemon stopped")
	})
}

func (d *Daemon) cleanup() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
	d.bus.Close()
	if d.ledger != nil {
		_ = d.ledger.Close()
	}
	_ = d.fileLock.Unlock()
	if d.logFile != nil {
		_ = d.logFile.Close()
	}
}

func (d *Daemon) log(level LogLevel, format string, args ...any) {
	if level < d.logLevel {
		return
	}
	prefix := [...]string{"DEBUG", "INFO", "WARN", "ERROR"}[level]
	d.logger.Printf("[%s] "+format, append([]any{prefix}, args...)...)
}
