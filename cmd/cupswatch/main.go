package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/msageha/cupswatch/internal/config"
	"github.com/msageha/cupswatch/internal/cups"
	"github.com/msageha/cupswatch/internal/daemon"
	"github.com/msageha/cupswatch/internal/diag"
	"github.com/msageha/cupswatch/internal/history"
	"github.com/msageha/cupswatch/internal/model"
	"github.com/msageha/cupswatch/internal/uds"
	"github.com/msageha/cupswatch/internal/wake"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "jobs":
		runJobs(os.Args[2:])
	case "refresh":
		runSimpleCommand(uds.CmdRefresh, nil, "queue refreshed")
	case "cancel":
		runCancel(os.Args[2:])
	case "cancel-user":
		runCancelUser(os.Args[2:])
	case "cancel-all":
		runCancelAll(os.Args[2:])
	case "pause":
		runSimpleCommand(uds.CmdPause, nil, "queue paused")
	case "resume":
		runSimpleCommand(uds.CmdResume, nil, "queue resumed")
	case "set-interval":
		runSetInterval(os.Args[2:])
	case "set-threshold":
		runSetThreshold(os.Args[2:])
	case "diag":
		runDiag(os.Args[2:])
	case "wake":
		runWake(os.Args[2:])
	case "version":
		fmt.Printf("cupswatch %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// findConfig locates cupswatch.yaml: $CUPSWATCH_CONFIG, the working
// directory and its parents, then ~/.cupswatch/.
func findConfig() string {
	if env := os.Getenv("CUPSWATCH_CONFIG"); env != "" {
		return env
	}
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, config.DefaultFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, ".cupswatch", config.DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func mustLoadConfig() (string, *model.Config) {
	path := findConfig()
	if path == "" {
		fmt.Fprintln(os.Stderr, "error: no cupswatch.yaml found. Run 'cupswatch init <printer>' first.")
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	return path, cfg
}

func daemonClient() *uds.Client {
	cfgPath, cfg := mustLoadConfig()
	socket := filepath.Join(daemon.Dir(cfgPath, cfg), uds.DefaultSocketName)
	return uds.NewClient(socket)
}

func send(command string, params any) *uds.Response {
	resp, err := daemonClient().SendCommand(command, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
		os.Exit(1)
	}
	return resp
}

func runInit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cupswatch init <printer> [host]")
		os.Exit(1)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	dir := filepath.Join(home, ".cupswatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	cfg := &model.Config{}
	cfg.Printer.Name = args[0]
	if len(args) > 1 {
		cfg.Printer.Host = args[1]
	}
	cfg.Refresh.IntervalSec = 15
	cfg.Highlight.ThresholdMin = 10
	cfg.Daemon.Dir = dir
	cfg.ApplyDefaults()

	path := filepath.Join(dir, config.DefaultFileName)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "init: %s already exists\n", path)
		os.Exit(1)
	}
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func runWatch(_ []string) {
	cfgPath, cfg := mustLoadConfig()

	d, err := daemon.New(cfgPath, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create daemon: %v\n", err)
		os.Exit(1)
	}
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
		os.Exit(1)
	}
}

func runStatus(args []string) {
	asJSON := hasFlag(args, "--json")
	resp := send(uds.CmdStatus, nil)
	if asJSON {
		printRawJSON(resp.Data)
		return
	}

	var status struct {
		Printer            string `json:"printer"`
		RefreshIntervalSec int    `json:"refresh_interval_sec"`
		HighlightMin       int    `json:"highlight_min"`
		WakeRunning        bool   `json:"wake_running"`
		QueueSummary       string `json:"queue_summary"`
		JobCount           int    `json:"job_count"`
		CapturedAt         string `json:"captured_at"`
	}
	mustUnmarshal(resp.Data, &status)

	fmt.Printf("Printer:   %s\n", status.Printer)
	fmt.Printf("%s\n", status.QueueSummary)
	fmt.Printf("Jobs:      %d\n", status.JobCount)
	fmt.Printf("Refresh:   every %ds\n", status.RefreshIntervalSec)
	fmt.Printf("Highlight: jobs older than %dm\n", status.HighlightMin)
	if status.WakeRunning {
		fmt.Println("Wake:      running")
	}
	if status.CapturedAt != "" {
		fmt.Printf("Captured:  %s\n", status.CapturedAt)
	}
}

func runJobs(args []string) {
	asJSON := hasFlag(args, "--json")
	if hasFlag(args, "--history") {
		runJobsHistory(asJSON)
		return
	}

	resp := send(uds.CmdSnapshot, nil)
	if asJSON {
		printRawJSON(resp.Data)
		return
	}

	var snap struct {
		Summary  string `json:"summary"`
		Disabled bool   `json:"disabled"`
		Recovery *struct {
			ReasonHint string `json:"reason_hint"`
			Eligible   bool   `json:"eligible"`
		} `json:"recovery"`
		Jobs []struct {
			ID              string `json:"id"`
			Owner           string `json:"owner"`
			StatusText      string `json:"status_text"`
			FileDescription string `json:"file_description"`
			Age             string `json:"age"`
			Highlight       bool   `json:"highlight"`
		} `json:"jobs"`
	}
	mustUnmarshal(resp.Data, &snap)

	fmt.Println(snap.Summary)
	if snap.Recovery != nil && snap.Recovery.Eligible {
		fmt.Printf("Auto-recovery candidate: %s\n", snap.Recovery.ReasonHint)
	}
	if len(snap.Jobs) == 0 {
		fmt.Println("No jobs queued.")
		return
	}
	for _, j := range snap.Jobs {
		marker := " "
		if j.Highlight {
			marker = "!"
		}
		fmt.Printf("%s %-16s %-10s %6s  %s\n", marker, j.ID, j.Owner, j.Age, j.StatusText)
		if j.FileDescription != "" {
			fmt.Printf("      %s\n", j.FileDescription)
		}
	}
}

func runJobsHistory(asJSON bool) {
	cfgPath, cfg := mustLoadConfig()
	if !cfg.History.Enabled {
		fmt.Fprintln(os.Stderr, "history is not enabled in cupswatch.yaml")
		os.Exit(1)
	}
	path := cfg.History.Path
	if path == "" {
		path = filepath.Join(daemon.Dir(cfgPath, cfg), "history.db")
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read history: %v\n", err)
		os.Exit(1)
	}
	if asJSON {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}
	if len(entries) == 0 {
		fmt.Println("No recorded jobs.")
		return
	}
	for _, e := range entries {
		state := "queued"
		if e.GoneAt != nil {
			state = "gone " + e.GoneAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-16s %-10s first %s  %s\n",
			e.ID, e.Owner, e.FirstSeen.Format("2006-01-02 15:04"), state)
	}
}

func runCancel(args []string) {
	args, yes := stripYes(args)
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cupswatch cancel [-y] <job-id>")
		os.Exit(1)
	}
	if !yes && !confirm(fmt.Sprintf("Cancel job %s?", args[0])) {
		return
	}
	send(uds.CmdCancel, map[string]string{"id": args[0]})
	fmt.Printf("Canceled %s\n", args[0])
}

func runCancelUser(args []string) {
	args, yes := stripYes(args)
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cupswatch cancel-user [-y] <owner>")
		os.Exit(1)
	}
	if !yes && !confirm(fmt.Sprintf("Cancel all jobs owned by %s?", args[0])) {
		return
	}
	resp := send(uds.CmdCancelUser, map[string]string{"owner": args[0]})

	var result struct {
		Canceled int `json:"canceled"`
	}
	mustUnmarshal(resp.Data, &result)
	fmt.Printf("Canceled %d job(s) owned by %s\n", result.Canceled, args[0])
}

func runCancelAll(args []string) {
	_, yes := stripYes(args)
	if !yes && !confirm("Cancel ALL jobs in the queue?") {
		return
	}
	send(uds.CmdCancelAll, nil)
	fmt.Println("Canceled all jobs")
}

func runSimpleCommand(command string, params any, okMessage string) {
	send(command, params)
	fmt.Println(okMessage)
}

func runSetInterval(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cupswatch set-interval <seconds>")
		os.Exit(1)
	}
	seconds, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid seconds: %s\n", args[0])
		os.Exit(1)
	}
	send(uds.CmdSetInterval, map[string]int{"seconds": seconds})
	if seconds == 0 {
		fmt.Println("Automatic refresh stopped")
	} else {
		fmt.Printf("Refresh interval set to %ds\n", seconds)
	}
}

func runSetThreshold(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: cupswatch set-threshold <minutes>")
		os.Exit(1)
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid minutes: %s\n", args[0])
		os.Exit(1)
	}
	send(uds.CmdSetThreshold, map[string]int{"minutes": minutes})
	if minutes == 0 {
		fmt.Println("Age highlighting disabled")
	} else {
		fmt.Printf("Highlighting jobs older than %dm\n", minutes)
	}
}

// runDiag talks to the spooler directly; it is useful exactly when the
// daemon is not healthy, so it must not depend on it.
func runDiag(args []string) {
	asJSON := hasFlag(args, "--json")
	_, cfg := mustLoadConfig()

	client := cups.NewClient(cfg.Printer.Name, cfg.Printer.UseSudo, nil)
	checker := diag.New(client, cfg.Printer.Host, cfg.Wake.Port, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	outcomes := checker.Run(ctx)

	if asJSON {
		data, _ := json.MarshalIndent(outcomes, "", "  ")
		fmt.Println(string(data))
		return
	}

	failed := false
	for _, o := range outcomes {
		mark := "ok  "
		switch o.Level {
		case diag.LevelWarning:
			mark = "warn"
		case diag.LevelError:
			mark = "FAIL"
			failed = true
		}
		fmt.Printf("[%s] %-12s %s\n", mark, o.Name, o.Detail)
	}
	if failed {
		os.Exit(1)
	}
}

// runWake is a one-shot probe, independent of the daemon's continuous mode.
func runWake(_ []string) {
	_, cfg := mustLoadConfig()
	if cfg.Printer.Host == "" {
		fmt.Fprintln(os.Stderr, "printer.host is not set in cupswatch.yaml")
		os.Exit(1)
	}

	prober := wake.New(cfg.Printer.Host, cfg.Wake.Port, nil, nil)
	if err := prober.Probe(); err != nil {
		fmt.Fprintf(os.Stderr, "wake: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Touched %s:%d\n", cfg.Printer.Host, cfg.Wake.Port)
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func stripYes(args []string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	yes := false
	for _, a := range args {
		if a == "-y" || a == "--yes" {
			yes = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, yes
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printRawJSON(data json.RawMessage) {
	var buf any
	if err := json.Unmarshal(data, &buf); err != nil {
		fmt.Println(string(data))
		return
	}
	out, _ := json.MarshalIndent(buf, "", "  ")
	fmt.Println(string(out))
}

func mustUnmarshal(data json.RawMessage, v any) {
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Fprintf(os.Stderr, "decode response: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cupswatch %s — CUPS print queue watcher

Usage: cupswatch <command> [options]

Setup:
  init <printer> [host]   Write a starter ~/.cupswatch/cupswatch.yaml
  watch                   Run the watch daemon (foreground)

Queue:
  status [--json]         Daemon and queue summary
  jobs [--json]           Current job listing with ages
  jobs --history          Recorded job ledger (requires history.enabled)
  refresh                 Force an immediate refresh

Mutations (prompt unless -y):
  cancel [-y] <job-id>    Cancel one job
  cancel-user [-y] <owner> Cancel every job owned by a user
  cancel-all [-y]         Cancel everything in the queue
  pause                   Disable the queue (cupsdisable)
  resume                  Enable the queue (cupsenable)

Tuning:
  set-interval <seconds>  Change refresh interval (0 stops)
  set-threshold <minutes> Change age highlight threshold (0 disables)

Printer:
  diag [--json]           One-shot health checks (ping, port, scheduler, stuck jobs)
  wake                    Touch the printer's print port once

  version                 Show version
  help                    Show this help

`, version)
}
