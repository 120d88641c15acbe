package daemon

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/msageha/cupswatch/internal/model"
	"github.com/msageha/cupswatch/internal/uds"
)

// View types returned over the control socket. Ages are rendered on the
// daemon side so every client shows the same labels.

type jobView struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	StatusText      string `json:"status_text,omitempty"`
	FileDescription string `json:"file_description,omitempty"`
	SubmittedAt     string `json:"submitted_at,omitempty"`
	Age             string `json:"age"`
	AgeMinutes      int    `json:"age_minutes"`
	Highlight       bool   `json:"highlight"`
}

type recoveryView struct {
	QueueEmpty bool   `json:"queue_empty"`
	ReasonHint string `json:"reason_hint,omitempty"`
	Eligible   bool   `json:"eligible"`
}

type snapshotView struct {
	CapturedAt time.Time     `json:"captured_at"`
	RawStatus  string        `json:"raw_status"`
	Summary    string        `json:"summary"`
	Disabled   bool          `json:"disabled"`
	Recovery   *recoveryView `json:"recovery,omitempty"`
	Jobs       []jobView     `json:"jobs"`
}

type statusView struct {
	Printer            string `json:"printer"`
	RefreshIntervalSec int    `json:"refresh_interval_sec"`
	HighlightMin       int    `json:"highlight_min"`
	WakeRunning        bool   `json:"wake_running"`
	QueueSummary       string `json:"queue_summary"`
	Disabled           bool   `json:"disabled"`
	JobCount           int    `json:"job_count"`
	CapturedAt         string `json:"captured_at"`
}

type cancelResult struct {
	Canceled int `json:"canceled"`
}

func (d *Daemon) snapshotView(snap *model.Snapshot) snapshotView {
	view := snapshotView{
		CapturedAt: snap.CapturedAt,
		RawStatus:  snap.State.RawStatusLine,
		Summary:    snap.State.Summary(),
		Disabled:   snap.State.Disabled,
		Jobs:       []jobView{},
	}
	if snap.Recovery != nil {
		view.Recovery = &recoveryView{
			QueueEmpty: snap.Recovery.QueueEmpty,
			ReasonHint: snap.Recovery.ReasonHint,
			Eligible:   snap.Recovery.Eligible,
		}
	}
	for _, row := range d.mon.Rows(snap) {
		jv := jobView{
			ID:              row.Job.ID,
			Owner:           row.Job.Owner,
			StatusText:      row.Job.StatusText,
			FileDescription: row.Job.FileDescription,
			Age:             row.Age.Label,
			AgeMinutes:      row.Age.Minutes,
			Highlight:       row.Highlight,
		}
		if row.Job.HasSubmittedAt() {
			jv.SubmittedAt = row.Job.SubmittedAt.Format(time.RFC3339)
		}
		view.Jobs = append(view.Jobs, jv)
	}
	return view
}

func (d *Daemon) registerHandlers() {
	d.server.Handle(uds.CmdPing, func(req *uds.Request) *uds.Response {
		return uds.SuccessResponse(map[string]string{"status": "ok"})
	})

	d.server.Handle(uds.CmdStatus, func(req *uds.Request) *uds.Response {
		snap := d.mon.Snapshot()
		view := statusView{
			Printer:            d.config.Printer.Name,
			RefreshIntervalSec: int(d.mon.Interval() / time.Second),
			HighlightMin:       d.mon.HighlightThreshold(),
			QueueSummary:       snap.State.Summary(),
			Disabled:           snap.State.Disabled,
			JobCount:           len(snap.Jobs),
		}
		if d.prober != nil {
			view.WakeRunning = d.prober.Running()
		}
		if !snap.CapturedAt.IsZero() {
			view.CapturedAt = snap.CapturedAt.Format(time.RFC3339)
		}
		return uds.SuccessResponse(view)
	})

	d.server.Handle(uds.CmdSnapshot, func(req *uds.Request) *uds.Response {
		return uds.SuccessResponse(d.snapshotView(d.mon.Snapshot()))
	})

	d.server.Handle(uds.CmdRefresh, func(req *uds.Request) *uds.Response {
		return uds.SuccessResponse(d.snapshotView(d.mon.Refresh()))
	})

	d.server.Handle(uds.CmdSetInterval, func(req *uds.Request) *uds.Response {
		var params struct {
			Seconds int `json:"seconds"`
		}
		if err := decodeParams(req, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, err.Error())
		}
		if params.Seconds < 0 {
			return uds.ErrorResponse(uds.ErrCodeValidation, "seconds must be >= 0")
		}
		d.mon.SetInterval(time.Duration(params.Seconds) * time.Second)
		d.log(LogLevelInfo, "refresh interval set to %ds", params.Seconds)
		return uds.SuccessResponse(map[string]int{"seconds": params.Seconds})
	})

	d.server.Handle(uds.CmdSetThreshold, func(req *uds.Request) *uds.Response {
		var params struct {
			Minutes int `json:"minutes"`
		}
		if err := decodeParams(req, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, err.Error())
		}
		if params.Minutes < 0 {
			return uds.ErrorResponse(uds.ErrCodeValidation, "minutes must be >= 0")
		}
		d.mon.SetHighlightThreshold(params.Minutes)
		d.log(LogLevelInfo, "highlight threshold set to %dm", params.Minutes)
		return uds.SuccessResponse(map[string]int{"minutes": params.Minutes})
	})

	d.server.Handle(uds.CmdCancel, func(req *uds.Request) *uds.Response {
		var params struct {
			ID string `json:"id"`
		}
		if err := decodeParams(req, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, err.Error())
		}
		if strings.TrimSpace(params.ID) == "" {
			return uds.ErrorResponse(uds.ErrCodeValidation, "id is required")
		}
		if err := d.mon.CancelJob(params.ID); err != nil {
			return uds.ErrorResponse(uds.ErrCodeMutationFailed, err.Error())
		}
		return uds.SuccessResponse(d.snapshotView(d.mon.Snapshot()))
	})

	d.server.Handle(uds.CmdCancelUser, func(req *uds.Request) *uds.Response {
		var params struct {
			Owner string `json:"owner"`
		}
		if err := decodeParams(req, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, err.Error())
		}
		if strings.TrimSpace(params.Owner) == "" {
			return uds.ErrorResponse(uds.ErrCodeValidation, "owner is required")
		}
		count, err := d.mon.CancelAllByOwner(params.Owner)
		if err != nil {
			return uds.ErrorResponse(uds.ErrCodeMutationFailed,
				fmt.Sprintf("canceled %d before failure: %v", count, err))
		}
		return uds.SuccessResponse(cancelResult{Canceled: count})
	})

	d.server.Handle(uds.CmdCancelAll, func(req *uds.Request) *uds.Response {
		if err := d.mon.CancelAll(); err != nil {
			return uds.ErrorResponse(uds.ErrCodeMutationFailed, err.Error())
		}
		return uds.SuccessResponse(d.snapshotView(d.mon.Snapshot()))
	})

	d.server.Handle(uds.CmdPause, func(req *uds.Request) *uds.Response {
		if err := d.mon.PauseQueue(); err != nil {
			return uds.ErrorResponse(uds.ErrCodeMutationFailed, err.Error())
		}
		return uds.SuccessResponse(d.snapshotView(d.mon.Snapshot()))
	})

	d.server.Handle(uds.CmdResume, func(req *uds.Request) *uds.Response {
		if err := d.mon.ResumeQueue(); err != nil {
			return uds.ErrorResponse(uds.ErrCodeMutationFailed, err.Error())
		}
		return uds.SuccessResponse(d.snapshotView(d.mon.Snapshot()))
	})
}

func decodeParams(req *uds.Request, v any) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("missing params")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
