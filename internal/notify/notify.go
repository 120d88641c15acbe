// Package notify provides desktop notification support.
package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

// Send raises a desktop notification via notify-send. Urgency is one of
// low, normal, critical; empty means normal. Failure is returned, not
// fatal — a headless host simply has no notifier.
func Send(title, message, urgency string) error {
	args := []string{"--app-name", "cupswatch"}
	if urgency != "" {
		args = append(args, "--urgency", urgency)
	}
	args = append(args, title, message)

	cmd := exec.Command("notify-send", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
