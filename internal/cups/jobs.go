package cups

import (
	"strings"
	"unicode"

	"github.com/msageha/cupswatch/internal/model"
)

// fileJoinSep joins multiple continuation lines of one job entry.
const fileJoinSep = " | "

// ParseJobs turns the text of an lpstat -o -l listing into ordered job
// records. The format is line-oriented: a line starting in column one
// opens a new entry ("<id> <owner> <size/flags/date...>"), indented lines
// carry filename/media details for the open entry, and a blank line
// terminates an entry. Entries without a parsable id are dropped whole.
// Both the -W not-completed and the unfiltered dialects follow this
// indentation convention, so the parser is dialect-agnostic.
func ParseJobs(text string) []model.Job {
	var jobs []model.Job

	var current model.Job
	active := false

	flush := func() {
		if active && current.ID != "" {
			jobs = append(jobs, current)
		}
		current = model.Job{}
		active = false
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if !unicode.IsSpace(rune(line[0])) {
			flush()
			active = true

			fields := strings.Fields(line)
			current.ID = fields[0]
			if len(fields) > 1 {
				current.Owner = fields[1]
			}
			if rest := restAfterFields(line, 2); rest != "" {
				current.StatusText = rest
				current.SubmittedAt = parseSubmittedAt(rest)
			}
			continue
		}

		// Continuation line. One appearing before any header is dropped.
		if active {
			cont := strings.TrimSpace(line)
			if cont != "" {
				if current.FileDescription != "" {
					current.FileDescription += fileJoinSep
				}
				current.FileDescription += cont
			}
		}
	}

	flush()
	return jobs
}

// restAfterFields returns the trimmed remainder of line after skipping
// the first n whitespace-separated fields.
func restAfterFields(line string, n int) string {
	rest := strings.TrimLeft(line, " \t")
	for i := 0; i < n; i++ {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[idx:], " \t")
	}
	return strings.TrimSpace(rest)
}
