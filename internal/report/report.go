// Package report renders end-of-run summaries as tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"zonerun/internal/orchestrator"
	"zonerun/internal/taskgroup"
)

const maxErrorLength = 100

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(titles ...string) table.Row {
	row := make(table.Row, len(titles))
	for i, title := range titles {
		row[i] = text.FgHiCyan.Sprint(title)
	}
	return row
}

// Summary writes the phases of a run, the per-container task results and
// the exit code to w.
func Summary(w io.Writer, outcome *orchestrator.Outcome) {
	if outcome == nil {
		return
	}

	t := newTable(w)
	t.SetTitle("Phases")
	t.AppendHeader(header("STATE", "DURATION", "RESULT"))
	for _, p := range outcome.Phases {
		t.AppendRow(table.Row{string(p.State), p.Duration.Round(time.Millisecond).String(), phaseResult(p)})
	}
	t.Render()

	Tasks(w, outcome.Tasks...)

	code := fmt.Sprintf("%d", outcome.ExitCode)
	if outcome.CommandsRun == 0 {
		code = "none (no command ran)"
	}
	fmt.Fprintf(w, "%s %d %s %s\n",
		text.FgHiBlue.Sprint("Commands run:"),
		outcome.CommandsRun,
		text.FgHiBlue.Sprint("exit code:"),
		text.FgHiWhite.Sprint(code))
}

func phaseResult(p orchestrator.PhaseResult) string {
	switch {
	case p.Err != nil:
		return text.FgRed.Sprint("failed: " + shorten(p.Err))
	case p.Skipped:
		return text.FgYellow.Sprint("skipped")
	default:
		return text.FgGreen.Sprint("ok")
	}
}

// Tasks writes one row per task of every group to w. Groups without tasks
// are left out.
func Tasks(w io.Writer, results ...*taskgroup.Results) {
	var rows []table.Row
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, key := range res.Keys() {
			err, _ := res.Get(key)
			status := text.FgGreen.Sprint("ok")
			if err != nil {
				status = text.FgRed.Sprint("failed: " + shorten(err))
			}
			rows = append(rows, table.Row{res.Name, key, status})
		}
	}
	if len(rows) == 0 {
		return
	}

	t := newTable(w)
	t.SetTitle("Tasks")
	t.AppendHeader(header("GROUP", "CONTAINER", "RESULT"))
	t.AppendRows(rows)
	t.Render()
}

// shorten keeps the first line of err, cut to maxErrorLength.
func shorten(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	if utf8.RuneCountInString(msg) > maxErrorLength {
		msg = text.Trim(msg, maxErrorLength-3) + "..."
	}
	return msg
}
