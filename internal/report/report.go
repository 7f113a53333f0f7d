// Package report renders run logs for the operator reviewing which stages
// need follow-up. Delivery (chat webhooks etc.) is someone else's job.
package report

import (
	"fmt"
	"io"

	"github.com/joshua-d-miller/enrollpipe/internal/stage"
)

// glyphs match the operator-facing output of the enrollment tooling this
// replaces, so existing runbooks keep reading the same.
const (
	glyphOK   = "✓"
	glyphFail = "✖"
)

// Render writes a full run summary to w.
func Render(w io.Writer, log *stage.RunLog) {
	fmt.Fprintf(w, "Run %s (%s mode, started at %s)\n", log.ID, log.Mode, log.StartedAt)
	fmt.Fprintf(w, "  Start stage: %s\n", log.StartStage)

	for _, r := range log.Results {
		glyph := glyphOK
		if r.Failed() {
			glyph = glyphFail
		}
		fmt.Fprintf(w, "  %s %-24s %s", glyph, r.Stage, r.Duration)
		if r.Message != "" {
			fmt.Fprintf(w, "  (%s)", r.Message)
		}
		fmt.Fprintln(w)
	}

	failures := log.Failures()
	if len(failures) == 0 {
		fmt.Fprintf(w, "All %d stages completed successfully.\n", len(log.Results))
		return
	}

	fmt.Fprintf(w, "%d of %d stages failed and need follow-up:\n", len(failures), len(log.Results))
	for _, r := range failures {
		fmt.Fprintf(w, "  - %s: %s\n", r.Stage, r.Message)
	}
}

// Summary returns a one-line digest of a run, for list views.
func Summary(log *stage.RunLog) string {
	return fmt.Sprintf("%d/%d ok", len(log.Results)-len(log.Failures()), len(log.Results))
}
