package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/studyclock/internal/delivery"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
)

// ClockFace renders the HH:MM:SS counter colored by phase.
func ClockFace(state domain.TimerState) string {
	return PhaseColor(state.Phase()).Bold(true).Render(stopwatch.FormatClock(state.ElapsedSeconds))
}

// FormatTimerStatus renders the persisted timer state and the outbox size.
func FormatTimerStatus(state domain.TimerState, pending int, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", ClockFace(state), PhaseIndicator(state.Phase()))
	if state.StartedAt != nil {
		fmt.Fprintf(&b, "%s %s\n", Dim("Started:"), HumanTimestamp(*state.StartedAt, now))
	}

	b.WriteString("\n")
	switch {
	case pending < 0:
		b.WriteString(Dim("Outbox: unavailable") + "\n")
	case pending == 0:
		b.WriteString(Dim("Outbox: empty") + "\n")
	default:
		b.WriteString(StyleYellow.Render(fmt.Sprintf("Outbox: %d pending", pending)) +
			Dim("  (run `studyclock sync`)") + "\n")
	}

	if state.Running {
		b.WriteString("\n" + Dim("If no timer is open, this run is recovered on the next start.") + "\n")
	}

	return RenderBox("Timer", b.String())
}

// FormatLoadResult describes what startup reconciliation did.
func FormatLoadResult(res stopwatch.LoadResult) string {
	switch {
	case res.Recovered != nil:
		rec := res.Recovered
		end := ""
		if rec.EndTime != nil {
			end = rec.EndTime.Local().Format("15:04:05")
		}
		return StyleGreen.Render("Recovered interrupted session: ") +
			Bold(FormatSeconds(rec.DurationSeconds)) +
			Dim(fmt.Sprintf(" (%s → %s) ", rec.StartTime.Local().Format("15:04:05"), end)) +
			TruncID(rec.ID)
	case res.Interrupted:
		return Dim("Interrupted run was too short to record.")
	case res.RestoredSeconds > 0:
		return StyleYellow.Render("Restored paused timer at ") + Bold(stopwatch.FormatClock(res.RestoredSeconds))
	default:
		return Dim("Nothing to recover.")
	}
}

// FormatDrainResult summarizes one outbox replay.
func FormatDrainResult(res delivery.DrainResult) string {
	if res.Delivered+res.Failed+res.Dropped == 0 {
		if res.Remaining == 0 {
			return Dim("Outbox is empty.")
		}
		return StyleYellow.Render(fmt.Sprintf("Nothing replayed, %d still pending.", res.Remaining))
	}

	parts := []string{StyleGreen.Render(fmt.Sprintf("%d delivered", res.Delivered))}
	if res.Failed > 0 {
		parts = append(parts, StyleYellow.Render(fmt.Sprintf("%d failed", res.Failed)))
	}
	if res.Dropped > 0 {
		parts = append(parts, StyleRed.Render(fmt.Sprintf("%d dropped", res.Dropped)))
	}
	line := strings.Join(parts, ", ")
	if res.Remaining > 0 {
		line += Dim(fmt.Sprintf("  (%d pending)", res.Remaining))
	}
	return line
}
