package formatter

import (
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// FormatSessions renders recent study sessions newest first as returned by
// the backend.
func FormatSessions(sessions []domain.StudySession, now time.Time) string {
	if len(sessions) == 0 {
		return RenderBox("Recent sessions", Dim("No study sessions yet."))
	}

	loc := now.Location()
	rows := make([][]string, 0, len(sessions))
	var total int64
	for _, s := range sessions {
		end := Dim("--")
		if s.EndTime != nil {
			end = s.EndTime.In(loc).Format("15:04:05")
		}
		rows = append(rows, []string{
			HumanDate(s.StartTime, now),
			s.StartTime.In(loc).Format("15:04:05"),
			end,
			Bold(FormatSeconds(s.DurationSeconds)),
			TruncID(s.ID),
		})
		total += s.DurationSeconds
	}

	out := Table{
		Headers:    []string{"DATE", "START", "END", "DURATION", "ID"},
		Rows:       rows,
		RightAlign: map[int]bool{3: true},
	}.Render()
	out += "\n" + Dim("Shown: ") + Bold(FormatSeconds(total))
	return RenderBox("Recent sessions", out)
}
