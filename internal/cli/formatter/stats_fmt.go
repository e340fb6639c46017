package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/studyclock/internal/contract"
	"github.com/alexanderramin/studyclock/internal/domain"
)

const statsBarWidth = 24

var periodLabels = []struct {
	period domain.StatsPeriod
	label  string
}{
	{domain.PeriodToday, "Today"},
	{domain.PeriodWeek, "This week"},
	{domain.PeriodMonth, "This month"},
	{domain.PeriodYear, "This year"},
}

// FormatStats renders the aggregate windows and the last-7-days chart.
func FormatStats(resp *contract.StatsResponse) string {
	var b strings.Builder

	totals := map[domain.StatsPeriod]int64{
		domain.PeriodToday: resp.Today,
		domain.PeriodWeek:  resp.Week,
		domain.PeriodMonth: resp.Month,
		domain.PeriodYear:  resp.Year,
	}
	rows := make([][]string, 0, len(periodLabels))
	for _, p := range periodLabels {
		rows = append(rows, []string{
			StyleFg.Render(p.label),
			Bold(FormatSeconds(totals[p.period])),
			Dim(contract.FormatDuration(totals[p.period])),
		})
	}
	b.WriteString(Table{
		Headers:    []string{"PERIOD", "TIME", "EXACT"},
		Rows:       rows,
		RightAlign: map[int]bool{1: true},
	}.Render())

	if len(resp.Last7Days) > 0 {
		b.WriteString("\n" + Header("Last 7 days") + "\n")
		var peak int64
		for _, d := range resp.Last7Days {
			peak = max(peak, d.Seconds)
		}
		for _, d := range resp.Last7Days {
			fmt.Fprintf(&b, "%s  %s  %s\n",
				Dim(d.Date), RenderBar(d.Seconds, peak, statsBarWidth), FormatSeconds(d.Seconds))
		}
	}

	return RenderBox("Study time", b.String())
}
