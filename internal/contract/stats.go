package contract

import "github.com/alexanderramin/studyclock/internal/domain"

// DayLabelLayout formats the last-7-days chart labels as dd/mm.
const DayLabelLayout = "02/01"

// DayTotal is one bar of the last-7-days chart.
type DayTotal struct {
	Date    string `json:"date"`
	Seconds int64  `json:"seconds"`
}

// StatsResponse is the body of GET /study-sessions/stats.
type StatsResponse struct {
	Today     int64      `json:"today"`
	Week      int64      `json:"week"`
	Month     int64      `json:"month"`
	Year      int64      `json:"year"`
	Last7Days []DayTotal `json:"last_7_days"`
}

func NewStatsResponse(s domain.StudyStats) StatsResponse {
	resp := StatsResponse{
		Today:     s.Today,
		Week:      s.Week,
		Month:     s.Month,
		Year:      s.Year,
		Last7Days: make([]DayTotal, 0, len(s.Last7Days)),
	}
	for _, d := range s.Last7Days {
		resp.Last7Days = append(resp.Last7Days, DayTotal{
			Date:    d.Day.Format(DayLabelLayout),
			Seconds: d.Seconds,
		})
	}
	return resp
}
