package analytics

import (
	"sort"

	"github.com/Napageneral/chatscope/internal/reconcile"
)

// MovingAverageWindow is the trailing window of the daily moving average.
const MovingAverageWindow = 7

// MaxFilledDays bounds the gap-filled daily series. Longer spans list only
// the days that have messages.
const MaxFilledDays = 100 * 366

// DayCount is the message count of one calendar day.
type DayCount struct {
	Date  string   `json:"date"`
	Count int      `json:"count"`
	MA7   *float64 `json:"ma7"`
}

// Daily counts messages per UTC calendar day from the first to the last day
// present, filling silent days with zero, and attaches a 7-day trailing
// moving average that is nil until a full window is available. Rows with a
// garbage timestamp are left out.
func Daily(rows []reconcile.Row) []DayCount {
	start, end, ok := DateSpan(rows)
	if !ok {
		return []DayCount{}
	}

	counts := make(map[string]int)
	for _, r := range rows {
		if r.HasValidTime() {
			counts[dateOf(r.Datetime).Format(DateLayout)]++
		}
	}

	var out []DayCount
	if daysBetween(start, end) < MaxFilledDays {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			key := d.Format(DateLayout)
			out = append(out, DayCount{Date: key, Count: counts[key]})
		}
	} else {
		for key, n := range counts {
			out = append(out, DayCount{Date: key, Count: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	}

	sum := 0
	for i := range out {
		sum += out[i].Count
		if i >= MovingAverageWindow {
			sum -= out[i-MovingAverageWindow].Count
		}
		if i >= MovingAverageWindow-1 {
			out[i].MA7 = ptr(float64(sum) / MovingAverageWindow)
		}
	}
	return out
}
