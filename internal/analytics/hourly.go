package analytics

import (
	"time"

	"github.com/Napageneral/chatscope/internal/reconcile"
)

// HourBucket counts messages in one hour of the day.
type HourBucket struct {
	Hour     int `json:"hour"`
	Sent     int `json:"sent"`
	Received int `json:"received"`
}

// Total is Sent + Received.
func (h HourBucket) Total() int {
	return h.Sent + h.Received
}

// HourlyResult is the hour-of-day distribution in one time zone.
type HourlyResult struct {
	Timezone  string       `json:"timezone"`
	Hours     []HourBucket `json:"hours"`
	PeakHour  *int         `json:"peak_hour"`
	PeakCount int          `json:"peak_count"`
	PeakShare *float64     `json:"peak_share"`
}

// Hourly buckets messages by hour of day in loc. The stored instants are
// rebased into loc; the earliest hour wins a tie for the peak.
func Hourly(rows []reconcile.Row, loc *time.Location) HourlyResult {
	if loc == nil {
		loc = time.UTC
	}
	res := HourlyResult{Timezone: loc.String(), Hours: make([]HourBucket, 24)}
	for h := range res.Hours {
		res.Hours[h].Hour = h
	}
	for _, r := range rows {
		h := r.Datetime.In(loc).Hour()
		if r.FromMe {
			res.Hours[h].Sent++
		} else {
			res.Hours[h].Received++
		}
	}
	if len(rows) == 0 {
		return res
	}
	peak := 0
	for h, b := range res.Hours {
		if b.Total() > res.Hours[peak].Total() {
			peak = h
		}
	}
	res.PeakHour = ptr(peak)
	res.PeakCount = res.Hours[peak].Total()
	res.PeakShare = share(res.PeakCount, len(rows))
	return res
}
