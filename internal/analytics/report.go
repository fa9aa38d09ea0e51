// Package analytics computes dashboard aggregates over the reconciled
// message table. Every computation is a pure function of its input rows.
package analytics

import (
	"time"

	"github.com/Napageneral/chatscope/internal/identify"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

// DefaultTopN is the size of the top-chat rankings.
const DefaultTopN = 10

// Options select the rows and presentation of a report.
type Options struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
	TopN     int
}

// Report bundles every aggregate for one date range.
type Report struct {
	Start         string              `json:"start,omitempty"`
	End           string              `json:"end,omitempty"`
	Timezone      string              `json:"timezone"`
	NoData        bool                `json:"no_data"`
	Overview      OverviewResult      `json:"overview"`
	Daily         []DayCount          `json:"daily"`
	TopChats      TopChatsResult      `json:"top_chats"`
	Hourly        HourlyResult        `json:"hourly"`
	ChatTypes     ChatTypesResult     `json:"chat_types"`
	Lengths       LengthsResult       `json:"lengths"`
	ResponseTimes ResponseTimesResult `json:"response_times"`
}

// Build filters t to the requested range and computes the full report. An
// empty selection yields NoData with zero counts rather than an error.
func Build(t *reconcile.Table, opts Options) Report {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	var (
		rows  []reconcile.Row
		names identify.ChatNames
	)
	if t != nil {
		rows = FilterRange(t.Rows, opts.Start, opts.End)
		names = t.ChatNames
	}

	rep := Report{
		Timezone:      opts.Location.String(),
		NoData:        len(rows) == 0,
		Overview:      Overview(rows, opts.Start, opts.End),
		Daily:         Daily(rows),
		TopChats:      TopChats(rows, names, opts.TopN),
		Hourly:        Hourly(rows, opts.Location),
		ChatTypes:     ChatTypes(rows),
		Lengths:       Lengths(rows),
		ResponseTimes: ResponseTimes(rows, names),
	}
	if !opts.Start.IsZero() {
		rep.Start = opts.Start.Format(DateLayout)
	}
	if !opts.End.IsZero() {
		rep.End = opts.End.Format(DateLayout)
	}
	return rep
}
