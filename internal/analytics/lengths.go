package analytics

import (
	"math"
	"unicode/utf8"

	"github.com/Napageneral/chatscope/internal/reconcile"
)

// LengthBins are the message-length categories, in characters.
var LengthBins = []Bin{
	{Label: "1-10", Lo: 0, Hi: 10},
	{Label: "11-25", Lo: 10, Hi: 25},
	{Label: "26-50", Lo: 25, Hi: 50},
	{Label: "51-100", Lo: 50, Hi: 100},
	{Label: "101-200", Lo: 100, Hi: 200},
	{Label: "200+", Lo: 200, Hi: math.Inf(1)},
}

// Short and long message thresholds used by the insights.
const (
	ShortMessage = 10
	LongMessage  = 100
)

// LengthGroup holds the statistics of one chat type and direction.
type LengthGroup struct {
	ChatType  string  `json:"chat_type"`
	Direction string  `json:"direction"`
	Stats     Summary `json:"stats"`
}

// BinCount is one histogram bucket of a chat type and direction.
type BinCount struct {
	Label     string `json:"label"`
	ChatType  string `json:"chat_type"`
	Direction string `json:"direction"`
	Count     int    `json:"count"`
}

// LengthInsights are headline facts about message lengths.
type LengthInsights struct {
	AvgSent     *float64 `json:"avg_sent"`
	AvgReceived *float64 `json:"avg_received"`
	Mode        *int     `json:"mode"`
	ShortShare  *float64 `json:"short_share"`
	LongShare   *float64 `json:"long_share"`
	Longest     *Longest `json:"longest"`
}

// Longest identifies the longest message in the range.
type Longest struct {
	MessageID   int64  `json:"message_id"`
	ChatID      int64  `json:"chat_id"`
	DisplayName string `json:"display_name"`
	FromMe      bool   `json:"from_me"`
	Length      int    `json:"length"`
}

type LengthsResult struct {
	Groups   []LengthGroup  `json:"groups"`
	Bins     []BinCount     `json:"bins"`
	Insights LengthInsights `json:"insights"`
}

// groupOrder is the fixed (chat type, direction) order of the length report.
var groupOrder = [][2]string{
	{OneOnOne, Sent},
	{OneOnOne, Received},
	{Group, Sent},
	{Group, Received},
}

// Lengths computes character-count statistics over messages that carry text.
// Every group and bin is present even when empty.
func Lengths(rows []reconcile.Row) LengthsResult {
	values := make([][]float64, len(groupOrder))
	bins := make([][]int, len(groupOrder))
	for i := range bins {
		bins[i] = make([]int, len(LengthBins))
	}

	var (
		sent, received []float64
		freq           = make(map[int]int)
		short, long    int
		total          int
		longest        *Longest
	)
	for _, r := range rows {
		if r.Text == nil {
			continue
		}
		n := utf8.RuneCountInString(*r.Text)
		g := categoryOf(r)
		values[g] = append(values[g], float64(n))
		if b := binIndex(LengthBins, float64(n), false); b >= 0 {
			bins[g][b]++
		}

		total++
		freq[n]++
		if n < ShortMessage {
			short++
		}
		if n > LongMessage {
			long++
		}
		if r.FromMe {
			sent = append(sent, float64(n))
		} else {
			received = append(received, float64(n))
		}
		if longest == nil || n > longest.Length {
			longest = &Longest{MessageID: r.ID, ChatID: r.ChatID, DisplayName: r.DisplayName, FromMe: r.FromMe, Length: n}
		}
	}

	res := LengthsResult{}
	for i, key := range groupOrder {
		res.Groups = append(res.Groups, LengthGroup{ChatType: key[0], Direction: key[1], Stats: summarize(values[i])})
		for b, bin := range LengthBins {
			res.Bins = append(res.Bins, BinCount{Label: bin.Label, ChatType: key[0], Direction: key[1], Count: bins[i][b]})
		}
	}

	res.Insights = LengthInsights{
		AvgSent:     summarize(sent).Mean,
		AvgReceived: summarize(received).Mean,
		ShortShare:  share(short, total),
		LongShare:   share(long, total),
		Longest:     longest,
	}
	if total > 0 {
		mode := -1
		for n, c := range freq {
			if mode < 0 || c > freq[mode] || (c == freq[mode] && n < mode) {
				mode = n
			}
		}
		res.Insights.Mode = ptr(mode)
	}
	return res
}
