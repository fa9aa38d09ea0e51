package analytics

import (
	"sort"

	"github.com/Napageneral/chatscope/internal/identify"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

// Response-time window in minutes. Values outside (0, MaxResponseMinutes]
// are dropped.
const MaxResponseMinutes = 1440

// ResponseBins are the response-time categories, in minutes.
var ResponseBins = []Bin{
	{Label: "<1 min", Lo: 0, Hi: 1},
	{Label: "1-5 mins", Lo: 1, Hi: 5},
	{Label: "5-15 mins", Lo: 5, Hi: 15},
	{Label: "15-30 mins", Lo: 15, Hi: 30},
	{Label: "30-60 mins", Lo: 30, Hi: 60},
	{Label: "1-2 hours", Lo: 60, Hi: 120},
	{Label: "2-24 hours", Lo: 120, Hi: MaxResponseMinutes},
}

// Response direction labels.
const (
	YourResponse  = "Your Response"
	TheirResponse = "Their Response"
)

// Quick and delayed response thresholds, in minutes.
const (
	QuickResponse   = 1
	DelayedResponse = 60
)

// Response is one change of direction inside a one-on-one chat.
type Response struct {
	ChatID    int64   `json:"chat_id"`
	MessageID int64   `json:"message_id"`
	FromMe    bool    `json:"from_me"`
	Minutes   float64 `json:"minutes"`
}

// Responses walks every one-on-one chat in timestamp order and emits the
// delay of each message that answers the other side. Only delays in
// (0, MaxResponseMinutes] are kept.
func Responses(rows []reconcile.Row) []Response {
	byChat := make(map[int64][]reconcile.Row)
	var order []int64
	for _, r := range rows {
		if r.IsGroup() {
			continue
		}
		if _, ok := byChat[r.ChatID]; !ok {
			order = append(order, r.ChatID)
		}
		byChat[r.ChatID] = append(byChat[r.ChatID], r)
	}

	var out []Response
	for _, chatID := range order {
		msgs := byChat[chatID]
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })
		for i := 1; i < len(msgs); i++ {
			prev, cur := msgs[i-1], msgs[i]
			if prev.FromMe == cur.FromMe {
				continue
			}
			minutes := float64(cur.Timestamp-prev.Timestamp) / 60000
			if minutes <= 0 || minutes > MaxResponseMinutes {
				continue
			}
			out = append(out, Response{ChatID: chatID, MessageID: cur.ID, FromMe: cur.FromMe, Minutes: minutes})
		}
	}
	return out
}

// ResponseGroup summarizes responses in one direction.
type ResponseGroup struct {
	Direction string   `json:"direction"`
	Count     int      `json:"count"`
	Mean      *float64 `json:"mean"`
	Median    *float64 `json:"median"`
}

// ResponseBinCount is one histogram bucket of one direction.
type ResponseBinCount struct {
	Label     string `json:"label"`
	Direction string `json:"direction"`
	Count     int    `json:"count"`
}

// ContactSpeed is a contact ranked by the median delay of their replies.
type ContactSpeed struct {
	ChatID        int64   `json:"chat_id"`
	DisplayName   string  `json:"display_name"`
	MedianMinutes float64 `json:"median_minutes"`
	Responses     int     `json:"responses"`
}

type ResponseTimesResult struct {
	Groups       []ResponseGroup    `json:"groups"`
	Bins         []ResponseBinCount `json:"bins"`
	QuickShare   *float64           `json:"quick_share"`
	DelayedShare *float64           `json:"delayed_share"`
	Fastest      *ContactSpeed      `json:"fastest"`
	Slowest      *ContactSpeed      `json:"slowest"`
}

// ResponseTimes aggregates Responses by direction. Fastest and slowest
// contacts are ranked by the median of their own replies.
func ResponseTimes(rows []reconcile.Row, names identify.ChatNames) ResponseTimesResult {
	resp := Responses(rows)

	var mine, theirs []float64
	counts := map[bool][]int{true: make([]int, len(ResponseBins)), false: make([]int, len(ResponseBins))}
	perChat := make(map[int64][]float64)
	var chats []int64
	quick, delayed := 0, 0
	for _, r := range resp {
		if r.FromMe {
			mine = append(mine, r.Minutes)
		} else {
			theirs = append(theirs, r.Minutes)
			if _, ok := perChat[r.ChatID]; !ok {
				chats = append(chats, r.ChatID)
			}
			perChat[r.ChatID] = append(perChat[r.ChatID], r.Minutes)
		}
		if b := binIndex(ResponseBins, r.Minutes, true); b >= 0 {
			counts[r.FromMe][b]++
		}
		if r.Minutes <= QuickResponse {
			quick++
		}
		if r.Minutes > DelayedResponse {
			delayed++
		}
	}

	res := ResponseTimesResult{
		QuickShare:   share(quick, len(resp)),
		DelayedShare: share(delayed, len(resp)),
	}
	for _, g := range []struct {
		label  string
		fromMe bool
		values []float64
	}{
		{YourResponse, true, mine},
		{TheirResponse, false, theirs},
	} {
		s := summarize(g.values)
		res.Groups = append(res.Groups, ResponseGroup{Direction: g.label, Count: s.Count, Mean: s.Mean, Median: s.Median})
		for b, bin := range ResponseBins {
			res.Bins = append(res.Bins, ResponseBinCount{Label: bin.Label, Direction: g.label, Count: counts[g.fromMe][b]})
		}
	}

	for _, chatID := range chats {
		values := append([]float64(nil), perChat[chatID]...)
		sort.Float64s(values)
		c := ContactSpeed{
			ChatID:        chatID,
			DisplayName:   names.Name(chatID),
			MedianMinutes: round1(median(values)),
			Responses:     len(values),
		}
		if res.Fastest == nil || c.MedianMinutes < res.Fastest.MedianMinutes {
			res.Fastest = ptr(c)
		}
		if res.Slowest == nil || c.MedianMinutes > res.Slowest.MedianMinutes {
			res.Slowest = ptr(c)
		}
	}
	return res
}
