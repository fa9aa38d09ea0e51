package analytics

import (
	"sort"
	"strconv"
	"time"

	"github.com/Napageneral/chatscope/internal/identify"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

// Chat type and direction labels used across the report.
const (
	OneOnOne = "One-on-One"
	Group    = "Group"
	Sent     = "Sent"
	Received = "Received"
)

func chatType(r reconcile.Row) string {
	if r.IsGroup() {
		return Group
	}
	return OneOnOne
}

func direction(r reconcile.Row) string {
	if r.FromMe {
		return Sent
	}
	return Received
}

// ChatCount is a chat ranked by message volume.
type ChatCount struct {
	ChatID int64  `json:"chat_id"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// TopChatsResult holds the busiest one-on-one and group chats.
type TopChatsResult struct {
	OneOnOne []ChatCount `json:"one_on_one"`
	Groups   []ChatCount `json:"groups"`
}

// TopChats ranks chats by message count, ties broken by chat id. One-on-one
// chats are labelled with their peer name, groups with their subject.
func TopChats(rows []reconcile.Row, names identify.ChatNames, n int) TopChatsResult {
	single := make(map[int64]*ChatCount)
	groups := make(map[int64]*ChatCount)
	for _, r := range rows {
		if r.IsGroup() {
			c, ok := groups[r.ChatID]
			if !ok {
				c = &ChatCount{ChatID: r.ChatID, Label: *r.Group}
				groups[r.ChatID] = c
			}
			c.Count++
			continue
		}
		c, ok := single[r.ChatID]
		if !ok {
			label := names.Name(r.ChatID)
			if label == "" {
				label = "chat " + strconv.FormatInt(r.ChatID, 10)
			}
			c = &ChatCount{ChatID: r.ChatID, Label: label}
			single[r.ChatID] = c
		}
		c.Count++
	}
	return TopChatsResult{OneOnOne: rank(single, n), Groups: rank(groups, n)}
}

func rank(m map[int64]*ChatCount, n int) []ChatCount {
	out := make([]ChatCount, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ChatID < out[j].ChatID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Category is one slice of the chat-type × direction split.
type Category struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ChatTypesResult is the four-way split plus the derived totals.
type ChatTypesResult struct {
	Categories    []Category `json:"categories"`
	Total         int        `json:"total"`
	GroupShare    float64    `json:"group_share"`
	OneOnOneShare float64    `json:"one_on_one_share"`
	SentShare     float64    `json:"sent_share"`
	ReceivedShare float64    `json:"received_share"`
}

// CategoryOrder is the fixed order of the four-way split.
var CategoryOrder = []string{
	OneOnOne + " (" + Sent + ")",
	OneOnOne + " (" + Received + ")",
	Group + " (" + Sent + ")",
	Group + " (" + Received + ")",
}

func categoryOf(r reconcile.Row) int {
	i := 0
	if r.IsGroup() {
		i += 2
	}
	if !r.FromMe {
		i++
	}
	return i
}

// ChatTypes splits messages by chat type and direction. All four categories
// are always present; percentages are rounded to one decimal and are zero
// when there are no messages.
func ChatTypes(rows []reconcile.Row) ChatTypesResult {
	var counts [4]int
	for _, r := range rows {
		counts[categoryOf(r)]++
	}
	res := ChatTypesResult{Total: len(rows), Categories: make([]Category, len(CategoryOrder))}
	for i, name := range CategoryOrder {
		res.Categories[i] = Category{Name: name, Count: counts[i]}
		if p := share(counts[i], len(rows)); p != nil {
			res.Categories[i].Percentage = *p
		}
	}
	c := res.Categories
	res.OneOnOneShare = round1(c[0].Percentage + c[1].Percentage)
	res.GroupShare = round1(c[2].Percentage + c[3].Percentage)
	res.SentShare = round1(c[0].Percentage + c[2].Percentage)
	res.ReceivedShare = round1(c[1].Percentage + c[3].Percentage)
	return res
}

// OverviewResult carries the headline numbers.
type OverviewResult struct {
	TotalMessages  int      `json:"total_messages"`
	ActiveChats    int      `json:"active_chats"`
	UniqueSenders  int      `json:"unique_senders"`
	Days           int      `json:"days"`
	AvgMessagesDay *float64 `json:"avg_messages_per_day"`
}

// Overview counts messages, chats with at least one text message, and
// distinct senders (messages without a sender identity count as one sender).
// The daily average spans start..end inclusive, or the data's own span when
// either bound is zero.
func Overview(rows []reconcile.Row, start, end time.Time) OverviewResult {
	res := OverviewResult{TotalMessages: len(rows)}

	chats := make(map[int64]struct{})
	senders := make(map[int64]struct{})
	anonymous := false
	for _, r := range rows {
		if r.Text != nil {
			chats[r.ChatID] = struct{}{}
		}
		if r.SenderIdentityID == nil {
			anonymous = true
		} else {
			senders[*r.SenderIdentityID] = struct{}{}
		}
	}
	res.ActiveChats = len(chats)
	res.UniqueSenders = len(senders)
	if anonymous {
		res.UniqueSenders++
	}

	if start.IsZero() || end.IsZero() {
		s, e, ok := DateSpan(rows)
		if !ok {
			return res
		}
		if start.IsZero() {
			start = s
		}
		if end.IsZero() {
			end = e
		}
	}
	res.Days = int(daysBetween(start, end)) + 1
	if res.Days > 0 && len(rows) > 0 {
		res.AvgMessagesDay = ptr(round1(float64(len(rows)) / float64(res.Days)))
	}
	return res
}
