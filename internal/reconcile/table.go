package reconcile

import (
	"time"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/db"
	"github.com/Napageneral/chatscope/internal/identify"
)

// Row is one fully reconciled message.
type Row struct {
	ID               int64     `json:"id"`
	ChatID           int64     `json:"chat_id"`
	User             *string   `json:"user"`
	DisplayName      string    `json:"display_name"`
	Group            *string   `json:"group"`
	FromMe           bool      `json:"from_me"`
	Text             *string   `json:"text"`
	Timestamp        int64     `json:"timestamp"`
	Datetime         time.Time `json:"datetime"`
	SenderIdentityID *int64    `json:"sender_identity_id"`
	Server           *string   `json:"server"`
}

// MaxTimestamp is the last representable millisecond, 9999-12-31T23:59:59.999Z.
const MaxTimestamp = 253402300799999

// ValidTimestamp reports whether ms lies in [0, MaxTimestamp]. Rows outside
// that window carry a garbage timestamp.
func ValidTimestamp(ms int64) bool {
	return ms >= 0 && ms <= MaxTimestamp
}

// HasValidTime reports whether the row's timestamp is usable for calendar
// aggregation.
func (r Row) HasValidTime() bool {
	return ValidTimestamp(r.Timestamp)
}

// IsGroup reports whether the row belongs to a group chat.
func (r Row) IsGroup() bool {
	return r.Group != nil
}

// Direction is "sent" or "received".
func (r Row) Direction() string {
	if r.FromMe {
		return "sent"
	}
	return "received"
}

// Table is the canonical message table plus the chat names it was built with.
type Table struct {
	Rows      []Row
	ChatNames identify.ChatNames
	BuiltAt   time.Time
}

// NameKind tags where a row's display name comes from.
type NameKind int

const (
	// Direct resolves through the sender identity's phone.
	Direct NameKind = iota + 1
	// ChatFallback resolves through the chat's precomputed peer name.
	ChatFallback
)

// NameSource is the input of display-name resolution for one row.
type NameSource struct {
	Kind     NameKind
	RawPhone string
	ChatID   int64
}

func resolveName(src NameSource, book contacts.Book, names identify.ChatNames, n contacts.Normalizer) string {
	switch src.Kind {
	case Direct:
		return book.Name(n.Normalize(src.RawPhone), src.RawPhone)
	default:
		return names.Name(src.ChatID)
	}
}

// Build reconciles a snapshot into the canonical table. The output has
// exactly one row per input message, in input order.
func Build(snap *db.Snapshot, book contacts.Book, n contacts.Normalizer) *Table {
	chatByID := make(map[int64]db.Chat, len(snap.Chats))
	for _, c := range snap.Chats {
		chatByID[c.ID] = c
	}
	identityByID := make(map[int64]db.Identity, len(snap.Identities))
	for _, id := range snap.Identities {
		identityByID[id.ID] = id
	}
	names := identify.ResolveChatNames(snap.Chats, snap.Identities, book, n)

	rows := make([]Row, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		row := Row{
			ID:        m.ID,
			ChatID:    m.ChatID,
			FromMe:    m.FromMe,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Datetime:  time.UnixMilli(m.Timestamp).UTC(),
		}
		if c, ok := chatByID[m.ChatID]; ok {
			row.Group = c.Subject
		}

		src := NameSource{Kind: ChatFallback, ChatID: m.ChatID}
		// The local user has no identity row; sent messages never carry one.
		if !m.FromMe && m.SenderIdentityID != nil {
			row.SenderIdentityID = m.SenderIdentityID
			if sender, ok := identityByID[*m.SenderIdentityID]; ok {
				server := sender.Server
				row.Server = &server
				if sender.User != nil {
					row.User = sender.User
					src = NameSource{Kind: Direct, RawPhone: *sender.User}
				}
			}
		}
		row.DisplayName = resolveName(src, book, names, n)
		rows = append(rows, row)
	}

	return &Table{Rows: rows, ChatNames: names, BuiltAt: time.Now()}
}
