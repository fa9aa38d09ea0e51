package identify

import (
	"sort"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/db"
)

// ChatName is the resolved peer name of a one-on-one chat.
type ChatName struct {
	ChatID      int64  `json:"chat_id"`
	Phone       string `json:"phone_number"`
	DisplayName string `json:"display_name"`
}

// ChatNames maps one-on-one chat ids to their peer display names.
type ChatNames map[int64]ChatName

// Name returns the display name for chatID, or "" when unresolved.
func (c ChatNames) Name(chatID int64) string {
	return c[chatID].DisplayName
}

// Sorted returns the entries ordered by chat id.
func (c ChatNames) Sorted() []ChatName {
	out := make([]ChatName, 0, len(c))
	for _, n := range c {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}

// ResolveChatNames joins subject-less chats to their peer identity and
// resolves a display name from the contact book, falling back to the
// normalized phone. Chats without a peer row, or whose peer is a group, are
// left out.
func ResolveChatNames(chats []db.Chat, identities []db.Identity, book contacts.Book, n contacts.Normalizer) ChatNames {
	byID := make(map[int64]db.Identity, len(identities))
	for _, id := range identities {
		byID[id.ID] = id
	}

	out := make(ChatNames)
	for _, c := range chats {
		if c.Subject != nil || c.IdentityID == nil {
			continue
		}
		peer, ok := byID[*c.IdentityID]
		if !ok || peer.IsGroup() {
			continue
		}
		var raw string
		if peer.User != nil {
			raw = *peer.User
		}
		phone := n.Normalize(raw)
		out[c.ID] = ChatName{
			ChatID:      c.ID,
			Phone:       phone,
			DisplayName: book.Name(phone, phone),
		}
	}
	return out
}
