package identify

import (
	"testing"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/db"
)

func strp(s string) *string { return &s }
func idp(i int64) *int64 { return &i }

func TestResolveChatNames(t *testing.T) {
	identities := []db.Identity{
		{ID: 1, User: strp("15550100"), Server: "s.whatsapp.net"},
		{ID: 2, User: strp("390000000001"), Server: "s.whatsapp.net"},
		{ID: 3, User: strp("120363000000"), Server: db.GroupServer},
		{ID: 4, User: nil, Server: "s.whatsapp.net"},
	}
	chats := []db.Chat{
		{ID: 10, IdentityID: idp(1)},
		{ID: 11, IdentityID: idp(2)},
		{ID: 12, IdentityID: idp(3), Subject: strp("Team")},
		{ID: 13, IdentityID: idp(3)},
		{ID: 14, IdentityID: idp(99)},
		{ID: 15, IdentityID: nil},
		{ID: 16, IdentityID: idp(4)},
	}
	book := contacts.Book{"15550100": "Alice"}

	names := ResolveChatNames(chats, identities, book, contacts.DefaultNormalizer)

	if got := names.Name(10); got != "Alice" {
		t.Fatalf("chat 10: got %q want Alice", got)
	}
	if got := names.Name(11); got != "0000000001" {
		t.Fatalf("chat 11: got %q want normalized phone", got)
	}
	for _, id := range []int64{12, 13, 14, 15} {
		if _, ok := names[id]; ok {
			t.Fatalf("chat %d should not be resolved", id)
		}
		if got := names.Name(id); got != "" {
			t.Fatalf("chat %d: expected empty name, got %q", id, got)
		}
	}
	if n, ok := names[16]; !ok || n.DisplayName != "" {
		t.Fatalf("chat 16 with null user: %+v %v", n, ok)
	}

	sorted := names.Sorted()
	if len(sorted) != 3 || sorted[0].ChatID != 10 || sorted[2].ChatID != 16 {
		t.Fatalf("Sorted=%+v", sorted)
	}
}
