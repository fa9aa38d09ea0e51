package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GroupServer is the identity domain used for multi-party peers.
const GroupServer = "g.us"

// Identity is a row of the jid table.
type Identity struct {
	ID     int64
	User   *string
	Server string
}

// IsGroup reports whether the identity names a group peer.
func (i Identity) IsGroup() bool {
	return i.Server == GroupServer
}

// Chat is a row of the chat table. Subject is nil for one-on-one chats.
type Chat struct {
	ID         int64
	IdentityID *int64
	Subject    *string
}

// Message is a row of the message table.
type Message struct {
	ID               int64
	ChatID           int64
	SenderIdentityID *int64
	FromMe           bool
	Timestamp        int64
	Text             *string
}

// Snapshot holds the three projections the reconciliation needs.
type Snapshot struct {
	Chats      []Chat
	Identities []Identity
	Messages   []Message
}

// ReadSnapshot loads chats, identities and messages in one pass.
func ReadSnapshot(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	chats, err := ReadChats(ctx, db)
	if err != nil {
		return nil, err
	}
	identities, err := ReadIdentities(ctx, db)
	if err != nil {
		return nil, err
	}
	messages, err := ReadMessages(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Chats: chats, Identities: identities, Messages: messages}, nil
}

// ReadChats returns every chat ordered by id.
func ReadChats(ctx context.Context, db *sql.DB) ([]Chat, error) {
	rows, err := db.QueryContext(ctx, `SELECT _id, jid_row_id, subject FROM chat ORDER BY _id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		var identityID sql.NullInt64
		var subject sql.NullString
		if err := rows.Scan(&c.ID, &identityID, &subject); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		if identityID.Valid {
			c.IdentityID = &identityID.Int64
		}
		if subject.Valid && subject.String != "" {
			c.Subject = &subject.String
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return out, nil
}

// ReadIdentities returns every jid row ordered by id.
func ReadIdentities(ctx context.Context, db *sql.DB) ([]Identity, error) {
	rows, err := db.QueryContext(ctx, `SELECT _id, user, server FROM jid ORDER BY _id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var i Identity
		var user, server sql.NullString
		if err := rows.Scan(&i.ID, &user, &server); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		if user.Valid {
			i.User = &user.String
		}
		i.Server = server.String
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identities: %w", err)
	}
	return out, nil
}

// ReadMessages returns every message ordered by id. A sender id of 0 is
// stored by the app for "no sender" and is read as nil.
func ReadMessages(ctx context.Context, db *sql.DB) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT _id, chat_row_id, sender_jid_row_id, from_me, timestamp, text_data
		FROM message
		ORDER BY _id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var sender, fromMe, ts sql.NullInt64
		var text sql.NullString
		if err := rows.Scan(&m.ID, &m.ChatID, &sender, &fromMe, &ts, &text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if sender.Valid && sender.Int64 > 0 {
			m.SenderIdentityID = &sender.Int64
		}
		m.FromMe = fromMe.Valid && fromMe.Int64 == 1
		m.Timestamp = ts.Int64
		if text.Valid {
			m.Text = &text.String
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, nil
}
