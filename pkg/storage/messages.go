package storage

import "fmt"

// StoredMessage is one entry of a per-peer DM conversation.
type StoredMessage struct {
	ID         int64
	PeerID     string // the remote side of the conversation
	MessageID  string
	FromID     string
	ToID       string
	Content    string
	Timestamp  int64
	IsOutgoing bool
}

// SaveMessage appends a message to the history. Duplicate message ids
// are rejected by the UNIQUE constraint; callers dedup before saving.
func (h *HistoryDB) SaveMessage(msg *StoredMessage) error {
	query := `
		INSERT INTO messages (peer_id, message_id, from_id, to_id, content, timestamp, is_outgoing)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.Exec(
		query,
		msg.PeerID,
		msg.MessageID,
		msg.FromID,
		msg.ToID,
		msg.Content,
		msg.Timestamp,
		boolToInt(msg.IsOutgoing),
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	return nil
}

// GetConversation returns the DM history with one peer, oldest first.
func (h *HistoryDB) GetConversation(peerID string) ([]*StoredMessage, error) {
	query := `
		SELECT id, peer_id, message_id, from_id, to_id, content, timestamp, is_outgoing
		FROM messages
		WHERE peer_id = ?
		ORDER BY id ASC
	`

	rows, err := h.db.Query(query, peerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*StoredMessage
	for rows.Next() {
		var msg StoredMessage
		var isOutgoing int

		if err := rows.Scan(
			&msg.ID,
			&msg.PeerID,
			&msg.MessageID,
			&msg.FromID,
			&msg.ToID,
			&msg.Content,
			&msg.Timestamp,
			&isOutgoing,
		); err != nil {
			return nil, err
		}

		msg.IsOutgoing = intToBool(isOutgoing)
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Conversations lists the peer ids with at least one stored message.
func (h *HistoryDB) Conversations() ([]string, error) {
	rows, err := h.db.Query(`SELECT DISTINCT peer_id FROM messages ORDER BY peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}

	return peers, rows.Err()
}

// MessageCount returns the total number of stored messages.
func (h *HistoryDB) MessageCount() (int, error) {
	var count int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
