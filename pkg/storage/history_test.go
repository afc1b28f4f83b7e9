package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, err := NewHistoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetConversation(t *testing.T) {
	db := newTestDB(t)

	msgs := []*StoredMessage{
		{PeerID: "bob@10.0.0.3", MessageID: "m1", FromID: "alice@10.0.0.2", ToID: "bob@10.0.0.3", Content: "hi", Timestamp: 100, IsOutgoing: true},
		{PeerID: "bob@10.0.0.3", MessageID: "m2", FromID: "bob@10.0.0.3", ToID: "alice@10.0.0.2", Content: "hey", Timestamp: 101},
		{PeerID: "carol@10.0.0.4", MessageID: "m3", FromID: "carol@10.0.0.4", ToID: "alice@10.0.0.2", Content: "yo", Timestamp: 102},
	}
	for _, m := range msgs {
		require.NoError(t, db.SaveMessage(m))
	}

	conv, err := db.GetConversation("bob@10.0.0.3")
	require.NoError(t, err)
	require.Len(t, conv, 2)

	// Oldest first, with direction preserved.
	assert.Equal(t, "hi", conv[0].Content)
	assert.True(t, conv[0].IsOutgoing)
	assert.Equal(t, "hey", conv[1].Content)
	assert.False(t, conv[1].IsOutgoing)

	count, err := db.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDuplicateMessageIDRejected(t *testing.T) {
	db := newTestDB(t)

	msg := &StoredMessage{PeerID: "bob@10.0.0.3", MessageID: "dup", FromID: "a", ToID: "b", Content: "x", Timestamp: 1}
	require.NoError(t, db.SaveMessage(msg))

	err := db.SaveMessage(msg)
	assert.Error(t, err, "second insert with the same message_id must fail")

	count, err := db.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConversations(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveMessage(&StoredMessage{PeerID: "bob@10.0.0.3", MessageID: "m1", FromID: "a", ToID: "b", Content: "x", Timestamp: 1}))
	require.NoError(t, db.SaveMessage(&StoredMessage{PeerID: "bob@10.0.0.3", MessageID: "m2", FromID: "a", ToID: "b", Content: "y", Timestamp: 2}))
	require.NoError(t, db.SaveMessage(&StoredMessage{PeerID: "carol@10.0.0.4", MessageID: "m3", FromID: "c", ToID: "a", Content: "z", Timestamp: 3}))

	peers, err := db.Conversations()
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@10.0.0.3", "carol@10.0.0.4"}, peers)
}

func TestPostsFeed(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SavePost(&StoredPost{MessageID: "p1", UserID: "bob@10.0.0.3", Content: "first", Timestamp: 10, ExpiresAt: 310}))
	require.NoError(t, db.SavePost(&StoredPost{MessageID: "p2", UserID: "carol@10.0.0.4", Content: "second", Timestamp: 20, ExpiresAt: 320}))

	posts, err := db.GetPosts()
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Content)
	assert.Equal(t, "second", posts[1].Content)

	count, err := db.PostCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
