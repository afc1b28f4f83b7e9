package storage

import "fmt"

// StoredPost is one received broadcast post.
type StoredPost struct {
	ID        int64
	MessageID string
	UserID    string
	Content   string
	Timestamp int64
	ExpiresAt int64
}

// SavePost appends a received post to the feed.
func (h *HistoryDB) SavePost(post *StoredPost) error {
	query := `
		INSERT INTO posts (message_id, user_id, content, timestamp, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := h.db.Exec(
		query,
		post.MessageID,
		post.UserID,
		post.Content,
		post.Timestamp,
		post.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save post: %v", err)
	}

	return nil
}

// GetPosts returns the post feed, oldest first.
func (h *HistoryDB) GetPosts() ([]*StoredPost, error) {
	query := `
		SELECT id, message_id, user_id, content, timestamp, expires_at
		FROM posts
		ORDER BY id ASC
	`

	rows, err := h.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*StoredPost
	for rows.Next() {
		var post StoredPost
		if err := rows.Scan(
			&post.ID,
			&post.MessageID,
			&post.UserID,
			&post.Content,
			&post.Timestamp,
			&post.ExpiresAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}

	return posts, rows.Err()
}

// PostCount returns the number of stored posts.
func (h *HistoryDB) PostCount() (int, error) {
	var count int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}
