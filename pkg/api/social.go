package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lsnp-net/lsnp-node/pkg/network"
	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// FollowersResponse lists who follows this node.
type FollowersResponse struct {
	Success   bool     `json:"success"`
	Count     int      `json:"count"`
	Followers []string `json:"followers"`
}

// FollowEdgeInfo is one outbound follow edge and its handshake state.
type FollowEdgeInfo struct {
	Target string `json:"target"`
	State  string `json:"state"`
}

// FollowingResponse lists who this node follows.
type FollowingResponse struct {
	Success   bool             `json:"success"`
	Count     int              `json:"count"`
	Following []FollowEdgeInfo `json:"following"`
}

// PostInfo is one feed entry.
type PostInfo struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PostsResponse contains the received-post feed.
type PostsResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Posts   []PostInfo `json:"posts"`
}

// MessageInfo is one direct message in a conversation.
type MessageInfo struct {
	MessageID string    `json:"messageId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Outgoing  bool      `json:"outgoing"`
}

// MessagesResponse contains one peer conversation, oldest first.
type MessagesResponse struct {
	Success  bool          `json:"success"`
	Peer     string        `json:"peer"`
	Count    int           `json:"count"`
	Messages []MessageInfo `json:"messages"`
}

// PublishRequest is the body of POST /api/v1/post.
type PublishRequest struct {
	Content string `json:"content" binding:"required"`
}

// DMRequest is the body of POST /api/v1/dm.
type DMRequest struct {
	To      string `json:"to" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// handleFollowers handles GET /api/v1/followers
func (s *Server) handleFollowers(c *gin.Context) {
	followers := s.node.Followers()

	list := make([]string, len(followers))
	for i, id := range followers {
		list[i] = id.String()
	}

	c.JSON(http.StatusOK, FollowersResponse{
		Success:   true,
		Count:     len(list),
		Followers: list,
	})
}

// handleFollowing handles GET /api/v1/following
func (s *Server) handleFollowing(c *gin.Context) {
	edges := s.node.Following()

	list := make([]FollowEdgeInfo, len(edges))
	for i, edge := range edges {
		list[i] = FollowEdgeInfo{
			Target: edge.Target.String(),
			State:  string(edge.State),
		}
	}

	c.JSON(http.StatusOK, FollowingResponse{
		Success:   true,
		Count:     len(list),
		Following: list,
	})
}

// handlePosts handles GET /api/v1/posts
func (s *Server) handlePosts(c *gin.Context) {
	posts, err := s.node.History().GetPosts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read feed",
			Message: err.Error(),
		})
		return
	}

	list := make([]PostInfo, len(posts))
	for i, post := range posts {
		list[i] = PostInfo{
			MessageID: post.MessageID,
			UserID:    post.UserID,
			Content:   post.Content,
			Timestamp: time.Unix(post.Timestamp, 0),
			ExpiresAt: time.Unix(post.ExpiresAt, 0),
		}
	}

	c.JSON(http.StatusOK, PostsResponse{
		Success: true,
		Count:   len(list),
		Posts:   list,
	})
}

// handleMessages handles GET /api/v1/messages/:peer
func (s *Server) handleMessages(c *gin.Context) {
	peer := c.Param("peer")
	if _, _, err := protocol.ParseUserID(peer); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid peer id",
			Message: err.Error(),
		})
		return
	}

	msgs, err := s.node.History().GetConversation(peer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read conversation",
			Message: err.Error(),
		})
		return
	}

	list := make([]MessageInfo, len(msgs))
	for i, msg := range msgs {
		list[i] = MessageInfo{
			MessageID: msg.MessageID,
			From:      msg.FromID,
			To:        msg.ToID,
			Content:   msg.Content,
			Timestamp: time.Unix(msg.Timestamp, 0),
			Outgoing:  msg.IsOutgoing,
		}
	}

	c.JSON(http.StatusOK, MessagesResponse{
		Success:  true,
		Peer:     peer,
		Count:    len(list),
		Messages: list,
	})
}

// handlePost handles POST /api/v1/post
func (s *Server) handlePost(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := s.node.Post(req.Content); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Post not sent",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Post sent to all followers",
	})
}

// handleDM handles POST /api/v1/dm
func (s *Server) handleDM(c *gin.Context) {
	var req DMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if _, _, err := protocol.ParseUserID(req.To); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid target id",
			Message: err.Error(),
		})
		return
	}

	if err := s.node.SendDM(protocol.UserID(req.To), req.Content); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, network.ErrUnknownPeer) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{
			Error:   "DM not sent",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "DM sent, awaiting acknowledgement",
	})
}
