package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse describes the node and its protocol state counts.
type StatusResponse struct {
	Success         bool   `json:"success"`
	UserID          string `json:"userId"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Uptime          string `json:"uptime"`
	Peers           int    `json:"peers"`
	Followers       int    `json:"followers"`
	Following       int    `json:"following"`
	ActiveGames     int    `json:"activeGames"`
	PendingRequests int    `json:"pendingRequests"`
	StoredMessages  int    `json:"storedMessages"`
	StoredPosts     int    `json:"storedPosts"`
}

// PeerInfo is one peer directory entry.
type PeerInfo struct {
	UserID      string    `json:"userId"`
	Address     string    `json:"address"`
	DisplayName string    `json:"displayName,omitempty"`
	Status      string    `json:"status,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

// PeersResponse contains the peer directory snapshot.
type PeersResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Peers   []PeerInfo `json:"peers"`
}

// HealthResponse contains system health information
type HealthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Checks  struct {
		HistoryWritable bool `json:"historyWritable"`
		PeersKnown      bool `json:"peersKnown"`
	} `json:"checks"`
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(c *gin.Context) {
	id := s.node.ID()

	messageCount, _ := s.node.History().MessageCount()
	postCount, _ := s.node.History().PostCount()

	response := StatusResponse{
		Success:         true,
		UserID:          id.String(),
		Name:            id.Name(),
		Host:            id.Host(),
		Uptime:          formatDuration(s.node.Uptime()),
		Peers:           len(s.node.Peers()),
		Followers:       len(s.node.Followers()),
		Following:       len(s.node.Following()),
		ActiveGames:     len(s.node.Games()),
		PendingRequests: s.node.PendingRequests(),
		StoredMessages:  messageCount,
		StoredPosts:     postCount,
	}

	c.JSON(http.StatusOK, response)
}

// handlePeers handles GET /api/v1/peers
func (s *Server) handlePeers(c *gin.Context) {
	peers := s.node.Peers()

	peerList := make([]PeerInfo, 0, len(peers))
	for _, rec := range peers {
		peerList = append(peerList, PeerInfo{
			UserID:      rec.ID.String(),
			Address:     rec.Addr.String(),
			DisplayName: rec.DisplayName,
			Status:      rec.Status,
			LastSeen:    rec.LastSeen,
		})
	}

	c.JSON(http.StatusOK, PeersResponse{
		Success: true,
		Count:   len(peerList),
		Peers:   peerList,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	checks := struct {
		HistoryWritable bool `json:"historyWritable"`
		PeersKnown      bool `json:"peersKnown"`
	}{
		PeersKnown: len(s.node.Peers()) > 0,
	}

	if _, err := s.node.History().MessageCount(); err == nil {
		checks.HistoryWritable = true
	}

	status := "healthy"
	if !checks.HistoryWritable {
		status = "unhealthy"
	} else if !checks.PeersKnown {
		// Alone on the segment, but still functional.
		status = "degraded"
	}

	response := HealthResponse{
		Success: true,
		Status:  status,
		Uptime:  formatDuration(s.node.Uptime()),
	}
	response.Checks = checks

	c.JSON(http.StatusOK, response)
}

// formatDuration formats a duration in human-readable format
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
