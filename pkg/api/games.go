package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GameInfo is one active tic-tac-toe session.
type GameInfo struct {
	GameID   string    `json:"gameId"`
	Opponent string    `json:"opponent"`
	Symbol   string    `json:"symbol"`
	Board    [9]string `json:"board"`
	MyTurn   bool      `json:"myTurn"`
	Moves    int       `json:"moves"`
	Status   string    `json:"status"`
}

// GamesResponse lists the node's game sessions.
type GamesResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Games   []GameInfo `json:"games"`
}

// handleGames handles GET /api/v1/games
func (s *Server) handleGames(c *gin.Context) {
	games := s.node.Games()

	list := make([]GameInfo, len(games))
	for i, g := range games {
		list[i] = GameInfo{
			GameID:   g.ID,
			Opponent: g.Opponent.String(),
			Symbol:   g.MySymbol,
			Board:    g.Board,
			MyTurn:   g.MyTurn,
			Moves:    g.Moves,
			Status:   string(g.Status),
		}
	}

	c.JSON(http.StatusOK, GamesResponse{
		Success: true,
		Count:   len(list),
		Games:   list,
	})
}
