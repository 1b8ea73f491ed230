package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyplay/backend/internal/matchmaking"
)

// QueueMatch enqueues the caller for a game. Responds synchronously with
// either a match or a searching acknowledgement; searching callers poll
// MatchStatus (or hold a WebSocket) for the result.
func QueueMatch(service *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req struct {
			GameID string `json:"gameId"`
		}
		if err := c.BindJSON(&req); err != nil || req.GameID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameId is required"})
			return
		}

		p, err := service.Enqueue(c.Request.Context(), userID, req.GameID)
		if err != nil {
			log.Printf("[API] Enqueue failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue"})
			return
		}

		if p.Searching {
			c.JSON(http.StatusOK, gin.H{"searching": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"searching":  false,
			"matchId":    p.MatchID,
			"opponentId": p.OpponentID,
		})
	}
}

// CancelMatch withdraws the caller's search. Idempotent.
func CancelMatch(service *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		if err := service.Cancel(c.Request.Context(), userID); err != nil {
			log.Printf("[API] Cancel failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// MatchStatus reports the caller's current search state; the recovery path
// for a client that missed a push.
func MatchStatus(service *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		p, err := service.Status(c.Request.Context(), userID)
		if errors.Is(err, matchmaking.ErrNotSearching) {
			c.JSON(http.StatusOK, gin.H{"state": "not_searching"})
			return
		}
		if err != nil {
			log.Printf("[API] Status failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get status"})
			return
		}

		if p.Searching {
			c.JSON(http.StatusOK, gin.H{"state": "searching", "gameId": p.GameID})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state":      "matched",
			"matchId":    p.MatchID,
			"opponentId": p.OpponentID,
			"gameId":     p.GameID,
		})
	}
}
