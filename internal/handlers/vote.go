package handlers

import (
	"net/http"
	"strconv"

	"planning-poker-backend/internal/services"
	"planning-poker-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	voteService  *services.VoteService
	storyService *services.StoryService
	hub          *ws.Hub
}

func NewVoteHandler(voteService *services.VoteService, storyService *services.StoryService, hub *ws.Hub) *VoteHandler {
	return &VoteHandler{voteService: voteService, storyService: storyService, hub: hub}
}

type CastVoteRequest struct {
	SessionID     uint   `json:"session_id" binding:"required"`
	ParticipantID uint   `json:"participant_id" binding:"required"`
	Value         string `json:"value" binding:"required,max=20" example:"5"`
}

// CastVote godoc
// @Summary      Cast a vote on a story
// @Description  Supersedes the voter's previous vote with the next version. Auto-reveals once every active voter has voted.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Param        request body CastVoteRequest true "Vote"
// @Success      200 {object} services.CastResult
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/votes [post]
func (h *VoteHandler) CastVote(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.voteService.CastVote(req.SessionID, uint(storyID), req.ParticipantID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(req.SessionID, ws.WSMessage{
		Type: ws.EventVoteCast,
		Data: gin.H{"story_id": storyID, "participant_id": req.ParticipantID},
	})
	if result.Revealed {
		stats, _ := h.voteService.GetVoteStats(uint(storyID))
		h.hub.Broadcast(req.SessionID, ws.WSMessage{
			Type: ws.EventStoryRevealed,
			Data: gin.H{"story_id": storyID, "stats": stats},
		})
	}

	c.JSON(http.StatusOK, result)
}

// GetStoryVotes godoc
// @Summary      List a story's votes
// @Description  Current votes by default; pass history=true for the full version trail.
// @Tags         votes
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Param        history query bool false "Include superseded votes"
// @Success      200 {array} Vote
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/votes [get]
func (h *VoteHandler) GetStoryVotes(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	includeHistory := c.DefaultQuery("history", "false") == "true"

	votes, err := h.voteService.GetStoryVotes(uint(storyID), includeHistory)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, votes)
}

// GetVoteStats godoc
// @Summary      Get vote statistics
// @Description  Counts, consensus flag, and numeric stats over the parseable votes.
// @Tags         votes
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} services.VoteStats
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/stats [get]
func (h *VoteHandler) GetVoteStats(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	stats, err := h.voteService.GetVoteStats(uint(storyID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ClearStoryVotes godoc
// @Summary      Clear a story's votes
// @Description  Deletes every vote row for the story, history included.
// @Tags         votes
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/votes [delete]
func (h *VoteHandler) ClearStoryVotes(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	if err := h.voteService.ClearStoryVotes(uint(storyID)); err != nil {
		respondError(c, err)
		return
	}

	story, err := h.storyService.GetStory(uint(storyID))
	if err == nil {
		h.hub.Broadcast(story.SessionID, ws.WSMessage{
			Type: ws.EventVotesCleared,
			Data: gin.H{"story_id": storyID},
		})
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "votes cleared"})
}
