package handlers

import (
	"net/http"

	"planning-poker-backend/internal/services"
	"planning-poker-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

// PlayHandler serves guest participants: join by code with a nickname, vote
// with the issued token, no account required.
type PlayHandler struct {
	sessionService *services.SessionService
	voteService    *services.VoteService
	hub            *ws.Hub
}

func NewPlayHandler(sessionService *services.SessionService, voteService *services.VoteService, hub *ws.Hub) *PlayHandler {
	return &PlayHandler{sessionService: sessionService, voteService: voteService, hub: hub}
}

type PlayJoinRequest struct {
	Code     string `json:"code" binding:"required" example:"AB12CD"`
	Nickname string `json:"nickname" binding:"required,min=1,max=100"`
}

type PlayVoteRequest struct {
	Token   string `json:"token" binding:"required"`
	StoryID uint   `json:"story_id" binding:"required"`
	Value   string `json:"value" binding:"required,max=20"`
}

type PlayLeaveRequest struct {
	Token string `json:"token" binding:"required"`
}

// Join godoc
// @Summary      Join a session as a guest
// @Description  Creates a participant and returns the token used for later play calls.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayJoinRequest true "Join data"
// @Success      200 {object} services.JoinResult
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/play/join [post]
func (h *PlayHandler) Join(c *gin.Context) {
	var req PlayJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.sessionService.JoinGuest(req.Code, req.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(result.Session.ID, ws.WSMessage{
		Type: ws.EventParticipantJoined,
		Data: result.Participant,
	})

	c.JSON(http.StatusOK, result)
}

// Vote godoc
// @Summary      Cast a vote as a guest
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayVoteRequest true "Vote"
// @Success      200 {object} services.CastResult
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/play/vote [post]
func (h *PlayHandler) Vote(c *gin.Context) {
	var req PlayVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	participant, err := h.sessionService.GetParticipantByToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid participant token"})
		return
	}

	result, err := h.voteService.CastVote(participant.SessionID, req.StoryID, participant.ID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(participant.SessionID, ws.WSMessage{
		Type: ws.EventVoteCast,
		Data: gin.H{"story_id": req.StoryID, "participant_id": participant.ID},
	})
	if result.Revealed {
		stats, _ := h.voteService.GetVoteStats(req.StoryID)
		h.hub.Broadcast(participant.SessionID, ws.WSMessage{
			Type: ws.EventStoryRevealed,
			Data: gin.H{"story_id": req.StoryID, "stats": stats},
		})
	}

	c.JSON(http.StatusOK, result)
}

// GetState godoc
// @Summary      Get session state as a guest
// @Tags         play
// @Produce      json
// @Param        token query string true "Participant token"
// @Success      200 {object} services.SessionState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/play/state [get]
func (h *PlayHandler) GetState(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "token required"})
		return
	}

	participant, err := h.sessionService.GetParticipantByToken(token)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "participant not found"})
		return
	}

	state, err := h.sessionService.GetSession(participant.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participant": participant,
		"session":     state,
	})
}

// Leave godoc
// @Summary      Leave a session
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayLeaveRequest true "Token"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/play/leave [post]
func (h *PlayHandler) Leave(c *gin.Context) {
	var req PlayLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	participant, err := h.sessionService.GetParticipantByToken(req.Token)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "participant not found"})
		return
	}

	if err := h.sessionService.LeaveSession(participant.ID); err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(participant.SessionID, ws.WSMessage{
		Type: ws.EventParticipantLeft,
		Data: gin.H{"participant_id": participant.ID},
	})

	c.JSON(http.StatusOK, MessageResponse{Message: "left session"})
}
