package handlers

import (
	"net/http"
	"strconv"

	"planning-poker-backend/internal/services"
	"planning-poker-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *services.SessionService
	hub            *ws.Hub
}

func NewSessionHandler(sessionService *services.SessionService, hub *ws.Hub) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, hub: hub}
}

type CreateSessionRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=255" example:"Sprint 42 planning"`
	Description    string `json:"description"`
	Code           string `json:"code" example:"AB12CD"`
	TimeboxMinutes int    `json:"timebox_minutes" example:"5"`
}

type UpdateSessionRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	TimeboxMinutes *int    `json:"timebox_minutes"`
}

type JoinSessionRequest struct {
	Code     string `json:"code" binding:"required" example:"AB12CD"`
	Nickname string `json:"nickname" binding:"max=100"`
}

// CreateSession godoc
// @Summary      Create a planning session
// @Description  Create a session owned by the authenticated dealer. A join code is generated unless one is supplied.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} Session
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	dealerID := c.GetUint("user_id")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.CreateSession(dealerID, services.CreateSessionInput{
		Name:           req.Name,
		Description:    req.Description,
		Code:           req.Code,
		TimeboxMinutes: req.TimeboxMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary      List own sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Max sessions returned" default(50)
// @Success      200 {array} services.SessionSummary
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	dealerID := c.GetUint("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	sessions, err := h.sessionService.ListSessions(dealerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Get session state
// @Description  Session with its stories in sequence order and its participants.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} services.SessionState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	state, err := h.sessionService.GetSession(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// UpdateSession godoc
// @Summary      Update session fields
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body UpdateSessionRequest true "Fields to change"
// @Success      200 {object} Session
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [put]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	dealerID := c.GetUint("user_id")
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.UpdateSession(uint(sessionID), dealerID, services.UpdateSessionInput{
		Name:           req.Name,
		Description:    req.Description,
		TimeboxMinutes: req.TimeboxMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession godoc
// @Summary      Delete a session
// @Description  Refused while the session is active.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	dealerID := c.GetUint("user_id")
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	if err := h.sessionService.DeleteSession(uint(sessionID), dealerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session deleted"})
}

// StartSession godoc
// @Summary      Start a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} Session
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	actorID := c.GetUint("user_id")
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	session, err := h.sessionService.StartSession(uint(sessionID), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{Type: ws.EventSessionStarted, Data: session})
	c.JSON(http.StatusOK, session)
}

// CompleteSession godoc
// @Summary      Complete a session
// @Description  Recomputes story totals and the consensus rate before completing.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} Session
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	dealerID := c.GetUint("user_id")
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	session, err := h.sessionService.CompleteSession(uint(sessionID), dealerID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{Type: ws.EventSessionCompleted, Data: session})
	c.JSON(http.StatusOK, session)
}

// CancelSession godoc
// @Summary      Cancel a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} Session
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/cancel [post]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	dealerID := c.GetUint("user_id")
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	session, err := h.sessionService.CancelSession(uint(sessionID), dealerID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{Type: ws.EventSessionCancelled, Data: session})
	c.JSON(http.StatusOK, session)
}

// JoinSession godoc
// @Summary      Join a session by code
// @Description  Adds the authenticated user as a participant. Idempotent while the user is still in the session.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body JoinSessionRequest true "Join data"
// @Success      200 {object} services.JoinResult
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/join [post]
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = "user-" + strconv.FormatUint(uint64(userID), 10)
	}

	result, err := h.sessionService.JoinByCode(req.Code, userID, nickname)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.IsRejoin {
		h.hub.Broadcast(result.Session.ID, ws.WSMessage{
			Type: ws.EventParticipantJoined,
			Data: result.Participant,
		})
	}

	c.JSON(http.StatusOK, result)
}

// ListParticipants godoc
// @Summary      List session participants
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} Participant
// @Router       /api/v1/sessions/{id}/participants [get]
func (h *SessionHandler) ListParticipants(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	participants, err := h.sessionService.ListParticipants(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, participants)
}
