package handlers

import (
	"net/http"
	"strconv"

	"planning-poker-backend/internal/services"
	"planning-poker-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type StoryHandler struct {
	storyService *services.StoryService
	hub          *ws.Hub
}

func NewStoryHandler(storyService *services.StoryService, hub *ws.Hub) *StoryHandler {
	return &StoryHandler{storyService: storyService, hub: hub}
}

type AddStoryRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=255"`
	Description   string `json:"description"`
	SequenceOrder *int   `json:"sequence_order"`
}

type UpdateStoryRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	FinalEstimate *string `json:"final_estimate"`
}

type ImportStoriesRequest struct {
	Stories []AddStoryRequest `json:"stories" binding:"required,min=1"`
}

type ReorderRequest struct {
	Items []services.ReorderItem `json:"items" binding:"required,min=1"`
}

type CompleteVotingRequest struct {
	FinalEstimate string `json:"final_estimate" binding:"required"`
	VoteSummary   string `json:"vote_summary"`
}

// AddStory godoc
// @Summary      Add a story to a session
// @Description  Without an explicit sequence_order the story goes to the end of the backlog.
// @Tags         stories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body AddStoryRequest true "Story data"
// @Success      201 {object} Story
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/stories [post]
func (h *StoryHandler) AddStory(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	var req AddStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.storyService.AddStory(uint(sessionID), services.AddStoryInput{
		Title:         req.Title,
		Description:   req.Description,
		SequenceOrder: req.SequenceOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryAdded, Data: story})
	c.JSON(http.StatusCreated, story)
}

// ListStories godoc
// @Summary      List session stories
// @Tags         stories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} Story
// @Router       /api/v1/sessions/{id}/stories [get]
func (h *StoryHandler) ListStories(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	stories, err := h.storyService.ListStories(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stories)
}

// ImportStories godoc
// @Summary      Import a story batch
// @Tags         stories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body ImportStoriesRequest true "Stories"
// @Success      201 {array} Story
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/stories/import [post]
func (h *StoryHandler) ImportStories(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	var req ImportStoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	inputs := make([]services.AddStoryInput, len(req.Stories))
	for i, st := range req.Stories {
		inputs[i] = services.AddStoryInput{Title: st.Title, Description: st.Description}
	}

	stories, err := h.storyService.ImportStories(uint(sessionID), inputs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stories)
}

// ReorderStories godoc
// @Summary      Reorder session stories
// @Tags         stories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body ReorderRequest true "New order assignments"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/reorder [put]
func (h *StoryHandler) ReorderStories(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.storyService.ReorderStories(uint(sessionID), req.Items); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "reordered"})
}

// UpdateStory godoc
// @Summary      Update story fields
// @Tags         stories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Param        request body UpdateStoryRequest true "Fields to change"
// @Success      200 {object} Story
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/stories/{id} [put]
func (h *StoryHandler) UpdateStory(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.storyService.UpdateStory(uint(storyID), services.UpdateStoryInput{
		Title:         req.Title,
		Description:   req.Description,
		FinalEstimate: req.FinalEstimate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryUpdated, Data: story})
	c.JSON(http.StatusOK, story)
}

// DeleteStory godoc
// @Summary      Delete a story
// @Description  The story's votes are deleted first.
// @Tags         stories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/stories/{id} [delete]
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	if err := h.storyService.DeleteStory(uint(storyID)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "story deleted"})
}

// StartVoting godoc
// @Summary      Open a voting round
// @Tags         stories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} Story
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/start [post]
func (h *StoryHandler) StartVoting(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	story, err := h.storyService.StartVoting(uint(storyID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryStarted, Data: story})
	c.JSON(http.StatusOK, story)
}

// CompleteVoting godoc
// @Summary      Record the final estimate
// @Tags         stories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Param        request body CompleteVotingRequest true "Final estimate"
// @Success      200 {object} Story
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/complete [post]
func (h *StoryHandler) CompleteVoting(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	var req CompleteVotingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.storyService.CompleteVoting(uint(storyID), req.FinalEstimate, req.VoteSummary)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryCompleted, Data: story})
	c.JSON(http.StatusOK, story)
}

// SkipStory godoc
// @Summary      Skip a story
// @Tags         stories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} Story
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/skip [post]
func (h *StoryHandler) SkipStory(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	story, err := h.storyService.SkipStory(uint(storyID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryUpdated, Data: story})
	c.JSON(http.StatusOK, story)
}

// ResetStory godoc
// @Summary      Reset a story to pending
// @Description  Purges the story's votes and clears its derived fields.
// @Tags         stories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} Story
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/reset [post]
func (h *StoryHandler) ResetStory(c *gin.Context) {
	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	story, err := h.storyService.ResetStory(uint(storyID))
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(story.SessionID, ws.WSMessage{Type: ws.EventStoryReset, Data: story})
	c.JSON(http.StatusOK, story)
}
