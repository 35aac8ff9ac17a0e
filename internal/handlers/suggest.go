package handlers

import (
	"net/http"
	"strconv"

	"planning-poker-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SuggestHandler struct {
	storyService   *services.StoryService
	voteService    *services.VoteService
	suggestService *services.SuggestService
}

func NewSuggestHandler(storyService *services.StoryService, voteService *services.VoteService, suggestService *services.SuggestService) *SuggestHandler {
	return &SuggestHandler{storyService: storyService, voteService: voteService, suggestService: suggestService}
}

// CheckAvailable godoc
// @Summary      Check whether estimate suggestion is configured
// @Tags         suggest
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]bool
// @Router       /api/v1/sessions/suggest-status [get]
func (h *SuggestHandler) CheckAvailable(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available": h.suggestService.IsAvailable()})
}

// SuggestEstimate godoc
// @Summary      Suggest a final estimate for a story
// @Description  Uses the configured model to recommend an estimate from the story text and vote spread.
// @Tags         suggest
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Story ID"
// @Success      200 {object} services.Suggestion
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/stories/{id}/suggest [post]
func (h *SuggestHandler) SuggestEstimate(c *gin.Context) {
	if !h.suggestService.IsAvailable() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "estimate suggestion is not configured"})
		return
	}

	storyID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	story, err := h.storyService.GetStory(uint(storyID))
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.voteService.GetVoteStats(story.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if stats.TotalVotes == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no votes to base a suggestion on"})
		return
	}

	suggestion, err := h.suggestService.SuggestEstimate(story.Title, story.Description, stats)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, suggestion)
}
