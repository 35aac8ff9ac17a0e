package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"planning-poker-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	sessionService *services.SessionService
	storyService   *services.StoryService
}

func NewExportHandler(sessionService *services.SessionService, storyService *services.StoryService) *ExportHandler {
	return &ExportHandler{sessionService: sessionService, storyService: storyService}
}

type ExportStory struct {
	SequenceOrder     int    `json:"sequence_order"`
	Title             string `json:"title"`
	Status            string `json:"status"`
	FinalEstimate     string `json:"final_estimate"`
	ConsensusAchieved bool   `json:"consensus_achieved"`
	VoteSummary       string `json:"vote_summary"`
}

type ExportData struct {
	Name          string        `json:"name"`
	Code          string        `json:"code"`
	Status        string        `json:"status"`
	ConsensusRate int           `json:"consensus_rate"`
	Stories       []ExportStory `json:"stories"`
}

// ExportSession godoc
// @Summary      Export session results
// @Description  Stories with their final estimates, as JSON or CSV.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        format query string false "json or csv" default(json)
// @Success      200 {object} ExportData
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/export [get]
func (h *ExportHandler) ExportSession(c *gin.Context) {
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

	data := ExportData{
		Name:          state.Name,
		Code:          state.Code,
		Status:        state.Status,
		ConsensusRate: state.ConsensusRate,
	}
	for _, st := range state.Stories {
		data.Stories = append(data.Stories, ExportStory{
			SequenceOrder:     st.SequenceOrder,
			Title:             st.Title,
			Status:            st.Status,
			FinalEstimate:     st.FinalEstimate,
			ConsensusAchieved: st.ConsensusAchieved,
			VoteSummary:       st.VoteSummary,
		})
	}

	if c.DefaultQuery("format", "json") != "csv" {
		c.JSON(http.StatusOK, data)
		return
	}

	filename := strings.ReplaceAll(state.Name, " ", "_")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"sequence", "title", "status", "final_estimate", "consensus", "vote_summary"})
	for _, st := range data.Stories {
		w.Write([]string{
			strconv.Itoa(st.SequenceOrder),
			st.Title,
			st.Status,
			st.FinalEstimate,
			strconv.FormatBool(st.ConsensusAchieved),
			st.VoteSummary,
		})
	}
	w.Flush()
}
