package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"planning-poker-backend/internal/models"

	"gorm.io/gorm"
)

type StoryService struct {
	db       *gorm.DB
	sessions *SessionService
}

func NewStoryService(db *gorm.DB, sessions *SessionService) *StoryService {
	return &StoryService{db: db, sessions: sessions}
}

type AddStoryInput struct {
	Title         string
	Description   string
	SequenceOrder *int
}

func (s *StoryService) AddStory(sessionID uint, in AddStoryInput) (*models.Story, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: story title is required", ErrValidation)
	}

	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	order := 0
	if in.SequenceOrder != nil {
		order = *in.SequenceOrder
		var count int64
		s.db.Model(&models.Story{}).
			Where("session_id = ? AND sequence_order = ?", sessionID, order).
			Count(&count)
		if count > 0 {
			return nil, fmt.Errorf("%w: duplicate sequence_order %d", ErrValidation, order)
		}
	} else {
		order = s.nextSequenceOrder(sessionID)
	}

	story := models.Story{
		SessionID:     sessionID,
		Title:         in.Title,
		Description:   in.Description,
		SequenceOrder: order,
		Status:        models.StoryStatusPending,
	}
	if err := s.db.Create(&story).Error; err != nil {
		log.Printf("story: create in session %d failed: %v", sessionID, err)
		return nil, fmt.Errorf("%w: create story: %v", ErrPersistence, err)
	}

	s.sessions.RefreshStorySummary(sessionID)
	return &story, nil
}

// ImportStories creates a batch of stories at the end of the backlog.
func (s *StoryService) ImportStories(sessionID uint, inputs []AddStoryInput) ([]models.Story, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	order := s.nextSequenceOrder(sessionID)
	created := make([]models.Story, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Title) == "" {
			continue
		}
		story := models.Story{
			SessionID:     sessionID,
			Title:         in.Title,
			Description:   in.Description,
			SequenceOrder: order,
			Status:        models.StoryStatusPending,
		}
		if err := s.db.Create(&story).Error; err != nil {
			return nil, fmt.Errorf("%w: import story %q: %v", ErrPersistence, in.Title, err)
		}
		created = append(created, story)
		order++
	}

	s.sessions.RefreshStorySummary(sessionID)
	return created, nil
}

func (s *StoryService) ListStories(sessionID uint) ([]models.Story, error) {
	var stories []models.Story
	if err := s.db.Where("session_id = ?", sessionID).
		Order("sequence_order ASC").
		Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("%w: list stories: %v", ErrPersistence, err)
	}
	return stories, nil
}

func (s *StoryService) GetStory(storyID uint) (*models.Story, error) {
	var story models.Story
	if err := s.db.First(&story, storyID).Error; err != nil {
		return nil, fmt.Errorf("%w: story %d", ErrNotFound, storyID)
	}
	return &story, nil
}

type UpdateStoryInput struct {
	Title         *string
	Description   *string
	FinalEstimate *string
}

func (s *StoryService) UpdateStory(storyID uint, in UpdateStoryInput) (*models.Story, error) {
	story, err := s.GetStory(storyID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("%w: story title is required", ErrValidation)
		}
		story.Title = *in.Title
	}
	if in.Description != nil {
		story.Description = *in.Description
	}
	if in.FinalEstimate != nil {
		story.FinalEstimate = *in.FinalEstimate
	}

	if err := s.db.Save(story).Error; err != nil {
		return nil, fmt.Errorf("%w: update story %d: %v", ErrPersistence, storyID, err)
	}
	return story, nil
}

// DeleteStory removes the story and its votes, votes first.
func (s *StoryService) DeleteStory(storyID uint) error {
	story, err := s.GetStory(storyID)
	if err != nil {
		return err
	}

	s.db.Where("story_id = ?", storyID).Delete(&models.Vote{})
	if err := s.db.Delete(&models.Story{}, storyID).Error; err != nil {
		log.Printf("story: delete %d failed: %v", storyID, err)
		return fmt.Errorf("%w: delete story %d: %v", ErrPersistence, storyID, err)
	}

	s.sessions.RefreshStorySummary(story.SessionID)
	return nil
}

type ReorderItem struct {
	StoryID  uint `json:"story_id" binding:"required"`
	NewOrder int  `json:"new_order"`
}

// ReorderStories reassigns sequence orders. The whole assignment is checked
// for duplicates before anything is written.
func (s *StoryService) ReorderStories(sessionID uint, items []ReorderItem) error {
	stories, err := s.ListStories(sessionID)
	if err != nil {
		return err
	}

	orders := make(map[uint]int, len(stories))
	for _, st := range stories {
		orders[st.ID] = st.SequenceOrder
	}
	for _, item := range items {
		if _, ok := orders[item.StoryID]; !ok {
			return fmt.Errorf("%w: story %d not in session %d", ErrNotFound, item.StoryID, sessionID)
		}
		orders[item.StoryID] = item.NewOrder
	}

	seen := make(map[int]uint, len(orders))
	for id, order := range orders {
		if other, dup := seen[order]; dup {
			return fmt.Errorf("%w: stories %d and %d would share sequence_order %d", ErrValidation, other, id, order)
		}
		seen[order] = id
	}

	for _, item := range items {
		if err := s.db.Model(&models.Story{}).
			Where("id = ?", item.StoryID).
			Update("sequence_order", item.NewOrder).Error; err != nil {
			return fmt.Errorf("%w: reorder story %d: %v", ErrPersistence, item.StoryID, err)
		}
	}
	return nil
}

// StartVoting opens a voting round. The voting_started stamp is set once and
// survives later rounds on the same story.
func (s *StoryService) StartVoting(storyID uint) (*models.Story, error) {
	story, err := s.GetStory(storyID)
	if err != nil {
		return nil, err
	}

	if story.Status != models.StoryStatusPending && story.Status != models.StoryStatusRevealed {
		return nil, fmt.Errorf("%w: story is %s", ErrStateConflict, story.Status)
	}

	story.Status = models.StoryStatusVoting
	if story.VotingStarted == nil {
		now := time.Now()
		story.VotingStarted = &now
	}

	if err := s.db.Save(story).Error; err != nil {
		return nil, fmt.Errorf("%w: start voting on story %d: %v", ErrPersistence, storyID, err)
	}

	s.sessions.RefreshStorySummary(story.SessionID)
	return story, nil
}

// CompleteVoting records the final estimate. Unlike voting_started, the
// completed_on stamp is overwritten on every completion.
func (s *StoryService) CompleteVoting(storyID uint, finalEstimate, voteSummary string) (*models.Story, error) {
	story, err := s.GetStory(storyID)
	if err != nil {
		return nil, err
	}

	if story.IsTerminal() {
		return nil, fmt.Errorf("%w: story is %s", ErrStateConflict, story.Status)
	}

	now := time.Now()
	story.Status = models.StoryStatusCompleted
	story.FinalEstimate = finalEstimate
	if voteSummary != "" {
		story.VoteSummary = voteSummary
	}
	story.ConsensusAchieved = true
	story.CompletedOn = &now

	if err := s.db.Save(story).Error; err != nil {
		return nil, fmt.Errorf("%w: complete story %d: %v", ErrPersistence, storyID, err)
	}

	s.sessions.RefreshStorySummary(story.SessionID)
	return story, nil
}

func (s *StoryService) SkipStory(storyID uint) (*models.Story, error) {
	story, err := s.GetStory(storyID)
	if err != nil {
		return nil, err
	}

	if story.IsTerminal() {
		return nil, fmt.Errorf("%w: story is %s", ErrStateConflict, story.Status)
	}

	story.Status = models.StoryStatusSkipped
	if err := s.db.Save(story).Error; err != nil {
		return nil, fmt.Errorf("%w: skip story %d: %v", ErrPersistence, storyID, err)
	}

	s.sessions.RefreshStorySummary(story.SessionID)
	return story, nil
}

// ResetStory restarts the round from zero: votes are purged and every
// derived field is cleared.
func (s *StoryService) ResetStory(storyID uint) (*models.Story, error) {
	story, err := s.GetStory(storyID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Where("story_id = ?", storyID).Delete(&models.Vote{}).Error; err != nil {
		return nil, fmt.Errorf("%w: purge votes for story %d: %v", ErrPersistence, storyID, err)
	}

	story.Status = models.StoryStatusPending
	story.FinalEstimate = ""
	story.VoteSummary = ""
	story.ConsensusAchieved = false
	story.VotingStarted = nil
	story.CompletedOn = nil

	if err := s.db.Save(story).Error; err != nil {
		return nil, fmt.Errorf("%w: reset story %d: %v", ErrPersistence, storyID, err)
	}

	s.sessions.RefreshStorySummary(story.SessionID)
	return story, nil
}

func (s *StoryService) nextSequenceOrder(sessionID uint) int {
	var max int
	s.db.Model(&models.Story{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence_order), 0)").
		Scan(&max)
	return max + 1
}
