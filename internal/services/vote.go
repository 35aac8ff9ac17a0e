package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"planning-poker-backend/internal/models"

	"gorm.io/gorm"
)

type VoteService struct {
	db       *gorm.DB
	tally    *TallyService
	sessions *SessionService
}

func NewVoteService(db *gorm.DB, tally *TallyService, sessions *SessionService) *VoteService {
	return &VoteService{db: db, tally: tally, sessions: sessions}
}

type CastResult struct {
	VoteID   uint   `json:"vote_id"`
	Value    string `json:"vote_value"`
	Version  int    `json:"version"`
	Revealed bool   `json:"revealed"`
}

// CastVote records a participant's vote on a story. Superseding the previous
// vote and inserting the new version happen in one transaction, with the
// supersede guarded by the old row's version so racing revotes from the same
// participant cannot leave two current rows.
func (s *VoteService) CastVote(sessionID, storyID, participantID uint, value string) (*CastResult, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: vote value is required", ErrValidation)
	}

	var story models.Story
	if err := s.db.Where("id = ? AND session_id = ?", storyID, sessionID).
		First(&story).Error; err != nil {
		return nil, fmt.Errorf("%w: story %d in session %d", ErrNotFound, storyID, sessionID)
	}
	if !story.CanAcceptVotes() {
		return nil, fmt.Errorf("%w: story is %s", ErrStateConflict, story.Status)
	}

	var participant models.Participant
	if err := s.db.Where("id = ? AND session_id = ?", participantID, sessionID).
		First(&participant).Error; err != nil {
		return nil, fmt.Errorf("%w: participant %d in session %d", ErrNotFound, participantID, sessionID)
	}
	if !participant.IsActive() {
		return nil, fmt.Errorf("%w: participant has left the session", ErrStateConflict)
	}
	if participant.Role == models.RoleObserver {
		return nil, fmt.Errorf("%w: observers cannot vote", ErrStateConflict)
	}

	vote := models.Vote{
		SessionID:     sessionID,
		StoryID:       storyID,
		ParticipantID: participantID,
		Value:         value,
		Version:       1,
		IsCurrent:     true,
		CreatedOn:     time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Vote
		err := tx.Where("story_id = ? AND participant_id = ? AND is_current = ?",
			storyID, participantID, true).First(&current).Error
		if err == nil {
			res := tx.Model(&models.Vote{}).
				Where("id = ? AND version = ? AND is_current = ?", current.ID, current.Version, true).
				Update("is_current", false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: vote superseded concurrently", ErrStateConflict)
			}
			vote.Version = current.Version + 1
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&vote).Error
	})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		log.Printf("vote: cast on story %d by participant %d failed: %v", storyID, participantID, err)
		return nil, fmt.Errorf("%w: cast vote: %v", ErrPersistence, err)
	}

	revealed, err := s.recountStory(&story)
	if err != nil {
		return nil, err
	}

	return &CastResult{
		VoteID:   vote.ID,
		Value:    vote.Value,
		Version:  vote.Version,
		Revealed: revealed,
	}, nil
}

// recountStory refreshes the story's vote summary from the persisted vote
// set and applies the auto-reveal rule. It reads the current state rather
// than a delta, so near-simultaneous votes can each run it safely.
func (s *VoteService) recountStory(story *models.Story) (bool, error) {
	var current int64
	s.db.Model(&models.Vote{}).
		Where("story_id = ? AND is_current = ?", story.ID, true).
		Count(&current)

	voters := s.sessions.ActiveVoterCount(story.SessionID)
	story.VoteSummary = fmt.Sprintf("%d of %d participants voted", current, voters)

	revealed := false
	if voters > 0 && int(current) >= voters && story.Status == models.StoryStatusVoting {
		story.Status = models.StoryStatusRevealed
		revealed = true
		log.Printf("story %d: all %d voters cast, auto-revealing", story.ID, voters)
	}

	if err := s.db.Save(story).Error; err != nil {
		return false, fmt.Errorf("%w: update story %d summary: %v", ErrPersistence, story.ID, err)
	}

	if revealed {
		s.sessions.RefreshStorySummary(story.SessionID)
	}
	return revealed, nil
}

// GetStoryVotes returns the story's current votes, or the full version
// history when includeHistory is set.
func (s *VoteService) GetStoryVotes(storyID uint, includeHistory bool) ([]models.Vote, error) {
	var story models.Story
	if err := s.db.First(&story, storyID).Error; err != nil {
		return nil, fmt.Errorf("%w: story %d", ErrNotFound, storyID)
	}

	q := s.db.Where("story_id = ?", storyID)
	if !includeHistory {
		q = q.Where("is_current = ?", true)
	}

	var votes []models.Vote
	if err := q.Order("created_on ASC").Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("%w: list votes: %v", ErrPersistence, err)
	}
	return votes, nil
}

func (s *VoteService) GetVoteStats(storyID uint) (VoteStats, error) {
	votes, err := s.GetStoryVotes(storyID, false)
	if err != nil {
		return VoteStats{}, err
	}
	return s.tally.Compute(votes), nil
}

// ClearStoryVotes purges every vote row for the story, history included.
func (s *VoteService) ClearStoryVotes(storyID uint) error {
	var story models.Story
	if err := s.db.First(&story, storyID).Error; err != nil {
		return fmt.Errorf("%w: story %d", ErrNotFound, storyID)
	}

	if err := s.db.Where("story_id = ?", storyID).Delete(&models.Vote{}).Error; err != nil {
		log.Printf("vote: clear story %d failed: %v", storyID, err)
		return fmt.Errorf("%w: clear votes for story %d: %v", ErrPersistence, storyID, err)
	}

	_, err := s.recountStory(&story)
	return err
}
