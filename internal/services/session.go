package services

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"planning-poker-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionService struct {
	db *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

type CreateSessionInput struct {
	Name           string
	Description    string
	Code           string
	TimeboxMinutes int
}

func (s *SessionService) CreateSession(dealerID uint, in CreateSessionInput) (*models.Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: session name is required", ErrValidation)
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code != "" {
		if !codePattern.MatchString(code) {
			return nil, fmt.Errorf("%w: malformed session code %q", ErrValidation, code)
		}
	} else {
		generated, err := s.generateUniqueCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	session := models.Session{
		Name:           in.Name,
		Description:    in.Description,
		Code:           code,
		Status:         models.SessionStatusPending,
		DealerID:       dealerID,
		TimeboxMinutes: in.TimeboxMinutes,
	}
	if err := s.db.Create(&session).Error; err != nil {
		log.Printf("session: create %q failed: %v", in.Name, err)
		return nil, fmt.Errorf("%w: create session: %v", ErrPersistence, err)
	}

	return &session, nil
}

func (s *SessionService) GetSession(sessionID uint) (*SessionState, error) {
	var session models.Session
	if err := s.db.
		Preload("Stories", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	state := &SessionState{Session: session}
	for i := range session.Participants {
		if session.Participants[i].IsActive() {
			state.ActiveParticipants++
		}
	}
	return state, nil
}

func (s *SessionService) ListSessions(dealerID uint, limit int) ([]SessionSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var sessions []models.Session
	if err := s.db.Where("dealer_id = ?", dealerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrPersistence, err)
	}

	result := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		var participantCount int64
		s.db.Model(&models.Participant{}).
			Where("session_id = ? AND left_at IS NULL", sess.ID).
			Count(&participantCount)

		result[i] = SessionSummary{
			ID:               sess.ID,
			Name:             sess.Name,
			Code:             sess.Code,
			Status:           sess.Status,
			TotalStories:     sess.TotalStories,
			CompletedStories: sess.CompletedStories,
			ConsensusRate:    sess.ConsensusRate,
			ParticipantCount: int(participantCount),
			CreatedAt:        sess.CreatedAt,
		}
	}
	return result, nil
}

type UpdateSessionInput struct {
	Name           *string
	Description    *string
	TimeboxMinutes *int
}

func (s *SessionService) UpdateSession(sessionID, dealerID uint, in UpdateSessionInput) (*models.Session, error) {
	session, err := s.dealerSession(sessionID, dealerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: session name is required", ErrValidation)
		}
		session.Name = *in.Name
	}
	if in.Description != nil {
		session.Description = *in.Description
	}
	if in.TimeboxMinutes != nil {
		session.TimeboxMinutes = *in.TimeboxMinutes
	}

	if err := s.db.Save(session).Error; err != nil {
		return nil, fmt.Errorf("%w: update session %d: %v", ErrPersistence, sessionID, err)
	}
	return session, nil
}

// DeleteSession removes a session and everything under it. Active sessions
// must be completed or cancelled first.
func (s *SessionService) DeleteSession(sessionID, dealerID uint) error {
	session, err := s.dealerSession(sessionID, dealerID)
	if err != nil {
		return err
	}

	if session.Status == models.SessionStatusActive {
		return fmt.Errorf("%w: cannot delete an active session", ErrStateConflict)
	}

	s.db.Where("session_id = ?", sessionID).Delete(&models.Vote{})
	s.db.Where("session_id = ?", sessionID).Delete(&models.Story{})
	s.db.Where("session_id = ?", sessionID).Delete(&models.Participant{})
	if err := s.db.Delete(&models.Session{}, sessionID).Error; err != nil {
		log.Printf("session: delete %d failed: %v", sessionID, err)
		return fmt.Errorf("%w: delete session %d: %v", ErrPersistence, sessionID, err)
	}
	return nil
}

// StartSession moves a pending session to active. The started_at stamp and
// the dealer/code defaults are set only if still unset.
func (s *SessionService) StartSession(sessionID, actorID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	if session.Status != models.SessionStatusPending {
		return nil, fmt.Errorf("%w: session is %s", ErrStateConflict, session.Status)
	}

	session.Status = models.SessionStatusActive
	if session.StartedAt == nil {
		now := time.Now()
		session.StartedAt = &now
	}
	if session.DealerID == 0 {
		session.DealerID = actorID
	}
	if session.Code == "" {
		code, err := s.generateUniqueCode()
		if err != nil {
			return nil, err
		}
		session.Code = code
	}

	if err := s.db.Save(&session).Error; err != nil {
		return nil, fmt.Errorf("%w: start session %d: %v", ErrPersistence, sessionID, err)
	}
	return &session, nil
}

func (s *SessionService) CompleteSession(sessionID, dealerID uint) (*models.Session, error) {
	session, err := s.dealerSession(sessionID, dealerID)
	if err != nil {
		return nil, err
	}

	if session.IsTerminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrStateConflict, session.Status)
	}

	s.applyStorySummary(session)
	session.Status = models.SessionStatusCompleted
	if session.CompletedAt == nil {
		now := time.Now()
		session.CompletedAt = &now
	}

	if err := s.db.Save(session).Error; err != nil {
		return nil, fmt.Errorf("%w: complete session %d: %v", ErrPersistence, sessionID, err)
	}
	return session, nil
}

func (s *SessionService) CancelSession(sessionID, dealerID uint) (*models.Session, error) {
	session, err := s.dealerSession(sessionID, dealerID)
	if err != nil {
		return nil, err
	}

	if session.IsTerminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrStateConflict, session.Status)
	}

	session.Status = models.SessionStatusCancelled
	if err := s.db.Save(session).Error; err != nil {
		return nil, fmt.Errorf("%w: cancel session %d: %v", ErrPersistence, sessionID, err)
	}
	return session, nil
}

type JoinResult struct {
	Session     models.Session     `json:"session"`
	Participant models.Participant `json:"participant"`
	IsRejoin    bool               `json:"is_rejoin"`
}

// JoinByCode adds the user to the session behind the code. Idempotent while
// the user's participant row is still active.
func (s *SessionService) JoinByCode(code string, userID uint, nickname string) (*JoinResult, error) {
	session, err := s.findJoinable(code)
	if err != nil {
		return nil, err
	}

	var existing models.Participant
	if err := s.db.Where("session_id = ? AND user_id = ? AND left_at IS NULL", session.ID, userID).
		First(&existing).Error; err == nil {
		return &JoinResult{Session: *session, Participant: existing, IsRejoin: true}, nil
	}

	participant := models.Participant{
		SessionID: session.ID,
		UserID:    userID,
		Nickname:  nickname,
		Role:      models.RoleParticipant,
		JoinedAt:  time.Now(),
	}
	if err := s.db.Create(&participant).Error; err != nil {
		return nil, fmt.Errorf("%w: join session %d: %v", ErrPersistence, session.ID, err)
	}

	return &JoinResult{Session: *session, Participant: participant}, nil
}

// JoinGuest adds an anonymous participant identified by a fresh token.
func (s *SessionService) JoinGuest(code, nickname string) (*JoinResult, error) {
	if strings.TrimSpace(nickname) == "" {
		return nil, fmt.Errorf("%w: nickname is required", ErrValidation)
	}

	session, err := s.findJoinable(code)
	if err != nil {
		return nil, err
	}

	participant := models.Participant{
		SessionID:  session.ID,
		GuestToken: uuid.NewString(),
		Nickname:   nickname,
		Role:       models.RoleParticipant,
		JoinedAt:   time.Now(),
	}
	if err := s.db.Create(&participant).Error; err != nil {
		return nil, fmt.Errorf("%w: join session %d: %v", ErrPersistence, session.ID, err)
	}

	return &JoinResult{Session: *session, Participant: participant}, nil
}

func (s *SessionService) GetParticipantByToken(token string) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.Where("guest_token = ? AND left_at IS NULL", token).
		First(&participant).Error; err != nil {
		return nil, fmt.Errorf("%w: participant", ErrNotFound)
	}
	return &participant, nil
}

func (s *SessionService) LeaveSession(participantID uint) error {
	var participant models.Participant
	if err := s.db.First(&participant, participantID).Error; err != nil {
		return fmt.Errorf("%w: participant %d", ErrNotFound, participantID)
	}
	if participant.LeftAt != nil {
		return nil
	}

	now := time.Now()
	participant.LeftAt = &now
	if err := s.db.Save(&participant).Error; err != nil {
		return fmt.Errorf("%w: leave session: %v", ErrPersistence, err)
	}
	return nil
}

func (s *SessionService) ListParticipants(sessionID uint) ([]models.Participant, error) {
	var participants []models.Participant
	if err := s.db.Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("%w: list participants: %v", ErrPersistence, err)
	}
	return participants, nil
}

// ActiveVoterCount counts participants whose votes are awaited: still in the
// session and not observers.
func (s *SessionService) ActiveVoterCount(sessionID uint) int {
	var count int64
	s.db.Model(&models.Participant{}).
		Where("session_id = ? AND left_at IS NULL AND role <> ?", sessionID, models.RoleObserver).
		Count(&count)
	return int(count)
}

// RefreshStorySummary recomputes the session's story counters from the
// persisted stories and applies the auto-complete rule. Called after every
// story status change; recomputing from scratch keeps redundant calls
// harmless.
func (s *SessionService) RefreshStorySummary(sessionID uint) error {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}

	s.applyStorySummary(&session)

	var skipped int64
	s.db.Model(&models.Story{}).
		Where("session_id = ? AND status = ?", sessionID, models.StoryStatusSkipped).
		Count(&skipped)

	if session.TotalStories > 0 &&
		session.CompletedStories+int(skipped) == session.TotalStories &&
		session.Status == models.SessionStatusActive {
		session.Status = models.SessionStatusCompleted
		if session.CompletedAt == nil {
			now := time.Now()
			session.CompletedAt = &now
		}
		log.Printf("session %d: all stories resolved, auto-completing", sessionID)
	}

	if err := s.db.Save(&session).Error; err != nil {
		log.Printf("session: refresh summary %d failed: %v", sessionID, err)
		return fmt.Errorf("%w: refresh session %d: %v", ErrPersistence, sessionID, err)
	}
	return nil
}

// applyStorySummary fills the aggregate counters in memory; the caller saves.
func (s *SessionService) applyStorySummary(session *models.Session) {
	var total, completed, consensus int64
	s.db.Model(&models.Story{}).Where("session_id = ?", session.ID).Count(&total)
	s.db.Model(&models.Story{}).
		Where("session_id = ? AND status = ?", session.ID, models.StoryStatusCompleted).
		Count(&completed)
	s.db.Model(&models.Story{}).
		Where("session_id = ? AND consensus_achieved = ?", session.ID, true).
		Count(&consensus)

	session.TotalStories = int(total)
	session.CompletedStories = int(completed)
	if total > 0 {
		session.ConsensusRate = int(math.Round(100 * float64(consensus) / float64(total)))
	} else {
		session.ConsensusRate = 0
	}
}

func (s *SessionService) findJoinable(code string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("%w: session code %q", ErrNotFound, code)
	}
	if session.IsTerminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrStateConflict, session.Status)
	}
	return &session, nil
}

func (s *SessionService) dealerSession(sessionID, dealerID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("id = ? AND dealer_id = ?", sessionID, dealerID).
		First(&session).Error; err != nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}
	return &session, nil
}

// generateUniqueCode draws 6-character codes until one is free. The unique
// index on code is the real guard; the bounded retry handles collisions.
func (s *SessionService) generateUniqueCode() (string, error) {
	for attempt := 0; attempt < 20; attempt++ {
		b := make([]byte, models.SessionCodeLength)
		for i := range b {
			b[i] = codeCharset[rand.Intn(len(codeCharset))]
		}
		code := string(b)

		var count int64
		s.db.Model(&models.Session{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique session code", ErrPersistence)
}

type SessionState struct {
	models.Session
	ActiveParticipants int `json:"active_participants"`
}

type SessionSummary struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Status           string    `json:"status"`
	TotalStories     int       `json:"total_stories"`
	CompletedStories int       `json:"completed_stories"`
	ConsensusRate    int       `json:"consensus_rate"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
}
