package services

import (
	"errors"
	"regexp"
	"testing"

	"planning-poker-backend/internal/models"
)

func TestGeneratedCodeShape(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)

	session, err := sessions.CreateSession(1, CreateSessionInput{Name: "Sprint 1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(session.Code) {
		t.Fatalf("unexpected code %q", session.Code)
	}
	if session.Status != models.SessionStatusPending {
		t.Fatalf("expected pending status, got %s", session.Status)
	}
}

func TestCreateSessionCustomCode(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)

	session, err := sessions.CreateSession(1, CreateSessionInput{Name: "Sprint 1", Code: "ab12cd"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Code != "AB12CD" {
		t.Fatalf("expected uppercased code, got %q", session.Code)
	}

	if _, err := sessions.CreateSession(1, CreateSessionInput{Name: "Bad", Code: "short"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for malformed code, got %v", err)
	}
}

func TestStartSessionStampsOnce(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)

	session, _ := sessions.CreateSession(1, CreateSessionInput{Name: "Sprint 1"})
	started, err := sessions.StartSession(session.ID, 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.SessionStatusActive || started.StartedAt == nil {
		t.Fatalf("unexpected state after start: %+v", started)
	}

	if _, err := sessions.StartSession(session.ID, 1); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict starting an active session, got %v", err)
	}
}

func TestDeleteActiveSessionRefused(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)
	session := activeSession(t, db, sessions, "DEL001")

	if err := sessions.DeleteSession(session.ID, 1); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict deleting active session, got %v", err)
	}

	if _, err := sessions.CancelSession(session.ID, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := sessions.DeleteSession(session.ID, 1); err != nil {
		t.Fatalf("delete after cancel: %v", err)
	}
	if _, err := sessions.GetSession(session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestJoinByCodeIdempotent(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)
	session := activeSession(t, db, sessions, "JOIN01")

	first, err := sessions.JoinByCode("JOIN01", 7, "grace")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if first.IsRejoin {
		t.Fatalf("first join flagged as rejoin")
	}

	second, err := sessions.JoinByCode("join01", 7, "grace")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !second.IsRejoin {
		t.Fatalf("expected rejoin for active participant")
	}
	if second.Participant.ID != first.Participant.ID {
		t.Fatalf("rejoin created a new participant row")
	}

	var count int64
	db.Model(&models.Participant{}).Where("session_id = ?", session.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one participant row, got %d", count)
	}
}

func TestJoinGuestIssuesToken(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)
	activeSession(t, db, sessions, "GUEST1")

	result, err := sessions.JoinGuest("GUEST1", "visitor")
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}
	if result.Participant.GuestToken == "" {
		t.Fatalf("expected a guest token")
	}

	found, err := sessions.GetParticipantByToken(result.Participant.GuestToken)
	if err != nil {
		t.Fatalf("lookup by token: %v", err)
	}
	if found.ID != result.Participant.ID {
		t.Fatalf("token resolved to wrong participant")
	}

	if err := sessions.LeaveSession(found.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := sessions.GetParticipantByToken(result.Participant.GuestToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected token invalid after leaving, got %v", err)
	}
}

func TestAutoCompleteSession(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "AUTO01")

	var ids []uint
	for _, title := range []string{"a", "b", "c"} {
		story, err := stories.AddStory(session.ID, AddStoryInput{Title: title})
		if err != nil {
			t.Fatalf("add story: %v", err)
		}
		ids = append(ids, story.ID)
	}

	for _, id := range ids[:2] {
		if _, err := stories.StartVoting(id); err != nil {
			t.Fatalf("start voting: %v", err)
		}
		if _, err := stories.CompleteVoting(id, "5", ""); err != nil {
			t.Fatalf("complete voting: %v", err)
		}
	}

	state, _ := sessions.GetSession(session.ID)
	if state.Status != models.SessionStatusActive {
		t.Fatalf("session completed early: %s", state.Status)
	}

	if _, err := stories.SkipStory(ids[2]); err != nil {
		t.Fatalf("skip: %v", err)
	}

	state, _ = sessions.GetSession(session.ID)
	if state.Status != models.SessionStatusCompleted {
		t.Fatalf("expected auto-complete, got %s", state.Status)
	}
	if state.CompletedAt == nil {
		t.Fatalf("expected completed_at stamp")
	}
	if state.TotalStories != 3 || state.CompletedStories != 2 {
		t.Fatalf("unexpected counters: %d/%d", state.CompletedStories, state.TotalStories)
	}
	// Two of three stories reached consensus.
	if state.ConsensusRate != 67 {
		t.Fatalf("expected consensus rate 67, got %d", state.ConsensusRate)
	}
}

func TestConsensusRateRecomputedFromStore(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "RATE01")

	for _, title := range []string{"a", "b", "c"} {
		story, _ := stories.AddStory(session.ID, AddStoryInput{Title: title})
		stories.StartVoting(story.ID)
		stories.CompleteVoting(story.ID, "5", "")
	}

	// Flip one story's consensus flag and recompute from scratch.
	var first models.Story
	db.Where("session_id = ?", session.ID).Order("sequence_order ASC").First(&first)
	db.Model(&models.Story{}).Where("id = ?", first.ID).Update("consensus_achieved", false)

	if err := sessions.RefreshStorySummary(session.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	state, _ := sessions.GetSession(session.ID)
	if state.ConsensusRate != 67 {
		t.Fatalf("expected consensus rate 67, got %d", state.ConsensusRate)
	}
}

func TestConsensusRateZeroWithoutStories(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db)
	session := activeSession(t, db, sessions, "ZERO01")

	completed, err := sessions.CompleteSession(session.ID, 1)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.ConsensusRate != 0 || completed.TotalStories != 0 {
		t.Fatalf("expected zeroed summary, got %+v", completed)
	}
	if completed.CompletedAt == nil {
		t.Fatalf("expected completed_at stamp")
	}
}
