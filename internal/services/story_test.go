package services

import (
	"errors"
	"testing"

	"planning-poker-backend/internal/models"
)

func TestAddStorySequenceOrders(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY01")

	for i, title := range []string{"first", "second", "third"} {
		story, err := stories.AddStory(session.ID, AddStoryInput{Title: title})
		if err != nil {
			t.Fatalf("add story %s: %v", title, err)
		}
		if story.SequenceOrder != i+1 {
			t.Fatalf("expected order %d for %s, got %d", i+1, title, story.SequenceOrder)
		}
	}

	dup := 2
	if _, err := stories.AddStory(session.ID, AddStoryInput{Title: "clash", SequenceOrder: &dup}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for duplicate order, got %v", err)
	}
}

func TestStartVotingStampIdempotent(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY02")

	story, err := stories.AddStory(session.ID, AddStoryInput{Title: "story"})
	if err != nil {
		t.Fatalf("add story: %v", err)
	}

	started, err := stories.StartVoting(story.ID)
	if err != nil {
		t.Fatalf("start voting: %v", err)
	}
	if started.VotingStarted == nil {
		t.Fatalf("expected voting_started stamp")
	}
	stamp := *started.VotingStarted

	// Reopen the round; the original stamp must survive.
	db.Model(&models.Story{}).Where("id = ?", story.ID).Update("status", models.StoryStatusRevealed)

	restarted, err := stories.StartVoting(story.ID)
	if err != nil {
		t.Fatalf("restart voting: %v", err)
	}
	if !restarted.VotingStarted.Equal(stamp) {
		t.Fatalf("voting_started changed on restart: %v != %v", restarted.VotingStarted, stamp)
	}
}

func TestStartVotingConflicts(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY03")

	story := votingStory(t, stories, session.ID, "in progress")
	if _, err := stories.StartVoting(story.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict starting an open round, got %v", err)
	}

	done, _ := stories.AddStory(session.ID, AddStoryInput{Title: "done"})
	db.Model(&models.Story{}).Where("id = ?", done.ID).Update("status", models.StoryStatusCompleted)
	if _, err := stories.StartVoting(done.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict starting a completed story, got %v", err)
	}
}

func TestCompleteVoting(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY04")
	story := votingStory(t, stories, session.ID, "story")

	completed, err := stories.CompleteVoting(story.ID, "8", "3 of 3 participants voted")
	if err != nil {
		t.Fatalf("complete voting: %v", err)
	}
	if completed.Status != models.StoryStatusCompleted {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if completed.FinalEstimate != "8" || !completed.ConsensusAchieved {
		t.Fatalf("unexpected completion fields: %+v", completed)
	}
	if completed.CompletedOn == nil {
		t.Fatalf("expected completed_on stamp")
	}

	if _, err := stories.CompleteVoting(story.ID, "13", ""); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict completing a terminal story, got %v", err)
	}
}

func TestResetStoryPurgesRound(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "STRY05")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "story")

	if _, err := votes.CastVote(session.ID, story.ID, alice.ID, "5"); err != nil {
		t.Fatalf("cast: %v", err)
	}

	reset, err := stories.ResetStory(story.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.Status != models.StoryStatusPending {
		t.Fatalf("expected pending after reset, got %s", reset.Status)
	}
	if reset.VotingStarted != nil || reset.CompletedOn != nil {
		t.Fatalf("expected cleared timestamps, got %+v", reset)
	}
	if reset.FinalEstimate != "" || reset.VoteSummary != "" || reset.ConsensusAchieved {
		t.Fatalf("expected cleared derived fields, got %+v", reset)
	}

	var count int64
	db.Model(&models.Vote{}).Where("story_id = ?", story.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected votes purged on reset, got %d", count)
	}
}

func TestReorderAfterDelete(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY06")

	var ids []uint
	for _, title := range []string{"one", "two", "three"} {
		story, err := stories.AddStory(session.ID, AddStoryInput{Title: title})
		if err != nil {
			t.Fatalf("add story: %v", err)
		}
		ids = append(ids, story.ID)
	}

	if err := stories.DeleteStory(ids[1]); err != nil {
		t.Fatalf("delete story: %v", err)
	}

	if err := stories.ReorderStories(session.ID, []ReorderItem{{StoryID: ids[2], NewOrder: 2}}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	remaining, _ := stories.ListStories(session.ID)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(remaining))
	}
	if remaining[0].SequenceOrder != 1 || remaining[1].SequenceOrder != 2 {
		t.Fatalf("expected orders [1 2], got [%d %d]", remaining[0].SequenceOrder, remaining[1].SequenceOrder)
	}
}

func TestReorderRejectsDuplicates(t *testing.T) {
	db, sessions, stories, _ := newServices(t)
	session := activeSession(t, db, sessions, "STRY07")

	a, _ := stories.AddStory(session.ID, AddStoryInput{Title: "a"})
	stories.AddStory(session.ID, AddStoryInput{Title: "b"})

	err := stories.ReorderStories(session.ID, []ReorderItem{{StoryID: a.ID, NewOrder: 2}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for colliding orders, got %v", err)
	}
}
