package services

import (
	"errors"
	"testing"

	"planning-poker-backend/internal/models"
)

func TestCastVoteVersioning(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE01")
	voter := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	addParticipant(t, db, session.ID, "bob", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "Login flow")

	first, err := votes.CastVote(session.ID, story.ID, voter.ID, "5")
	if err != nil {
		t.Fatalf("first cast: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}

	second, err := votes.CastVote(session.ID, story.ID, voter.ID, "8")
	if err != nil {
		t.Fatalf("revote: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}

	var current []models.Vote
	db.Where("story_id = ? AND participant_id = ? AND is_current = ?", story.ID, voter.ID, true).Find(&current)
	if len(current) != 1 {
		t.Fatalf("expected exactly one current vote, got %d", len(current))
	}
	if current[0].Value != "8" {
		t.Fatalf("expected current vote 8, got %q", current[0].Value)
	}

	var total int64
	db.Model(&models.Vote{}).Where("story_id = ? AND participant_id = ?", story.ID, voter.ID).Count(&total)
	if total != 2 {
		t.Fatalf("expected both versions kept, got %d rows", total)
	}
}

func TestAutoReveal(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE02")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	bob := addParticipant(t, db, session.ID, "bob", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "Search page")

	result, err := votes.CastVote(session.ID, story.ID, alice.ID, "3")
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if result.Revealed {
		t.Fatalf("story revealed before all voters cast")
	}

	updated, _ := stories.GetStory(story.ID)
	if updated.Status != models.StoryStatusVoting {
		t.Fatalf("expected story still voting, got %s", updated.Status)
	}
	if updated.VoteSummary != "1 of 2 participants voted" {
		t.Fatalf("unexpected vote summary %q", updated.VoteSummary)
	}

	result, err = votes.CastVote(session.ID, story.ID, bob.ID, "5")
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if !result.Revealed {
		t.Fatalf("expected auto-reveal on final vote")
	}

	updated, _ = stories.GetStory(story.ID)
	if updated.Status != models.StoryStatusRevealed {
		t.Fatalf("expected story revealed, got %s", updated.Status)
	}
	if updated.VoteSummary != "2 of 2 participants voted" {
		t.Fatalf("unexpected vote summary %q", updated.VoteSummary)
	}
}

func TestObserversDoNotBlockReveal(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE03")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	observer := addParticipant(t, db, session.ID, "watcher", models.RoleObserver)
	story := votingStory(t, stories, session.ID, "Checkout")

	if _, err := votes.CastVote(session.ID, story.ID, observer.ID, "5"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict for observer vote, got %v", err)
	}

	result, err := votes.CastVote(session.ID, story.ID, alice.ID, "5")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if !result.Revealed {
		t.Fatalf("expected reveal once every non-observer voted")
	}
}

func TestCastVoteRequiresVotingStatus(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE04")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)

	story, err := stories.AddStory(session.ID, AddStoryInput{Title: "Pending story"})
	if err != nil {
		t.Fatalf("add story: %v", err)
	}

	if _, err := votes.CastVote(session.ID, story.ID, alice.ID, "5"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict voting on pending story, got %v", err)
	}
}

func TestGetStoryVotesHistory(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE05")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	addParticipant(t, db, session.ID, "bob", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "Profile page")

	votes.CastVote(session.ID, story.ID, alice.ID, "3")
	votes.CastVote(session.ID, story.ID, alice.ID, "5")

	current, err := votes.GetStoryVotes(story.ID, false)
	if err != nil {
		t.Fatalf("current votes: %v", err)
	}
	if len(current) != 1 || current[0].Value != "5" {
		t.Fatalf("expected one current vote of 5, got %+v", current)
	}

	history, err := votes.GetStoryVotes(story.ID, true)
	if err != nil {
		t.Fatalf("history votes: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows with history, got %d", len(history))
	}
}

func TestClearStoryVotes(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE06")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	addParticipant(t, db, session.ID, "bob", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "Notifications")

	votes.CastVote(session.ID, story.ID, alice.ID, "3")
	votes.CastVote(session.ID, story.ID, alice.ID, "8")

	if err := votes.ClearStoryVotes(story.ID); err != nil {
		t.Fatalf("clear votes: %v", err)
	}

	var count int64
	db.Model(&models.Vote{}).Where("story_id = ?", story.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected all vote rows purged, got %d", count)
	}

	updated, _ := stories.GetStory(story.ID)
	if updated.VoteSummary != "0 of 2 participants voted" {
		t.Fatalf("unexpected vote summary after clear: %q", updated.VoteSummary)
	}
}

func TestVoteStatsFromStore(t *testing.T) {
	db, sessions, stories, votes := newServices(t)
	session := activeSession(t, db, sessions, "VOTE07")
	alice := addParticipant(t, db, session.ID, "alice", models.RoleParticipant)
	bob := addParticipant(t, db, session.ID, "bob", models.RoleParticipant)
	carol := addParticipant(t, db, session.ID, "carol", models.RoleParticipant)
	story := votingStory(t, stories, session.ID, "Billing")

	votes.CastVote(session.ID, story.ID, alice.ID, "5")
	votes.CastVote(session.ID, story.ID, bob.ID, "5")
	votes.CastVote(session.ID, story.ID, carol.ID, "?")

	stats, err := votes.GetVoteStats(story.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalVotes != 3 || stats.Consensus {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if *stats.Average != 5 || *stats.Median != 5 {
		t.Fatalf("expected numeric stats over [5 5], got %+v", stats)
	}
}
