package services

import (
	"testing"

	"planning-poker-backend/internal/models"
)

func votesOf(values ...string) []models.Vote {
	votes := make([]models.Vote, len(values))
	for i, v := range values {
		votes[i] = models.Vote{StoryID: 1, ParticipantID: uint(i + 1), Value: v, Version: 1, IsCurrent: true}
	}
	return votes
}

func TestTallyConsensus(t *testing.T) {
	tally := NewTallyService()

	stats := tally.Compute(votesOf("5", "5", "5"))
	if !stats.Consensus {
		t.Fatalf("expected consensus for identical votes")
	}
	if stats.ConsensusValue != "5" {
		t.Fatalf("expected consensus value 5, got %q", stats.ConsensusValue)
	}

	stats = tally.Compute(votesOf("5", "8"))
	if stats.Consensus {
		t.Fatalf("expected no consensus for distinct votes")
	}
	if stats.ConsensusValue != "" {
		t.Fatalf("expected empty consensus value, got %q", stats.ConsensusValue)
	}
}

func TestTallyEmpty(t *testing.T) {
	stats := NewTallyService().Compute(nil)
	if stats.TotalVotes != 0 || stats.Consensus {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if stats.Average != nil || stats.Median != nil || stats.Min != nil || stats.Max != nil || stats.Range != nil {
		t.Fatalf("expected nil numeric fields for empty vote set")
	}
}

func TestTallyMixedValues(t *testing.T) {
	stats := NewTallyService().Compute(votesOf("5", "5", "8", "?"))

	if stats.TotalVotes != 4 {
		t.Fatalf("expected 4 total votes, got %d", stats.TotalVotes)
	}
	if stats.VoteCounts["5"] != 2 || stats.VoteCounts["8"] != 1 || stats.VoteCounts["?"] != 1 {
		t.Fatalf("unexpected vote counts: %v", stats.VoteCounts)
	}
	if stats.Consensus {
		t.Fatalf("expected no consensus")
	}
	if *stats.Average != 6.0 {
		t.Fatalf("expected average 6.0, got %v", *stats.Average)
	}
	if *stats.Median != 5 {
		t.Fatalf("expected median 5, got %v", *stats.Median)
	}
	if *stats.Min != 5 || *stats.Max != 8 || *stats.Range != 3 {
		t.Fatalf("unexpected min/max/range: %v/%v/%v", *stats.Min, *stats.Max, *stats.Range)
	}
}

func TestTallyNonNumericOnly(t *testing.T) {
	stats := NewTallyService().Compute(votesOf("?", "coffee", "☕"))

	if stats.TotalVotes != 3 {
		t.Fatalf("expected 3 total votes, got %d", stats.TotalVotes)
	}
	if stats.Average != nil || stats.Median != nil {
		t.Fatalf("expected nil numeric stats for non-numeric votes")
	}
}

// strconv.ParseFloat accepts "infinity", so the infinity card needs its own
// exclusion from the numeric subset.
func TestTallyInfinityExcluded(t *testing.T) {
	stats := NewTallyService().Compute(votesOf("infinity", "∞", "8"))

	if *stats.Average != 8 || *stats.Min != 8 || *stats.Max != 8 {
		t.Fatalf("expected infinity votes excluded from numeric stats, got %+v", stats)
	}
	if stats.VoteCounts["infinity"] != 1 || stats.VoteCounts["∞"] != 1 {
		t.Fatalf("expected infinity votes still counted: %v", stats.VoteCounts)
	}
}

func TestTallyMedianEvenCount(t *testing.T) {
	stats := NewTallyService().Compute(votesOf("3", "13", "5", "8"))
	if *stats.Median != 6.5 {
		t.Fatalf("expected median 6.5, got %v", *stats.Median)
	}
}

func TestTallyAverageRounding(t *testing.T) {
	stats := NewTallyService().Compute(votesOf("2", "3", "3"))
	if *stats.Average != 2.67 {
		t.Fatalf("expected average 2.67, got %v", *stats.Average)
	}
}
