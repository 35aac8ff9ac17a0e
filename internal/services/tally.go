package services

import (
	"math"
	"sort"
	"strconv"

	"planning-poker-backend/internal/models"
)

// VoteStats is the aggregate of one story's current votes. The numeric
// fields are nil when no vote parses as a number.
type VoteStats struct {
	TotalVotes     int            `json:"total_votes"`
	VoteCounts     map[string]int `json:"vote_counts"`
	Consensus      bool           `json:"consensus"`
	ConsensusValue string         `json:"consensus_value,omitempty"`
	Average        *float64       `json:"average,omitempty"`
	Median         *float64       `json:"median,omitempty"`
	Min            *float64       `json:"min,omitempty"`
	Max            *float64       `json:"max,omitempty"`
	Range          *float64       `json:"range,omitempty"`
}

type TallyService struct{}

func NewTallyService() *TallyService {
	return &TallyService{}
}

// Compute aggregates the given votes. It is a pure function: no I/O, and
// deterministic for a given vote set. Callers pass current votes only.
func (s *TallyService) Compute(votes []models.Vote) VoteStats {
	stats := VoteStats{
		TotalVotes: len(votes),
		VoteCounts: make(map[string]int),
	}

	var numeric []float64
	for _, v := range votes {
		stats.VoteCounts[v.Value]++
		if f, ok := parseCard(v.Value); ok {
			numeric = append(numeric, f)
		}
	}

	if stats.TotalVotes > 0 && len(stats.VoteCounts) == 1 {
		stats.Consensus = true
		stats.ConsensusValue = votes[0].Value
	}

	if len(numeric) == 0 {
		return stats
	}

	sort.Float64s(numeric)

	sum := 0.0
	for _, f := range numeric {
		sum += f
	}
	stats.Average = ptr(round2(sum / float64(len(numeric))))
	stats.Median = ptr(median(numeric))
	stats.Min = ptr(numeric[0])
	stats.Max = ptr(numeric[len(numeric)-1])
	stats.Range = ptr(numeric[len(numeric)-1] - numeric[0])

	return stats
}

// parseCard parses a numeric card. ParseFloat accepts "infinity" and "inf",
// but the infinity card is not a number for statistics purposes.
func parseCard(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// median of a sorted slice, standard even/odd rule.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// round2 rounds to two decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 {
	return &v
}
