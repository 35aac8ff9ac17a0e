package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SuggestService asks an OpenAI-compatible endpoint for an estimate
// recommendation once a story's votes are on the table. Optional: disabled
// when no API key is configured.
type SuggestService struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	model      string
}

func NewSuggestService(apiKey, apiURL, model string) *SuggestService {
	return &SuggestService{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
	}
}

func (s *SuggestService) IsAvailable() bool {
	return s.apiKey != ""
}

type Suggestion struct {
	Estimate  string `json:"estimate"`
	Rationale string `json:"rationale"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const suggestPrompt = `You are an estimation facilitator for a planning poker session. Given a story and the votes cast on it, recommend a final story-point estimate. You must respond with ONLY valid JSON (no markdown, no code fences, no explanations) in the following format:

{"estimate": "5", "rationale": "one or two sentences"}

Rules:
- The estimate must be one of the card values that appear in the votes, or a value between the minimum and maximum numeric vote
- Prefer the median when votes are spread; prefer the shared value when votes agree
- Keep the rationale to at most two sentences
- Return ONLY the JSON object, nothing else`

func (s *SuggestService) SuggestEstimate(title, description string, stats VoteStats) (*Suggestion, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("estimate suggestion is not configured")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Story: %s\n", title)
	if description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", description)
	}
	fmt.Fprintf(&sb, "Votes (value: count): ")
	for value, count := range stats.VoteCounts {
		fmt.Fprintf(&sb, "%s: %d, ", value, count)
	}
	if stats.Median != nil {
		fmt.Fprintf(&sb, "\nMedian: %g, Average: %g", *stats.Median, *stats.Average)
	}

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: suggestPrompt},
			{Role: "user", Content: sb.String()},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", s.apiURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	content := cleanJSONContent(chatResp.Choices[0].Message.Content)

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return nil, fmt.Errorf("API returned invalid JSON: %w", err)
	}
	if suggestion.Estimate == "" {
		return nil, fmt.Errorf("API returned no estimate")
	}

	return &suggestion, nil
}

func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	}
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
