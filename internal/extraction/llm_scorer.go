package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const scorerSystemPrompt = `You score how likely a clinical document belongs to each candidate client.
Given the document text and a list of candidate clients, respond with ONLY a JSON array:
[{"clientId": "<uuid>", "confidence": <0-100>, "rationale": ["..."]}]
Confidence 100 means the document unambiguously names the client; 0 means no evidence.`

// LLMScorerProvider selects the backing model family.
type LLMScorerProvider string

const (
	ProviderOpenAI LLMScorerProvider = "openai"
	ProviderOllama LLMScorerProvider = "ollama"
)

// LLMScorerConfig configures the model-backed scorer.
type LLMScorerConfig struct {
	Provider  LLMScorerProvider
	Model     string
	APIKey    string
	ServerURL string
}

// LLMScorer asks a language model to score candidate matches.
type LLMScorer struct {
	llm       llms.Model
	modelName string
}

var _ Scorer = (*LLMScorer)(nil)

func NewLLMScorer(cfg LLMScorerConfig) (*LLMScorer, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.ServerURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported scorer provider: %s", cfg.Provider)
	}

	return &LLMScorer{llm: model, modelName: cfg.Model}, nil
}

func (s *LLMScorer) Score(ctx context.Context, text string, candidates []ClientCandidate) ([]ClientScore, error) {
	var roster strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&roster, "- %s: %s\n", c.ID, c.Name)
	}

	userPrompt := fmt.Sprintf("Candidates:\n%s\nDocument:\n%s\n\nScores:", roster.String(), text)

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, scorerSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	response, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "scoring oracle call failed")
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("scoring oracle returned no choices")
	}

	return parseScores(response.Choices[0].Content)
}

func parseScores(raw string) ([]ClientScore, error) {
	// Models occasionally wrap the JSON in a code fence.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed []struct {
		ClientID   string   `json:"clientId"`
		Confidence int      `json:"confidence"`
		Rationale  []string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, errors.Wrap(err, "scoring oracle returned malformed scores")
	}

	scores := make([]ClientScore, 0, len(parsed))
	for _, p := range parsed {
		id, err := uuid.Parse(p.ClientID)
		if err != nil {
			continue
		}
		confidence := p.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
		scores = append(scores, ClientScore{ClientID: id, Confidence: confidence, Rationale: p.Rationale})
	}
	return scores, nil
}
