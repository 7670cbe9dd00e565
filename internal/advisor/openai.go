package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = `You are a cautious trading assistant. You receive a JSON market context and answer with one JSON object:
{"action":"buy|sell|hold","confidence":0..1,"reasoning":"...","suggestedSize":0..1,"stopLoss":number|null,"takeProfit":number|null,"timeHorizon":"short|medium|long","riskAssessment":{"marketRisk":"low|medium|high","executionRisk":"low|medium|high","overallRisk":"low|medium|high"}}
suggestedSize is a fraction of the maximum position. Prefer hold when the data is ambiguous.`

// ChatClient is the part of the OpenAI client the advisor uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdvisor asks a chat completion model for a decision.
type OpenAIAdvisor struct {
	client      ChatClient
	model       string
	temperature float32
	logger      *logger.Logger
}

// NewOpenAIAdvisor creates an advisor talking to the OpenAI API, or to any
// compatible endpoint when BaseURL is set.
func NewOpenAIAdvisor(config Config, log *logger.Logger) (*OpenAIAdvisor, error) {
	if config.APIKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "openai advisor requires an api key")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return NewOpenAIAdvisorWithClient(openai.NewClientWithConfig(clientConfig), config.Model, config.Temperature, log), nil
}

// NewOpenAIAdvisorWithClient creates an advisor on top of client.
func NewOpenAIAdvisorWithClient(client ChatClient, model string, temperature float32, log *logger.Logger) *OpenAIAdvisor {
	return &OpenAIAdvisor{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      log.Named("openai"),
	}
}

func (a *OpenAIAdvisor) Decide(ctx context.Context, input types.DecisionContext) (types.Decision, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return types.Decision{}, errors.Wrap(errors.ErrCodeInternal, "failed to encode decision context", err)
	}

	//nolint:exhaustruct
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: a.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return types.Decision{}, errors.Wrap(errors.ErrCodeAdvisorFailed, "openai completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return types.Decision{}, errors.New(errors.ErrCodeAdvisorMalformed, "no response from openai")
	}

	decision, err := ParseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Warn("unusable advisor reply",
			zap.String("symbol", input.Symbol),
			zap.String("reply", resp.Choices[0].Message.Content),
			zap.Error(err),
		)

		return types.Decision{}, err
	}

	decision.Source = "openai:" + a.model

	return decision, nil
}

type decisionPayload struct {
	Action        *string  `json:"action"`
	Confidence    *float64 `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	SuggestedSize *float64 `json:"suggestedSize"`
	StopLoss      *float64 `json:"stopLoss"`
	TakeProfit    *float64 `json:"takeProfit"`
	TimeHorizon   string   `json:"timeHorizon"`
	RiskAssessment *struct {
		MarketRisk    string `json:"marketRisk"`
		ExecutionRisk string `json:"executionRisk"`
		OverallRisk   string `json:"overallRisk"`
	} `json:"riskAssessment"`
}

// ParseDecision decodes a model reply. Code fences around the JSON are
// tolerated; missing required fields are not.
func ParseDecision(raw string) (types.Decision, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.Decision{}, errors.Wrap(errors.ErrCodeAdvisorMalformed, "advisor reply is not valid JSON", err)
	}

	if payload.Action == nil || payload.Confidence == nil || payload.SuggestedSize == nil || payload.RiskAssessment == nil {
		return types.Decision{}, errors.New(errors.ErrCodeAdvisorMalformed, "advisor reply misses required fields")
	}

	decision := types.Decision{
		Action:        types.SignalAction(strings.ToLower(*payload.Action)),
		Confidence:    *payload.Confidence,
		Reasoning:     payload.Reasoning,
		SuggestedSize: *payload.SuggestedSize,
		StopLoss:      optional.FromNillable(payload.StopLoss),
		TakeProfit:    optional.FromNillable(payload.TakeProfit),
		TimeHorizon:   payload.TimeHorizon,
		RiskAssessment: types.RiskAssessment{
			MarketRisk:    types.RiskLevel(strings.ToLower(payload.RiskAssessment.MarketRisk)),
			ExecutionRisk: types.RiskLevel(strings.ToLower(payload.RiskAssessment.ExecutionRisk)),
			OverallRisk:   types.RiskLevel(strings.ToLower(payload.RiskAssessment.OverallRisk)),
		},
		Source: "",
	}

	if err := ValidateDecision(decision); err != nil {
		return types.Decision{}, err
	}

	return decision, nil
}
