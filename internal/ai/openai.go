package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"promoscout/internal/breaker"
)

// ScoreResult is the parsed output of a relevance-scoring call.
type ScoreResult struct {
	Score     float64 `json:"score"`  // 0-10 as returned by the model
	Intent    string  `json:"intent"` // research, pain_point, competitor_mention, question, general
	Reasoning string  `json:"reasoning"`
}

// Generator defines the generative-text interface used by the classifier and
// the draft generator.
type Generator interface {
	// Score asks the model to rate an opportunity; the prompt must request a
	// JSON object with score/intent/reasoning fields.
	Score(ctx context.Context, prompt string) (ScoreResult, error)
	// Complete returns plain prose for the given prompt.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	// Model returns the model identifier for draft metadata.
	Model() string
}

// OpenAIClient implements Generator using OpenAI Chat Completions API, guarded
// by the generation-dependency breaker and inter-call spacing limiter.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	br      *breaker.Breaker
	limiter *rate.Limiter
	log     *zap.Logger
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
}

func NewOpenAI(cfg Config, br *breaker.Breaker, limiter *rate.Limiter, log *zap.Logger) *OpenAIClient {
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	model := cfg.Model
	if model == "" {
		panic("OpenAI model must be specified")
	}
	return &OpenAIClient{client: c, model: model, br: br, limiter: limiter, log: log}
}

func (o *OpenAIClient) Model() string { return o.model }

func (o *OpenAIClient) Score(ctx context.Context, prompt string) (ScoreResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	sys := "You rate promotion opportunities. Reply with a single JSON object " +
		`{"score": <0-10>, "intent": "<research|pain_point|competitor_mention|question|general>", "reasoning": "<one sentence>"}` +
		" and nothing else."
	out, err := o.create(ctx, sys, prompt, 0)
	if err != nil {
		o.log.Error("openai: score error", zap.Error(err))
		return ScoreResult{}, err
	}
	res, err := parseScore(out)
	if err != nil {
		o.log.Error("openai: score parse error", zap.String("raw", out), zap.Error(err))
		return ScoreResult{}, err
	}
	return res, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	out, err := o.create(ctx, "", prompt, maxTokens)
	if err != nil {
		o.log.Error("openai: completion error", zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (o *OpenAIClient) create(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !o.br.Allow() {
		return "", breaker.ErrOpen
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	msgs := []openai.ChatCompletionMessage{}
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		o.br.RecordFailure()
		return "", err
	}
	o.br.RecordSuccess()
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// parseScore extracts the first JSON object from the model reply. Models
// sometimes wrap JSON in prose or code fences.
func parseScore(raw string) (ScoreResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ScoreResult{}, fmt.Errorf("no JSON object in reply")
	}
	var res ScoreResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return ScoreResult{}, err
	}
	if res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 10 {
		res.Score = 10
	}
	return res, nil
}
