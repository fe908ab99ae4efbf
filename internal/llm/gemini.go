// Package llm adapts the Google Gemini API to the generation and
// transcription boundaries.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ambientworks/companiond/internal/domain"
)

// replyShapeInstruction asks the model for the structured reply shape.
// Models that ignore it degrade gracefully to a plain-text reply.
const replyShapeInstruction = "Respond with a single JSON object of the form " +
	`{"message": "<your remark>", "emotion": "<one word, e.g. happy, excited, curious, neutral>"}. ` +
	"No other text."

const transcribePrompt = "Please transcribe this audio accurately. Return ONLY the transcription."

// Gemini implements domain.Generator and domain.Transcriber.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini client for the given model.
func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Generate calls the model with a (system, user) prompt pair and parses
// the structured-or-plain reply shape.
func (g *Gemini) Generate(ctx context.Context, systemPrompt, userPrompt string) (domain.Reply, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			systemPrompt+"\n\n"+replyShapeInstruction, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), config)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return domain.Reply{}, fmt.Errorf("gemini returned no text")
	}

	return ParseReply(text), nil
}

// Transcribe converts audio bytes to text. Returns "" on any failure per
// the transcription boundary contract.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte) string {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(audio, "audio/wav"),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		g.logger.Warn("gemini transcription failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

// structuredReply is the wire shape the model is asked to produce.
type structuredReply struct {
	Message string `json:"message"`
	Emotion string `json:"emotion"`
}

// ParseReply interprets model output as either the structured
// {message, emotion} object or plain text. Markdown code fences around
// the JSON are tolerated.
func ParseReply(text string) domain.Reply {
	candidate := stripCodeFence(text)

	var parsed structuredReply
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil && parsed.Message != "" {
		return domain.Reply{
			Message:    parsed.Message,
			Emotion:    parsed.Emotion,
			Structured: true,
		}
	}

	return domain.Reply{Message: text}
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var (
	_ domain.Generator   = (*Gemini)(nil)
	_ domain.Transcriber = (*Gemini)(nil)
)
