package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/internal/script"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// wordsPerSecond approximates narration pace when sizing the script.
const wordsPerSecond = 2.5

// ScriptGenerator implements models.ScriptGenerator with chat completions in JSON mode.
type ScriptGenerator struct {
	client
	model    string
	language string
}

var _ models.ScriptGenerator = (*ScriptGenerator)(nil)
var _ models.Pinger = (*ScriptGenerator)(nil)

func NewScriptGenerator(cfg config.OpenAIConfig, language string, opts ...Option) *ScriptGenerator {
	if language == "" {
		language = "English"
	}
	return &ScriptGenerator{client: newClient(cfg, opts), model: cfg.Model, language: language}
}

func (g *ScriptGenerator) Name() string { return providerName }

func (g *ScriptGenerator) Ping(ctx context.Context) error {
	return g.ping(ctx, capability.ErrGenerationFailed)
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// scriptJSON is the object the model is asked to return.
type scriptJSON struct {
	Hook     string        `json:"hook"`
	Script   string        `json:"script"`
	MidHook  string        `json:"midHook"`
	CTA      string        `json:"cta"`
	Captions []captionJSON `json:"captions"`
	Hashtags []string      `json:"hashtags"`
	Keywords []string      `json:"keywords"`
}

type captionJSON struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

const systemPrompt = `You write scripts for vertical short-form videos (TikTok, YouTube Shorts).
Open with a hook that grabs attention in the first three seconds, keep the language natural and
spoken, add a mid-video hook that builds suspense, and close with a call to action.
Image keywords must describe the topic itself, not generic concepts.
Respond with a single JSON object and nothing else.`

func (g *ScriptGenerator) Generate(ctx context.Context, topic string, durationSeconds int) (models.Script, error) {
	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(topic, durationSeconds, g.language)},
		},
		Temperature:    0.9,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	raw, err := capability.Retry(ctx, g.retry, func(ctx context.Context) ([]byte, error) {
		return g.post(ctx, capability.ErrGenerationFailed, "/v1/chat/completions", req)
	})
	if err != nil {
		return models.Script{}, err
	}

	parsed, err := parseScript(raw)
	if err != nil {
		return models.Script{}, capability.NewProviderError(capability.ErrGenerationFailed, providerName,
			capability.ReasonInvalidResponse, err.Error(), err)
	}
	return script.Normalize(parsed, topic, durationSeconds), nil
}

func buildUserPrompt(topic string, durationSeconds int, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %d second short video script in %s about %q (about %d words).\n\n",
		durationSeconds, language, topic, int(float64(durationSeconds)*wordsPerSecond))
	sb.WriteString(`Return exactly these fields:
{
  "hook": "opening line, first 3 seconds",
  "script": "main narration",
  "midHook": "suspense line for the middle of the video (optional)",
  "cta": "call to action for the end",
  "captions": [{"text": "short caption", "startTime": 0, "duration": 3}],
  "hashtags": ["#tag"],
  "keywords": ["image search keyword"]
}
Captions must be 3-5 seconds each, in order, non-overlapping and cover the whole video.
Give 10-15 hashtags and 3-5 keywords.`)
	return sb.String()
}

func parseScript(raw []byte) (models.Script, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.Script{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Script{}, fmt.Errorf("chat response has no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var sj scriptJSON
	if err := json.Unmarshal([]byte(content), &sj); err != nil {
		return models.Script{}, fmt.Errorf("decoding script JSON: %w", err)
	}
	if strings.TrimSpace(sj.Script) == "" && strings.TrimSpace(sj.Hook) == "" {
		return models.Script{}, fmt.Errorf("script JSON has no narration")
	}

	captions := make([]models.Caption, 0, len(sj.Captions))
	for _, c := range sj.Captions {
		captions = append(captions, models.Caption{Text: c.Text, Start: c.StartTime, Duration: c.Duration})
	}
	return models.Script{
		Hook:     sj.Hook,
		Body:     sj.Script,
		MidHook:  sj.MidHook,
		CTA:      sj.CTA,
		Captions: captions,
		Hashtags: sj.Hashtags,
		Keywords: sj.Keywords,
	}, nil
}
