package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"

	"pocketmoney/internal/core"
)

// Gemini generates content with a Gemini model served by Vertex AI. The API
// key is a Vertex AI express mode key. Replies are requested as JSON
// matching a response schema and validated again on arrival.
type Gemini struct {
	svc   *aiplatform.Service
	model string
}

var _ Generator = (*Gemini)(nil)

var (
	choreSchema = &aiplatform.GoogleCloudAiplatformV1Schema{
		Type:     "ARRAY",
		Items:    &aiplatform.GoogleCloudAiplatformV1Schema{Type: "STRING"},
		MaxItems: MaxSuggestions,
	}
	lessonSchema = &aiplatform.GoogleCloudAiplatformV1Schema{
		Type: "OBJECT",
		Properties: map[string]aiplatform.GoogleCloudAiplatformV1Schema{
			"title":         {Type: "STRING"},
			"content":       {Type: "STRING"},
			"quizQuestion":  {Type: "STRING"},
			"options":       {Type: "ARRAY", Items: &aiplatform.GoogleCloudAiplatformV1Schema{Type: "STRING"}},
			"correctAnswer": {Type: "INTEGER"},
		},
		Required: []string{"title", "content", "quizQuestion", "options", "correctAnswer"},
	}
)

// NewGemini builds a client for model. Extra options are appended after the
// API key, so tests can point the client at a local endpoint.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if !strings.HasPrefix(model, "publishers/") {
		model = "publishers/google/models/" + strings.TrimPrefix(model, "models/")
	}
	svc, err := aiplatform.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai service: %w", err)
	}
	return &Gemini{svc: svc, model: model}, nil
}

func (g *Gemini) SuggestChores(ctx context.Context, age int, interests []string) ([]string, error) {
	about := "anything"
	if len(interests) > 0 {
		about = strings.Join(interests, ", ")
	}
	prompt := fmt.Sprintf("Suggest %d age-appropriate chores for a %d year old interested in %s. "+
		"Return only the chore titles as a JSON array of strings.", MaxSuggestions, age, about)

	text, err := g.generate(ctx, prompt, choreSchema)
	if err != nil {
		return nil, err
	}
	return parseChores(text)
}

func (g *Gemini) GenerateLesson(ctx context.Context, topic string) (core.Lesson, error) {
	prompt := fmt.Sprintf("Create a short, fun financial lesson about %q for a kid. "+
		"Reply with a JSON object with the keys title, content (under 50 words), quizQuestion, "+
		"options (exactly %d strings) and correctAnswer (the index of the correct option, 0-%d).",
		topic, core.LessonOptions, core.LessonOptions-1)

	text, err := g.generate(ctx, prompt, lessonSchema)
	if err != nil {
		return core.Lesson{}, err
	}
	return parseLesson(text)
}

func (g *Gemini) generate(ctx context.Context, prompt string, schema *aiplatform.GoogleCloudAiplatformV1Schema) (string, error) {
	req := &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{{
			Role:  "user",
			Parts: []*aiplatform.GoogleCloudAiplatformV1Part{{Text: prompt}},
		}},
		GenerationConfig: &aiplatform.GoogleCloudAiplatformV1GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
	resp, err := g.svc.Publishers.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %v: %w", err, core.ErrExternalService)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response: %w", core.ErrExternalService)
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response: %w", core.ErrExternalService)
	}
	return sb.String(), nil
}

func parseChores(text string) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode chore list: %v: %w", err, core.ErrExternalService)
	}
	out := make([]string, 0, MaxSuggestions)
	for _, title := range raw {
		if title = strings.TrimSpace(title); title != "" {
			out = append(out, title)
		}
		if len(out) == MaxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no chore titles: %w", core.ErrExternalService)
	}
	return out, nil
}

func parseLesson(text string) (core.Lesson, error) {
	var l core.Lesson
	if err := json.Unmarshal([]byte(stripFence(text)), &l); err != nil {
		return core.Lesson{}, fmt.Errorf("decode lesson: %v: %w", err, core.ErrExternalService)
	}
	if err := l.Validate(); err != nil {
		return core.Lesson{}, fmt.Errorf("lesson shape: %v: %w", err, core.ErrExternalService)
	}
	return l, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
