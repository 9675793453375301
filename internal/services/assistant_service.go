package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mushroomlog/mushroomlog/internal/metrics"
)

const mycologistInstruction = "你是一位专门为家庭种植者提供指导的真菌学专家。你的回答应该建立在严谨的生物学基础上，" +
	"同时给出的操作建议要适合家庭环境（如厨房、阳台或帐篷）。如果用户询问有关食用安全的问题，" +
	"请始终提醒他们：无法 100% 确认品种时严禁食用。"

// maxQuestionLen bounds a question in runes.
const maxQuestionLen = 4000

// TextGenerator produces a single answer for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, model, systemInstruction, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
}

// NewGenAIGenerator creates a Gemini API backed generator.
func NewGenAIGenerator(ctx context.Context, apiKey string) (TextGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &genaiGenerator{client: client}, nil
}

func (g *genaiGenerator) Generate(ctx context.Context, model, systemInstruction, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// AssistantService answers cultivation questions as a virtual mycologist.
type AssistantService struct {
	generator TextGenerator
	model     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAssistantService accepts a nil generator; Ask then reports ErrUnavailable.
func NewAssistantService(generator TextGenerator, model string, logger *zap.Logger) *AssistantService {
	return &AssistantService{
		generator: generator,
		model:     model,
		timeout:   60 * time.Second,
		logger:    logger.Named("assistant"),
	}
}

func (s *AssistantService) Enabled() bool {
	return s.generator != nil
}

func (s *AssistantService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.AssistantRequests.WithLabelValues("invalid").Inc()
		return "", invalid("question is required")
	}
	if len([]rune(question)) > maxQuestionLen {
		metrics.AssistantRequests.WithLabelValues("invalid").Inc()
		return "", invalid("question is longer than %d characters", maxQuestionLen)
	}
	if !s.Enabled() {
		metrics.AssistantRequests.WithLabelValues("disabled").Inc()
		return "", fmt.Errorf("%w: assistant is not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.generator.Generate(ctx, s.model, mycologistInstruction, question)
	if err != nil {
		metrics.AssistantRequests.WithLabelValues("error").Inc()
		s.logger.Error("assistant request failed", zap.String("model", s.model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	metrics.AssistantRequests.WithLabelValues("ok").Inc()
	return answer, nil
}
