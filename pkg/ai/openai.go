package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	operationSchedule = "schedule"
	operationQuiz     = "quiz"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "studyplan",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of model completion requests",
	}, []string{"model", "operation"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studyplan",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed model completion requests",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI schedule suggester.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAISuggester implements ScheduleSuggester and QuizGenerator against the OpenAI chat completion API.
type OpenAISuggester struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAISuggester builds a suggester using the provided configuration.
func NewOpenAISuggester(cfg OpenAIConfig) (*OpenAISuggester, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAISuggester{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/studyplan-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_suggester").Logger(),
	}, nil
}

// Suggest asks the model for a JSON schedule and returns the raw JSON object it produced.
func (s *OpenAISuggester) Suggest(parent context.Context, req SuggestionRequest) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(parent, "openai.suggest_schedule", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
		attribute.Int("subjects", len(req.Subjects)),
	))
	defer span.End()

	content, err := s.completeJSON(ctx, span, operationSchedule, plannerSystemPrompt(), buildUserPrompt(req))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(content), nil
}

// completeJSON runs one chat completion in JSON mode and returns the unfenced JSON text.
func (s *OpenAISuggester) completeJSON(ctx context.Context, span trace.Span, operation, system, user string) (string, error) {
	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues(s.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", s.fail(span, operation, fmt.Errorf("openai %s: %w", operation, err))
	}

	if len(resp.Choices) == 0 {
		return "", s.fail(span, operation, fmt.Errorf("no choices returned from openai"))
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return "", s.fail(span, operation, fmt.Errorf("openai returned non-json content"))
	}

	s.logger.Debug().
		Str("operation", operation).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	return content, nil
}

func (s *OpenAISuggester) fail(span trace.Span, operation string, err error) error {
	completionFailures.WithLabelValues(s.cfg.Model, operation).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func plannerSystemPrompt() string {
	return "You plan weekly revision timetables for secondary school students. Respond with a JSON object " +
		"{\"schedule\": [{\"day\", \"timeSlot\", \"activity\", \"subject\", \"topic\", \"duration_minutes\"}]} where day is an " +
		"English weekday name, timeSlot is HH:MM-HH:MM in 24h time, activity is \"Revision\" or \"Break\" and breaks have no subject."
}

func buildUserPrompt(req SuggestionRequest) string {
	builder := strings.Builder{}
	builder.WriteString("# Student\n")
	builder.WriteString(req.StudentName)
	builder.WriteString("\n\n## Subjects\n")
	for _, subject := range req.Subjects {
		builder.WriteString("- ")
		builder.WriteString(subject)
		builder.WriteString("\n")
	}
	if len(req.Days) > 0 {
		builder.WriteString("\n## Days\n")
		builder.WriteString(strings.Join(req.Days, ", "))
		builder.WriteString("\n")
	}
	if req.StartTime != "" || req.EndTime != "" {
		builder.WriteString("\n## Available window\n")
		builder.WriteString(req.StartTime)
		builder.WriteString(" to ")
		builder.WriteString(req.EndTime)
		builder.WriteString("\n")
	}
	if req.MaxStudyMinutes > 0 {
		fmt.Fprintf(&builder, "\n## Maximum study per day\n%d minutes\n", req.MaxStudyMinutes)
	}
	if req.BreakMinutes > 0 {
		fmt.Fprintf(&builder, "\n## Break length\n%d minutes\n", req.BreakMinutes)
	}
	if req.PreparationMinutes > 0 {
		fmt.Fprintf(&builder, "\n## Preparation before each session\n%d minutes\n", req.PreparationMinutes)
	}
	if len(req.Preferences) > 0 {
		keys := make([]string, 0, len(req.Preferences))
		for key := range req.Preferences {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		builder.WriteString("\n## Preferences\n")
		for _, key := range keys {
			fmt.Fprintf(&builder, "- %s: %v\n", key, req.Preferences[key])
		}
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
