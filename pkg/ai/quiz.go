package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errNoUsableQuestions = errors.New("quiz output contained no usable questions")

// GenerateQuiz asks the model for a multiple-choice quiz. Questions without text, with fewer
// than two options or whose answer matches no option are dropped.
func (s *OpenAISuggester) GenerateQuiz(parent context.Context, req QuizRequest) (GeneratedQuiz, error) {
	ctx, span := s.tracer.Start(parent, "openai.generate_quiz", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
		attribute.String("subject", req.Subject),
		attribute.Int("questions", req.QuestionCount),
	))
	defer span.End()

	content, err := s.completeJSON(ctx, span, operationQuiz, quizSystemPrompt(), buildQuizPrompt(req))
	if err != nil {
		return GeneratedQuiz{}, err
	}

	quiz, err := parseGeneratedQuiz([]byte(content), req.QuestionCount)
	if err != nil {
		return GeneratedQuiz{}, s.fail(span, operationQuiz, err)
	}
	return quiz, nil
}

func quizSystemPrompt() string {
	return "You write multiple-choice revision quizzes for secondary school students. Respond with a JSON object " +
		"{\"questions\": [{\"id\", \"questionText\", \"options\": [{\"label\", \"text\"}], \"correctAnswer\", \"explanation\"}]}. " +
		"Every question has exactly four options labelled A, B, C and D, exactly one is correct and correctAnswer is its label."
}

func buildQuizPrompt(req QuizRequest) string {
	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Generate %d %s multiple-choice questions.\n\n", req.QuestionCount, req.Difficulty)
	builder.WriteString("## Subject\n")
	builder.WriteString(req.Subject)
	builder.WriteString("\n")
	if req.Topic != "" {
		builder.WriteString("\n## Topic\n")
		builder.WriteString(req.Topic)
		builder.WriteString("\n")
	}
	builder.WriteString("\nReturn JSON only.")
	return builder.String()
}

type quizPayload struct {
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	QuestionText  string          `json:"questionText"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
}

func parseGeneratedQuiz(raw []byte, limit int) (GeneratedQuiz, error) {
	var payload quizPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return GeneratedQuiz{}, fmt.Errorf("decode quiz: %w", err)
	}

	quiz := GeneratedQuiz{Questions: make([]GeneratedQuestion, 0, len(payload.Questions))}
	for _, item := range payload.Questions {
		if limit > 0 && len(quiz.Questions) == limit {
			break
		}
		text := strings.TrimSpace(item.QuestionText)
		options := decodeOptions(item.Options)
		if text == "" || len(options) < 2 {
			continue
		}
		answer, ok := resolveAnswer(item.CorrectAnswer, options)
		if !ok {
			continue
		}
		quiz.Questions = append(quiz.Questions, GeneratedQuestion{
			QuestionText:  text,
			Options:       options,
			CorrectAnswer: answer,
			Explanation:   strings.TrimSpace(item.Explanation),
		})
	}

	if len(quiz.Questions) == 0 {
		return GeneratedQuiz{}, errNoUsableQuestions
	}
	return quiz, nil
}

// decodeOptions accepts a list of {label, text} objects, a plain list of strings or a label to text map.
func decodeOptions(raw json.RawMessage) []GeneratedOption {
	if len(raw) == 0 {
		return nil
	}

	var labelled []struct {
		Label string `json:"label"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &labelled); err == nil {
		options := make([]GeneratedOption, 0, len(labelled))
		for i, option := range labelled {
			label := normalizeLabel(option.Label)
			if label == "" {
				label = labelFor(i)
			}
			options = appendOption(options, label, option.Text)
		}
		return options
	}

	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		options := make([]GeneratedOption, 0, len(plain))
		for i, text := range plain {
			options = appendOption(options, labelFor(i), text)
		}
		return options
	}

	var byLabel map[string]string
	if err := json.Unmarshal(raw, &byLabel); err == nil {
		labels := make([]string, 0, len(byLabel))
		for label := range byLabel {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		options := make([]GeneratedOption, 0, len(labels))
		for _, label := range labels {
			options = appendOption(options, normalizeLabel(label), byLabel[label])
		}
		return options
	}

	return nil
}

func appendOption(options []GeneratedOption, label, text string) []GeneratedOption {
	text = strings.TrimSpace(text)
	if label == "" || text == "" {
		return options
	}
	for _, existing := range options {
		if existing.Label == label {
			return options
		}
	}
	return append(options, GeneratedOption{Label: label, Text: text})
}

// resolveAnswer maps the model's answer to an option label. It accepts the label itself,
// a label followed by punctuation such as "B)" or "C. Paris", or the option text.
func resolveAnswer(answer string, options []GeneratedOption) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	for _, option := range options {
		if strings.EqualFold(answer, option.Label) || strings.EqualFold(answer, option.Text) {
			return option.Label, true
		}
	}
	for _, option := range options {
		prefix := strings.ToUpper(answer[:min(len(answer), len(option.Label)+1)])
		if prefix == option.Label+")" || prefix == option.Label+"." || prefix == option.Label+":" {
			return option.Label, true
		}
	}
	return "", false
}

func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.TrimRight(label, ").:")
	return strings.ToUpper(strings.TrimSpace(label))
}

func labelFor(index int) string {
	if index < 26 {
		return string(rune('A' + index))
	}
	return fmt.Sprintf("%d", index+1)
}
