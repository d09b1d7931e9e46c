package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	modelName = "gemini-2.5-flash"

	// Входной текст режется, чтобы не упереться в контекстное окно.
	maxSourceChars = 120_000
)

var ErrEmptyResponse = errors.New("model returned no content")

// QuizQuestion is the strict JSON contract the quiz model answers with.
type QuizQuestion struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
	Explain  string            `json:"explain,omitempty"`
}

// Client holds pre-configured generative models for the app.
type Client struct {
	summaryModel   *genai.GenerativeModel
	quizModel      *genai.GenerativeModel
	translateModel *genai.GenerativeModel
	baseClient     *genai.Client
	log            *zap.SugaredLogger
}

func NewClient(ctx context.Context, apiKey string, log *zap.SugaredLogger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	baseClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summaryModel := baseClient.GenerativeModel(modelName)
	summaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(summarySystemPrompt)},
	}
	summaryModel.SetTemperature(0.5)

	quizModel := baseClient.GenerativeModel(modelName)
	quizModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(quizSystemPrompt)},
	}
	quizModel.SetTemperature(0.4)
	quizModel.ResponseMIMEType = "application/json"

	translateModel := baseClient.GenerativeModel(modelName)
	translateModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(translateSystemPrompt)},
	}
	translateModel.SetTemperature(0.2)

	return &Client{
		summaryModel:   summaryModel,
		quizModel:      quizModel,
		translateModel: translateModel,
		baseClient:     baseClient,
		log:            log,
	}, nil
}

func (c *Client) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// Summarize возвращает HTML конспект и оценку пересечения словарей
// источника и конспекта.
func (c *Client) Summarize(ctx context.Context, text string) (string, float64, error) {
	text = truncate(text)

	resp, err := c.summaryModel.GenerateContent(ctx, genai.Text(fmt.Sprintf(summaryUserPrompt, text)))
	if err != nil {
		return "", 0, fmt.Errorf("generate summary: %w", err)
	}

	raw, err := firstText(resp)
	if err != nil {
		return "", 0, err
	}

	summary := CleanOutput(raw)
	if summary == "" {
		return "", 0, ErrEmptyResponse
	}

	return summary, JaccardScore(text, summary), nil
}

// Translate переводит текстовые узлы HTML конспекта, не трогая разметку.
func (c *Client) Translate(ctx context.Context, content, targetLang string) (string, error) {
	content = truncate(content)

	prompt := fmt.Sprintf(translateUserPrompt, targetLang, content)
	resp, err := c.translateModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}

	raw, err := firstText(resp)
	if err != nil {
		return "", err
	}

	translated := ExtractHTML(CleanOutput(raw))
	if translated == "" {
		return "", ErrEmptyResponse
	}
	return translated, nil
}

// GenerateQuiz asks for n questions and drops malformed entries instead of
// failing the whole batch.
func (c *Client) GenerateQuiz(ctx context.Context, text string, n int, difficulty string) ([]QuizQuestion, error) {
	text = truncate(text)

	prompt := fmt.Sprintf(quizUserPrompt, n, difficulty, text)
	resp, err := c.quizModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	raw, err := firstText(resp)
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuizJSON(raw)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrEmptyResponse
	}
	if dropped := countDropped(raw, questions); dropped > 0 {
		c.log.Warnf("quiz generation dropped %d malformed questions", dropped)
	}
	return questions, nil
}

// ParseQuizJSON decodes the model output, tolerating fences and stray prose
// around the JSON array.
func ParseQuizJSON(raw string) ([]QuizQuestion, error) {
	cleaned := ExtractJSON(CleanOutput(raw))

	var parsed []QuizQuestion
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse quiz json: %w", err)
	}

	questions := make([]QuizQuestion, 0, len(parsed))
	for _, q := range parsed {
		if normalized, ok := normalizeQuestion(q); ok {
			questions = append(questions, normalized)
		}
	}
	return questions, nil
}

func normalizeQuestion(q QuizQuestion) (QuizQuestion, bool) {
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.ToUpper(strings.TrimSpace(q.Answer))
	q.Explain = strings.TrimSpace(q.Explain)

	if q.Question == "" || len(q.Options) < 2 {
		return QuizQuestion{}, false
	}

	options := make(map[string]string, len(q.Options))
	for key, value := range q.Options {
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return QuizQuestion{}, false
		}
		options[key] = value
	}
	q.Options = options

	if _, ok := q.Options[q.Answer]; !ok {
		return QuizQuestion{}, false
	}
	return q, true
}

func countDropped(raw string, kept []QuizQuestion) int {
	var all []json.RawMessage
	if err := json.Unmarshal([]byte(ExtractJSON(CleanOutput(raw))), &all); err != nil {
		return 0
	}
	if len(all) > len(kept) {
		return len(all) - len(kept)
	}
	return 0
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func truncate(text string) string {
	if len(text) <= maxSourceChars {
		return text
	}
	return text[:maxSourceChars]
}
