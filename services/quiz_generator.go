package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/model"
	"github.com/santhosh-tekuri/jsonschema/v6"
	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const (
	QUIZ_GENERATOR_SVC = "quiz_generator_svc"

	defaultQuizModel  = "gpt-4o-mini"
	defaultLLMTimeout = 30 * time.Second
	quizQuestionCount = 5
	quizOptionCount   = 4
	maxOptionLength   = 120
)

// QuestionGenerator produces ordered multiple-choice questions for a piece of content.
type QuestionGenerator interface {
	Generate(ctx context.Context, title, description string) ([]model.Question, error)
}

// TemplateQuestionGenerator builds questions from the title and description alone.
type TemplateQuestionGenerator struct{}

func (TemplateQuestionGenerator) Generate(_ context.Context, title, description string) ([]model.Question, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "this lesson"
	}

	questions := []model.Question{
		rotated(title, model.Question{
			Question: fmt.Sprintf("What is the main topic of %q?", title),
			Options:  []string{title, "An unrelated topic", "None of the above", "It has no topic"},
			Answer:   title,
		}),
	}

	if sentence := firstSentence(description); sentence != "" {
		questions = append(questions, rotated(title+"/description", model.Question{
			Question: fmt.Sprintf("Which statement best matches the description of %q?", title),
			Options:  []string{sentence, "It is a music video", "It is an advertisement", "It has no description"},
			Answer:   sentence,
		}))
	}

	questions = append(questions, model.Question{
		Question: "Which of these is the best way to retain what you just learned?",
		Options:  []string{"Skip the review", "Summarise it in your own words", "Forget about it", "Watch something else"},
		Answer:   "Summarise it in your own words",
	})

	return questions, nil
}

// rotated moves the options by a stable offset derived from seed so the answer
// does not always sit in the first slot.
func rotated(seed string, q model.Question) model.Question {
	h := fnv.New32a()
	h.Write([]byte(seed))
	n := len(q.Options)
	shift := int(h.Sum32() % uint32(n))

	options := make([]string, n)
	for i, opt := range q.Options {
		options[(i+shift)%n] = opt
	}
	q.Options = options
	return q
}

func firstSentence(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return ""
	}
	if i := strings.IndexAny(text, ".!?"); i > 0 {
		text = text[:i+1]
	}
	if utf8.RuneCountInString(text) > maxOptionLength {
		runes := []rune(text)
		text = string(runes[:maxOptionLength-3]) + "..."
	}
	return text
}

var quizSchemaDefinition = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"question", "options", "answer"},
				"properties": map[string]any{
					"question": map[string]any{"type": "string", "minLength": 1},
					"options": map[string]any{
						"type":     "array",
						"minItems": quizOptionCount,
						"maxItems": quizOptionCount,
						"items":    map[string]any{"type": "string"},
					},
					"answer": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

var (
	quizSchemaOnce     sync.Once
	quizSchemaCompiled *jsonschema.Schema
	quizSchemaErr      error
)

func compiledQuizSchema() (*jsonschema.Schema, error) {
	quizSchemaOnce.Do(func() {
		// the compiler wants a decoded JSON value, not Go literals
		defBytes, err := json.Marshal(quizSchemaDefinition)
		if err != nil {
			quizSchemaErr = err
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			quizSchemaErr = err
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://quiz.json", def); err != nil {
			quizSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		quizSchemaCompiled, quizSchemaErr = c.Compile("schema://quiz.json")
	})
	return quizSchemaCompiled, quizSchemaErr
}

// parseGeneratedQuiz validates raw model output and checks every answer is one of its options.
func parseGeneratedQuiz(raw []byte) ([]model.Question, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := compiledQuizSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var out struct {
		Questions []model.Question `json:"questions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	for i, q := range out.Questions {
		found := false
		for _, opt := range q.Options {
			if opt == q.Answer {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("question %d: answer is not among the options", i)
		}
	}
	return out.Questions, nil
}

// OpenAIQuestionGenerator asks a chat model for schema-constrained questions
// and falls back when the call or the output is unusable.
type OpenAIQuestionGenerator struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	fallback QuestionGenerator
}

func NewOpenAIQuestionGenerator(client *openai.Client, model string, timeout time.Duration, fallback QuestionGenerator) *OpenAIQuestionGenerator {
	if model == "" {
		model = defaultQuizModel
	}
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	return &OpenAIQuestionGenerator{client: client, model: model, timeout: timeout, fallback: fallback}
}

func (g *OpenAIQuestionGenerator) Generate(ctx context.Context, title, description string) ([]model.Question, error) {
	questions, err := g.generate(ctx, title, description)
	if err == nil {
		return questions, nil
	}

	log.WithError(err).WithField("title", title).Warn("Model question generation failed, using templates")
	if g.fallback == nil {
		return nil, err
	}
	return g.fallback.Generate(ctx, title, description)
}

func (g *OpenAIQuestionGenerator) generate(ctx context.Context, title, description string) ([]model.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	schemaBytes, err := json.Marshal(quizSchemaDefinition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You write %d multiple-choice comprehension questions for a learning video. "+
					"Each question has %d options and exactly one answer copied verbatim from the options.", quizQuestionCount, quizOptionCount),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Title: %s\n\nDescription:\n%s", title, description),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "quiz",
				Schema: json.RawMessage(schemaBytes),
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	return parseGeneratedQuiz([]byte(resp.Choices[0].Message.Content))
}

// QuizGeneratorService picks the model-backed generator when OPENAI_API_KEY is set.
type QuizGeneratorService struct {
	appcontext.DefaultService

	generator QuestionGenerator
}

func (svc QuizGeneratorService) Id() string {
	return QUIZ_GENERATOR_SVC
}

func (svc *QuizGeneratorService) Configure(ctx *appcontext.Context) error {
	svc.generator = TemplateQuestionGenerator{}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config := openai.DefaultConfig(apiKey)
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			config.BaseURL = baseURL
		}

		timeout := defaultLLMTimeout
		if v := os.Getenv("OPENAI_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid OPENAI_TIMEOUT %q: %w", v, err)
			}
			timeout = d
		}
		svc.generator = NewOpenAIQuestionGenerator(openai.NewClientWithConfig(config), os.Getenv("OPENAI_MODEL"), timeout, TemplateQuestionGenerator{})
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *QuizGeneratorService) Generate(ctx context.Context, title, description string) ([]model.Question, error) {
	return svc.generator.Generate(ctx, title, description)
}
