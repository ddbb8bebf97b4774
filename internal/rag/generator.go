package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/llm"
)

// DefaultPromptTemplate instructs the model to rank matches by price or explain the gaps.
const DefaultPromptTemplate = `
You are a real estate assistant. Analyze these properties based on the user's requirements:

Requirements:
{question}

Available Properties:
{context}

If there are matching properties, provide from Lowest to Highest price:

If no properties match ALL requirements, clearly state:
1. Which requirements weren't met
2. The closest available options
3. Suggestions for adjusting requirements

`

// ValidatePromptTemplate checks that template carries both placeholders.
func ValidatePromptTemplate(template string) error {
	for _, p := range []string{"{question}", "{context}"} {
		if !strings.Contains(template, p) {
			return fmt.Errorf("prompt template is missing the %s placeholder", p)
		}
	}
	return nil
}

// RenderPrompt substitutes question and context in a single pass, so neither is re-expanded.
func RenderPrompt(template, question, contextText string) string {
	return strings.NewReplacer("{question}", question, "{context}", contextText).Replace(template)
}

// Generator fills the prompt template and asks the completion provider for an answer.
type Generator struct {
	completer Completer
	template  string
	params    llm.ChatParams
	timeout   time.Duration
}

// NewGenerator creates a generator. A non-positive timeout disables the deadline.
func NewGenerator(completer Completer, template string, maxTokens int, temperature float32, timeout time.Duration) (*Generator, error) {
	if err := ValidatePromptTemplate(template); err != nil {
		return nil, err
	}
	return &Generator{
		completer: completer,
		template:  template,
		params: llm.ChatParams{
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		timeout: timeout,
	}, nil
}

// Generate returns the raw model text for question given the formatted context.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	genCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := RenderPrompt(g.template, question, contextText)
	started := time.Now()

	answer, err := g.completer.Complete(genCtx, prompt, g.params)
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded)
		logger.ErrorContext(ctx, "completion failed", "timeout", timeout, "elapsed", time.Since(started), "error", err)
		return "", &GenerationError{Timeout: timeout, Err: err}
	}

	logger.InfoContext(ctx, "completion received", "prompt_length", len(prompt), "answer_length", len(answer), "elapsed", time.Since(started))
	return answer, nil
}
