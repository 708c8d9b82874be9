package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/util"
)

// AnthropicVerifier implements the verification collaborator using Claude.
// Selected with VERIFIER_PROVIDER=anthropic.
type AnthropicVerifier struct {
	client  anthropic.Client
	model   anthropic.Model
	prompts *config.Prompts
}

// NewAnthropicVerifier creates a verifier with the given API key and prompt
// configuration.
func NewAnthropicVerifier(apiKey string, prompts *config.Prompts) *AnthropicVerifier {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicVerifier{
		client:  client,
		model:   anthropic.ModelClaude3_5Sonnet20241022,
		prompts: prompts,
	}
}

// verifyRecipesTool builds the Claude tool definition mirroring the OpenAI
// verify_recipes schema.
func verifyRecipesTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "verify_recipes",
			Description: anthropic.String("Report qualification and match percentage per recipe."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type: "object",
				Properties: map[string]interface{}{
					"results": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"index":            map[string]interface{}{"type": "integer"},
								"qualifies":        map[string]interface{}{"type": "boolean"},
								"match_percentage": map[string]interface{}{"type": "number", "description": "0-100, how closely the recipe fits the requirements"},
							},
						},
					},
				},
			},
		},
	}
}

// createMessageWithRetry wraps the Claude API call with exponential backoff.
func (v *AnthropicVerifier) createMessageWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	const maxRetries = 5
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := v.client.Messages.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		shouldRetry, waitTime := classifyAnthropicError(err)
		if !shouldRetry {
			return nil, fmt.Errorf("claude API error: %w", err)
		}

		logger.Get().Warn("claude API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		backoff := waitTime * time.Duration(i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("claude API: exhausted %d retries: %w", maxRetries, lastErr)
}

// classifyAnthropicError determines whether to retry and the base wait duration.
func classifyAnthropicError(err error) (shouldRetry bool, waitTime time.Duration) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return true, 2 * time.Second
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true, 2 * time.Second
		default:
			return false, 0
		}
	}
	return false, 0
}

// extractToolInput parses the named tool-use content block returned by Claude.
func extractToolInput(msg *anthropic.Message, name string, out interface{}) error {
	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == name {
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return fmt.Errorf("failed to marshal tool input: %w", err)
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("failed to parse %s tool result: %w", name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("no %s tool_use block in Claude response", name)
}

// Verify checks parsed recipes against the requirements via Claude tool use.
func (v *AnthropicVerifier) Verify(ctx context.Context, recipes []models.ParsedRecipe, requirements map[string]string, query string) ([]models.QualifiedRecipe, []models.QualifiedRecipe, error) {
	if len(recipes) == 0 {
		return nil, nil, nil
	}

	entries := make([]verifyRecipeEntry, len(recipes))
	for i, rec := range recipes {
		entries[i] = verifyRecipeEntry{
			Index:       i,
			Title:       rec.Title,
			Ingredients: rec.Ingredients,
			Nutrition:   rec.Facts,
			Servings:    rec.Servings,
			CookTime:    rec.CookTime,
		}
	}
	recipesJSON, err := util.SerializeToJSONString(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize recipes: %w", err)
	}
	requirementsJSON, err := util.SerializeToJSONString(requirements)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize requirements: %w", err)
	}

	userPrompt := config.Fill(v.prompts.Discovery.Verify.User, map[string]string{
		"query":        query,
		"requirements": requirementsJSON,
		"recipes":      recipesJSON,
	})

	params := anthropic.MessageNewParams{
		Model:     v.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: v.prompts.Discovery.Verify.System},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userPrompt),
				},
			},
		},
		Tools: []anthropic.ToolUnionParam{verifyRecipesTool()},
	}

	msg, err := v.createMessageWithRetry(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	var result verifyToolResult
	if err := extractToolInput(msg, "verify_recipes", &result); err != nil {
		return nil, nil, err
	}

	scored := make(map[int]models.QualifiedRecipe, len(result.Results))
	for _, r := range result.Results {
		if r.Index < 0 || r.Index >= len(recipes) {
			continue
		}
		pct := r.MatchPercentage
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		scored[r.Index] = models.QualifiedRecipe{
			ParsedRecipe:    recipes[r.Index],
			MatchPercentage: pct,
			Qualifies:       r.Qualifies,
		}
	}

	var qualified, processed []models.QualifiedRecipe
	for i := range recipes {
		qr, ok := scored[i]
		if !ok {
			qr = models.QualifiedRecipe{ParsedRecipe: recipes[i]}
		}
		processed = append(processed, qr)
		if qr.Qualifies {
			qualified = append(qualified, qr)
		}
	}
	return qualified, processed, nil
}
