package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mealcraft/discovery-api/internal/config"
	"github.com/mealcraft/discovery-api/internal/logger"
	"github.com/mealcraft/discovery-api/internal/models"
	"github.com/mealcraft/discovery-api/internal/util"
)

// OpenAIProvider implements the classification, verification, ranking, and
// link-picking collaborators via OpenAI tool calls.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	prompts *config.Prompts
}

// NewOpenAIProvider creates a provider with the given API key and prompt
// configuration.
func NewOpenAIProvider(apiKey string, prompts *config.Prompts) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClient(apiKey),
		model:   openai.GPT4oMini,
		prompts: prompts,
	}
}

// createChatCompletionWithRetry wraps the OpenAI call with exponential backoff
// on rate limits and server errors.
func (p *OpenAIProvider) createChatCompletionWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			retryable := apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
			if !retryable {
				return openai.ChatCompletionResponse{}, fmt.Errorf("openai API error: %w", err)
			}
		}

		logger.Get().Warn("openai API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		case <-time.After(2 * time.Second * time.Duration(i+1)):
		}
	}

	return openai.ChatCompletionResponse{}, fmt.Errorf("openai API: exhausted %d retries: %w", maxRetries, lastErr)
}

// toolArguments returns the arguments of the named tool call in the response.
func toolArguments(resp openai.ChatCompletionResponse, name string) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("openai API returned no choices")
	}
	for _, call := range resp.Choices[0].Message.ToolCalls {
		if call.Function.Name == name {
			return call.Function.Arguments, nil
		}
	}
	return "", fmt.Errorf("no %s tool call in openai response", name)
}

// forcedTool builds a single-function tool definition the model is forced to call.
func forcedTool(name, description string, parameters map[string]interface{}) ([]openai.Tool, *openai.ToolChoice) {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  parameters,
			},
		},
	}
	choice := &openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}
	return tools, choice
}

// --- Classification ---

type classifyToolResult struct {
	Classifications []struct {
		URL        string  `json:"url"`
		Kind       string  `json:"kind"`
		Confidence float64 `json:"confidence"`
	} `json:"classifications"`
}

// ClassifyBatch classifies a batch of candidates in one call. The returned
// map is keyed by URL; callers treat missing entries as recipes.
func (p *OpenAIProvider) ClassifyBatch(ctx context.Context, batch []models.URLCandidate) (map[string]models.Classification, error) {
	if len(batch) == 0 {
		return map[string]models.Classification{}, nil
	}

	var entries strings.Builder
	for _, cand := range batch {
		fmt.Fprintf(&entries, "- %s | %s | %s\n", cand.URL, cand.Title, cand.Snippet)
	}

	tools, choice := forcedTool("classify_urls", "Classify each URL as recipe, list, or other.", map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"classifications": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"url":        map[string]interface{}{"type": "string"},
						"kind":       map[string]interface{}{"type": "string", "enum": []string{"recipe", "list", "other"}},
						"confidence": map[string]interface{}{"type": "number"},
					},
					"required": []string{"url", "kind"},
				},
			},
		},
		"required": []string{"classifications"},
	})

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompts.Discovery.Classify.System},
			{Role: openai.ChatMessageRoleUser, Content: config.Fill(p.prompts.Discovery.Classify.User, map[string]string{"entries": entries.String()})},
		},
		Tools:      tools,
		ToolChoice: choice,
	}

	resp, err := p.createChatCompletionWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	args, err := toolArguments(resp, "classify_urls")
	if err != nil {
		return nil, err
	}

	var result classifyToolResult
	if err := util.DeserializeFromJSONString(args, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize classifications: %w", err)
	}

	classifications := make(map[string]models.Classification, len(result.Classifications))
	for _, c := range result.Classifications {
		kind := models.ClassificationKind(c.Kind)
		switch kind {
		case models.KindRecipe, models.KindList, models.KindOther:
		default:
			continue
		}
		classifications[c.URL] = models.Classification{URL: c.URL, Kind: kind, Confidence: c.Confidence}
	}
	return classifications, nil
}

// --- Verification ---

// verifyRecipeEntry is what the verifier sees for each recipe.
type verifyRecipeEntry struct {
	Index       int               `json:"index"`
	Title       string            `json:"title"`
	Ingredients []string          `json:"ingredients"`
	Nutrition   []models.Nutrient `json:"nutrition,omitempty"`
	Servings    int               `json:"servings,omitempty"`
	CookTime    int               `json:"cook_time,omitempty"`
}

type verifyToolResult struct {
	Results []struct {
		Index           int     `json:"index"`
		Qualifies       bool    `json:"qualifies"`
		MatchPercentage float64 `json:"match_percentage"`
	} `json:"results"`
}

// Verify checks parsed recipes against the requirements. It returns the
// qualifying subset plus every scored recipe; on failure both are empty.
func (p *OpenAIProvider) Verify(ctx context.Context, recipes []models.ParsedRecipe, requirements map[string]string, query string) ([]models.QualifiedRecipe, []models.QualifiedRecipe, error) {
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

	tools, choice := forcedTool("verify_recipes", "Report qualification and match percentage per recipe.", map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"results": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"index":            map[string]interface{}{"type": "integer"},
						"qualifies":        map[string]interface{}{"type": "boolean"},
						"match_percentage": map[string]interface{}{"type": "number", "description": "0-100, how closely the recipe fits the requirements"},
					},
					"required": []string{"index", "qualifies", "match_percentage"},
				},
			},
		},
		"required": []string{"results"},
	})

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompts.Discovery.Verify.System},
			{Role: openai.ChatMessageRoleUser, Content: config.Fill(p.prompts.Discovery.Verify.User, map[string]string{
				"query":        query,
				"requirements": requirementsJSON,
				"recipes":      recipesJSON,
			})},
		},
		Tools:      tools,
		ToolChoice: choice,
	}

	resp, err := p.createChatCompletionWithRetry(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	args, err := toolArguments(resp, "verify_recipes")
	if err != nil {
		return nil, nil, err
	}

	var result verifyToolResult
	if err := util.DeserializeFromJSONString(args, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to deserialize verification results: %w", err)
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
			// Recipes the verifier skipped still count as processed.
			qr = models.QualifiedRecipe{ParsedRecipe: recipes[i]}
		}
		processed = append(processed, qr)
		if qr.Qualifies {
			qualified = append(qualified, qr)
		}
	}
	return qualified, processed, nil
}

// --- Ranking ---

type rankRecipeEntry struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type rankToolResult struct {
	Order []int `json:"order"`
}

// Rank reorders recipes by relevance to the query. Indexes the model omits
// keep their relative order after the ranked ones.
func (p *OpenAIProvider) Rank(ctx context.Context, recipes []models.QualifiedRecipe, query string) ([]models.QualifiedRecipe, error) {
	if len(recipes) < 2 {
		return recipes, nil
	}

	entries := make([]rankRecipeEntry, len(recipes))
	for i, rec := range recipes {
		entries[i] = rankRecipeEntry{Index: i, Title: rec.Title, URL: rec.SourceURL}
	}
	recipesJSON, err := util.SerializeToJSONString(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize recipes: %w", err)
	}

	tools, choice := forcedTool("rank_recipes", "Return recipe indexes ordered from most to least relevant.", map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"order": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "integer"},
			},
		},
		"required": []string{"order"},
	})

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompts.Discovery.Rank.System},
			{Role: openai.ChatMessageRoleUser, Content: config.Fill(p.prompts.Discovery.Rank.User, map[string]string{
				"query":   query,
				"recipes": recipesJSON,
			})},
		},
		Tools:      tools,
		ToolChoice: choice,
	}

	resp, err := p.createChatCompletionWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	args, err := toolArguments(resp, "rank_recipes")
	if err != nil {
		return nil, err
	}

	var result rankToolResult
	if err := util.DeserializeFromJSONString(args, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize ranking: %w", err)
	}

	ranked := make([]models.QualifiedRecipe, 0, len(recipes))
	used := make(map[int]struct{}, len(recipes))
	for _, idx := range result.Order {
		if idx < 0 || idx >= len(recipes) {
			continue
		}
		if _, dup := used[idx]; dup {
			continue
		}
		used[idx] = struct{}{}
		ranked = append(ranked, recipes[idx])
	}
	for i, rec := range recipes {
		if _, ok := used[i]; !ok {
			ranked = append(ranked, rec)
		}
	}
	return ranked, nil
}

// --- List link picking ---

// LinkCandidate is one anchor extracted from a roundup page.
type LinkCandidate struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type pickToolResult struct {
	Links []string `json:"links"`
}

// PickRecipeLinks selects up to max links that point at individual recipe
// pages out of the anchors extracted from a roundup page.
func (p *OpenAIProvider) PickRecipeLinks(ctx context.Context, pageURL string, links []LinkCandidate, max int) ([]string, error) {
	if len(links) == 0 {
		return nil, nil
	}

	linksJSON, err := util.SerializeToJSONString(links)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize links: %w", err)
	}

	tools, choice := forcedTool("pick_recipe_links", "Select the links pointing at individual recipe pages.", map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"links": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
		"required": []string{"links"},
	})

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompts.Discovery.ListPick.System},
			{Role: openai.ChatMessageRoleUser, Content: config.Fill(p.prompts.Discovery.ListPick.User, map[string]string{
				"page_url": pageURL,
				"max":      fmt.Sprintf("%d", max),
				"links":    linksJSON,
			})},
		},
		Tools:      tools,
		ToolChoice: choice,
	}

	resp, err := p.createChatCompletionWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	args, err := toolArguments(resp, "pick_recipe_links")
	if err != nil {
		return nil, err
	}

	var result pickToolResult
	if err := util.DeserializeFromJSONString(args, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize picked links: %w", err)
	}
	if len(result.Links) > max {
		result.Links = result.Links[:max]
	}
	return result.Links, nil
}
