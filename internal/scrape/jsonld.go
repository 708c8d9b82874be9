package scrape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mealcraft/discovery-api/internal/models"
)

// jsonLDRecipe represents the JSON-LD Recipe schema (subset of fields we care about).
type jsonLDRecipe struct {
	Type         interface{}     `json:"@type"`
	Name         string          `json:"name"`
	Ingredients  []string        `json:"recipeIngredient"`
	Instructions interface{}     `json:"recipeInstructions"`
	CookTime     string          `json:"cookTime"`
	TotalTime    string          `json:"totalTime"`
	Yield        interface{}     `json:"recipeYield"`
	Image        interface{}     `json:"image"`
	Nutrition    json.RawMessage `json:"nutrition"`
}

// nutritionKeys are the schema.org NutritionInformation fields we carry, in
// output order.
var nutritionKeys = []string{
	"calories",
	"proteinContent",
	"fatContent",
	"saturatedFatContent",
	"carbohydrateContent",
	"sugarContent",
	"fiberContent",
	"sodiumContent",
	"cholesterolContent",
}

var jsonLDScriptRe = regexp.MustCompile(`(?s)<script[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)

// extractRecipeJSONLD finds and parses JSON-LD recipe data in raw HTML.
func extractRecipeJSONLD(html string) (*models.ParsedRecipe, error) {
	matches := jsonLDScriptRe.FindAllStringSubmatch(html, -1)

	for _, match := range matches {
		if len(match) < 2 {
			continue
		}

		jsonStr := strings.TrimSpace(match[1])

		// Try parsing as a single object
		recipe, err := tryParseJSONLDObject(jsonStr)
		if err == nil && recipe != nil {
			return recipe, nil
		}

		// Try parsing as an array
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(jsonStr), &arr); err == nil {
			for _, item := range arr {
				recipe, err := tryParseJSONLDObject(string(item))
				if err == nil && recipe != nil {
					return recipe, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("no JSON-LD recipe found")
}

// tryParseJSONLDObject attempts to parse a JSON string as a JSON-LD Recipe.
func tryParseJSONLDObject(jsonStr string) (*models.ParsedRecipe, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &obj); err != nil {
		return nil, err
	}

	// Check if this is a @graph container
	if graph, ok := obj["@graph"]; ok {
		if graphArr, ok := graph.([]interface{}); ok {
			for _, item := range graphArr {
				itemBytes, err := json.Marshal(item)
				if err != nil {
					continue
				}
				recipe, err := tryParseJSONLDObject(string(itemBytes))
				if err == nil && recipe != nil {
					return recipe, nil
				}
			}
		}
		return nil, fmt.Errorf("no recipe found in @graph")
	}

	if !isRecipeType(obj["@type"]) {
		return nil, fmt.Errorf("not a Recipe type")
	}

	var recipe jsonLDRecipe
	if err := json.Unmarshal([]byte(jsonStr), &recipe); err != nil {
		return nil, err
	}

	return jsonLDToParsedRecipe(&recipe)
}

// isRecipeType checks if the @type field indicates a Recipe.
func isRecipeType(typeField interface{}) bool {
	switch v := typeField.(type) {
	case string:
		return v == "Recipe" || strings.HasSuffix(v, "/Recipe")
	case []interface{}:
		for _, t := range v {
			if s, ok := t.(string); ok {
				if s == "Recipe" || strings.HasSuffix(s, "/Recipe") {
					return true
				}
			}
		}
	}
	return false
}

// jsonLDToParsedRecipe converts a parsed JSON-LD recipe to a ParsedRecipe.
func jsonLDToParsedRecipe(recipe *jsonLDRecipe) (*models.ParsedRecipe, error) {
	if recipe.Name == "" {
		return nil, fmt.Errorf("recipe name is empty")
	}

	instructions := parseJSONLDInstructions(recipe.Instructions)
	if len(recipe.Ingredients) == 0 && len(instructions) == 0 {
		return nil, fmt.Errorf("recipe has neither ingredients nor instructions")
	}

	cookTime := parseISO8601Duration(recipe.CookTime)
	if cookTime == 0 {
		cookTime = parseISO8601Duration(recipe.TotalTime)
	}

	return &models.ParsedRecipe{
		Title:        recipe.Name,
		Ingredients:  recipe.Ingredients,
		Instructions: instructions,
		Nutrition:    parseJSONLDNutrition(recipe.Nutrition),
		CookTime:     cookTime,
		Servings:     parseYield(recipe.Yield),
		ImageURL:     parseImage(recipe.Image),
	}, nil
}

// parseJSONLDInstructions extracts instruction strings from various JSON-LD formats.
func parseJSONLDInstructions(instructions interface{}) []string {
	if instructions == nil {
		return nil
	}

	switch v := instructions.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var result []string
		for _, item := range v {
			switch step := item.(type) {
			case string:
				result = append(result, step)
			case map[string]interface{}:
				// HowToStep or HowToSection
				if text, ok := step["text"].(string); ok {
					result = append(result, text)
				} else if items, ok := step["itemListElement"].([]interface{}); ok {
					// HowToSection with nested steps
					for _, subItem := range items {
						if subStep, ok := subItem.(map[string]interface{}); ok {
							if text, ok := subStep["text"].(string); ok {
								result = append(result, text)
							}
						}
					}
				}
			}
		}
		return result
	}
	return nil
}

// parseJSONLDNutrition flattens a NutritionInformation block into
// "name: value" strings in a fixed key order.
func parseJSONLDNutrition(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	var result []string
	for _, key := range nutritionKeys {
		val, ok := obj[key].(string)
		if !ok || val == "" {
			continue
		}
		name := strings.TrimSuffix(key, "Content")
		result = append(result, fmt.Sprintf("%s: %s", name, val))
	}
	return result
}

// parseISO8601Duration parses an ISO 8601 duration string (e.g., "PT30M") into minutes.
func parseISO8601Duration(duration string) int {
	if duration == "" {
		return 0
	}

	re := regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
	matches := re.FindStringSubmatch(strings.ToUpper(duration))
	if matches == nil {
		return 0
	}

	var total int
	if matches[1] != "" {
		var hours int
		fmt.Sscanf(matches[1], "%d", &hours)
		total += hours * 60
	}
	if matches[2] != "" {
		var minutes int
		fmt.Sscanf(matches[2], "%d", &minutes)
		total += minutes
	}
	if matches[3] != "" {
		var seconds int
		fmt.Sscanf(matches[3], "%d", &seconds)
		if seconds >= 30 {
			total++
		}
	}
	return total
}

// parseYield extracts a serving count from the recipeYield field.
func parseYield(yield interface{}) int {
	switch v := yield.(type) {
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	case float64:
		return int(v)
	case []interface{}:
		if len(v) > 0 {
			return parseYield(v[0])
		}
	}
	return 0
}

// parseImage extracts an image URL from the various JSON-LD image shapes.
func parseImage(image interface{}) string {
	switch v := image.(type) {
	case string:
		return v
	case map[string]interface{}:
		if url, ok := v["url"].(string); ok {
			return url
		}
	case []interface{}:
		if len(v) > 0 {
			return parseImage(v[0])
		}
	}
	return ""
}
