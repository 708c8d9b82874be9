package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mealcraft/discovery-api/internal/models"
)

// nutrientRe matches "name: 12.5 g" style nutrition lines, with the colon and
// unit both optional.
var nutrientRe = regexp.MustCompile(`(?i)^\s*([a-z][a-z \-]*?)\s*[:=]?\s*([0-9]+(?:\.[0-9]+)?)\s*(g|mg|mcg|kcal|cal|calories|iu|%)?\s*$`)

// canonicalUnits maps unit spellings to their canonical form.
var canonicalUnits = map[string]string{
	"cal":      "kcal",
	"calories": "kcal",
}

// NormalizeNutrition converts free-form nutrition strings into canonical
// nutrient facts. Lines that do not carry a parseable amount are skipped;
// normalization never fails a recipe.
func NormalizeNutrition(raw []string) []models.Nutrient {
	var facts []models.Nutrient
	for _, line := range raw {
		m := nutrientRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(m[1]))
		name = strings.TrimSuffix(name, " content")
		name = strings.TrimSuffix(name, "content")
		unit := strings.ToLower(m[3])
		if canonical, ok := canonicalUnits[unit]; ok {
			unit = canonical
		}
		if unit == "" && strings.Contains(name, "calorie") {
			unit = "kcal"
		}
		facts = append(facts, models.Nutrient{Name: name, Amount: amount, Unit: unit})
	}
	return facts
}
