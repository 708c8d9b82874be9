package scrape

import "testing"

const singleRecipeHTML = `<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Weeknight Carbonara",
  "recipeIngredient": ["200g spaghetti", "2 eggs", "50g pecorino"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Boil the pasta."},
    {"@type": "HowToStep", "text": "Toss with eggs and cheese."}
  ],
  "cookTime": "PT25M",
  "recipeYield": "2 servings",
  "image": "https://example.com/carbonara.jpg",
  "nutrition": {
    "@type": "NutritionInformation",
    "calories": "520 kcal",
    "proteinContent": "21 g",
    "fatContent": "18 g"
  }
}
</script>
</head><body></body></html>`

func TestExtractRecipeJSONLD_SingleObject(t *testing.T) {
	recipe, err := extractRecipeJSONLD(singleRecipeHTML)
	if err != nil {
		t.Fatalf("extractRecipeJSONLD returned error: %v", err)
	}
	if recipe.Title != "Weeknight Carbonara" {
		t.Errorf("Title = %q, want Weeknight Carbonara", recipe.Title)
	}
	if len(recipe.Ingredients) != 3 {
		t.Errorf("len(Ingredients) = %d, want 3", len(recipe.Ingredients))
	}
	if len(recipe.Instructions) != 2 {
		t.Fatalf("len(Instructions) = %d, want 2", len(recipe.Instructions))
	}
	if recipe.Instructions[0] != "Boil the pasta." {
		t.Errorf("Instructions[0] = %q", recipe.Instructions[0])
	}
	if recipe.CookTime != 25 {
		t.Errorf("CookTime = %d, want 25", recipe.CookTime)
	}
	if recipe.Servings != 2 {
		t.Errorf("Servings = %d, want 2", recipe.Servings)
	}
	if recipe.ImageURL != "https://example.com/carbonara.jpg" {
		t.Errorf("ImageURL = %q", recipe.ImageURL)
	}
}

func TestExtractRecipeJSONLD_NutritionFixedOrder(t *testing.T) {
	recipe, err := extractRecipeJSONLD(singleRecipeHTML)
	if err != nil {
		t.Fatalf("extractRecipeJSONLD returned error: %v", err)
	}
	want := []string{
		"calories: 520 kcal",
		"protein: 21 g",
		"fat: 18 g",
	}
	if len(recipe.Nutrition) != len(want) {
		t.Fatalf("len(Nutrition) = %d, want %d", len(recipe.Nutrition), len(want))
	}
	for i := range want {
		if recipe.Nutrition[i] != want[i] {
			t.Errorf("Nutrition[%d] = %q, want %q", i, recipe.Nutrition[i], want[i])
		}
	}
}

func TestExtractRecipeJSONLD_Graph(t *testing.T) {
	html := `<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebSite", "name": "Some Blog"},
    {
      "@type": "Recipe",
      "name": "Lentil Soup",
      "recipeIngredient": ["1 cup lentils"],
      "recipeInstructions": "Simmer until tender."
    }
  ]
}
</script>`
	recipe, err := extractRecipeJSONLD(html)
	if err != nil {
		t.Fatalf("extractRecipeJSONLD returned error: %v", err)
	}
	if recipe.Title != "Lentil Soup" {
		t.Errorf("Title = %q, want Lentil Soup", recipe.Title)
	}
	if len(recipe.Instructions) != 1 || recipe.Instructions[0] != "Simmer until tender." {
		t.Errorf("Instructions = %v", recipe.Instructions)
	}
}

func TestExtractRecipeJSONLD_TopLevelArray(t *testing.T) {
	html := `<script type="application/ld+json">
[
  {"@type": "BreadcrumbList"},
  {
    "@type": ["Recipe", "NewsArticle"],
    "name": "Sheet Pan Chicken",
    "recipeIngredient": ["4 chicken thighs"],
    "recipeInstructions": [{"@type": "HowToStep", "text": "Roast at 425F."}]
  }
]
</script>`
	recipe, err := extractRecipeJSONLD(html)
	if err != nil {
		t.Fatalf("extractRecipeJSONLD returned error: %v", err)
	}
	if recipe.Title != "Sheet Pan Chicken" {
		t.Errorf("Title = %q, want Sheet Pan Chicken", recipe.Title)
	}
}

func TestExtractRecipeJSONLD_HowToSection(t *testing.T) {
	html := `<script type="application/ld+json">
{
  "@type": "Recipe",
  "name": "Layer Cake",
  "recipeIngredient": ["flour", "sugar"],
  "recipeInstructions": [
    {
      "@type": "HowToSection",
      "name": "Batter",
      "itemListElement": [
        {"@type": "HowToStep", "text": "Cream the butter."},
        {"@type": "HowToStep", "text": "Fold in the flour."}
      ]
    }
  ]
}
</script>`
	recipe, err := extractRecipeJSONLD(html)
	if err != nil {
		t.Fatalf("extractRecipeJSONLD returned error: %v", err)
	}
	want := []string{"Cream the butter.", "Fold in the flour."}
	if len(recipe.Instructions) != len(want) {
		t.Fatalf("len(Instructions) = %d, want %d", len(recipe.Instructions), len(want))
	}
	for i := range want {
		if recipe.Instructions[i] != want[i] {
			t.Errorf("Instructions[%d] = %q, want %q", i, recipe.Instructions[i], want[i])
		}
	}
}

func TestExtractRecipeJSONLD_NoRecipe(t *testing.T) {
	html := `<script type="application/ld+json">{"@type": "NewsArticle", "name": "Not food"}</script>`
	if _, err := extractRecipeJSONLD(html); err == nil {
		t.Error("expected error for page without a recipe")
	}
}

func TestExtractRecipeJSONLD_EmptyRecipeRejected(t *testing.T) {
	html := `<script type="application/ld+json">{"@type": "Recipe", "name": "Hollow"}</script>`
	if _, err := extractRecipeJSONLD(html); err == nil {
		t.Error("expected error for recipe with no ingredients or instructions")
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		duration string
		want     int
	}{
		{"PT30M", 30},
		{"PT1H30M", 90},
		{"PT1H", 60},
		{"PT45S", 1},
		{"PT20S", 0},
		{"PT2H15M30S", 136},
		{"pt30m", 30},
		{"", 0},
		{"not a duration", 0},
	}
	for _, tt := range tests {
		if got := parseISO8601Duration(tt.duration); got != tt.want {
			t.Errorf("parseISO8601Duration(%q) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}

func TestParseYield(t *testing.T) {
	if got := parseYield("4 servings"); got != 4 {
		t.Errorf("parseYield(string) = %d, want 4", got)
	}
	if got := parseYield(float64(6)); got != 6 {
		t.Errorf("parseYield(float64) = %d, want 6", got)
	}
	if got := parseYield([]interface{}{"8", "8 servings"}); got != 8 {
		t.Errorf("parseYield(array) = %d, want 8", got)
	}
	if got := parseYield(nil); got != 0 {
		t.Errorf("parseYield(nil) = %d, want 0", got)
	}
}

func TestParseImage(t *testing.T) {
	if got := parseImage("https://example.com/a.jpg"); got != "https://example.com/a.jpg" {
		t.Errorf("parseImage(string) = %q", got)
	}
	obj := map[string]interface{}{"url": "https://example.com/b.jpg"}
	if got := parseImage(obj); got != "https://example.com/b.jpg" {
		t.Errorf("parseImage(object) = %q", got)
	}
	if got := parseImage([]interface{}{obj}); got != "https://example.com/b.jpg" {
		t.Errorf("parseImage(array) = %q", got)
	}
	if got := parseImage(nil); got != "" {
		t.Errorf("parseImage(nil) = %q, want empty", got)
	}
}
