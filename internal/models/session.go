package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Session is the model for a discovery session. It accumulates the URLs
// already shown to the caller so repeated searches surface new results, plus
// the caller's search history and saved meals. Sessions are owned by the
// caller; the pipeline only reads the shown-URL set as an exclusion list.
type Session struct {
	gorm.Model
	UID           uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	ShownURLs     pq.StringArray `gorm:"type:text[]"`
	SearchHistory pq.StringArray `gorm:"type:text[]"`
	SavedMeals    []SavedMeal    `gorm:"foreignKey:SessionID"`
}

// SavedMeal is the model for a recipe the caller saved out of a discovery
// result set.
type SavedMeal struct {
	gorm.Model
	SessionID uint   `gorm:"index" json:"-"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	ImageURL  string `json:"image_url,omitempty"`
	Servings  int    `json:"servings,omitempty"`
	CookTime  int    `json:"cook_time,omitempty"`
}
