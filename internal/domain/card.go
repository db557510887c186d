package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/util"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

// Card is a named, categorized visual symbol owned by one principal.
type Card struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	ImageURL   string    `json:"imageSrc"`
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Recognition is the structured guess returned by the vision step.
type Recognition struct {
	ObjectName string `json:"objectName"`
	Category   string `json:"category"`
}

// Usable reports whether both fields carry text.
func (r Recognition) Usable() bool {
	return strings.TrimSpace(r.ObjectName) != "" && strings.TrimSpace(r.Category) != ""
}

// CardDraft is a successful generation that has not been persisted yet.
type CardDraft struct {
	Name      string
	Category  string
	CardImage EncodedImage
}

// NewCard is the input of a card record insert.
type NewCard struct {
	Name     string
	Category string
	ImageURL string
}

// CardUpdate carries editable fields; the id never changes.
type CardUpdate struct {
	Name     string
	Category string
}

// NormalizeCardFields trims name and category and rejects blanks or
// overlong values.
func NormalizeCardFields(name, category string) (string, string, error) {
	name = util.CollapseSpaces(name)
	category = util.CollapseSpaces(category)

	if name == "" {
		return "", "", errors.NewValidationError("card name is required", "name", name)
	}
	if category == "" {
		return "", "", errors.NewValidationError("card category is required", "category", category)
	}
	if util.RuneLen(name) > constants.AIInputLimits.MaxNameRunes {
		return "", "", errors.NewValidationError(
			fmt.Sprintf("card name exceeds %d characters", constants.AIInputLimits.MaxNameRunes), "name", name)
	}
	if util.RuneLen(category) > constants.AIInputLimits.MaxCategoryRunes {
		return "", "", errors.NewValidationError(
			fmt.Sprintf("card category exceeds %d characters", constants.AIInputLimits.MaxCategoryRunes), "category", category)
	}
	return name, category, nil
}

// AllCategories is the implicit filter value matching every card.
const AllCategories = "all"

// Categories lists distinct categories in the order they first appear,
// prefixed by AllCategories.
func Categories(cards []*Card) []string {
	values := make([]string, 0, len(cards)+1)
	values = append(values, AllCategories)
	for _, c := range cards {
		if c != nil {
			values = append(values, c.Category)
		}
	}
	return util.UniqueOrdered(values)
}

// FilterByCategory keeps cards whose category matches exactly (case-sensitive).
func FilterByCategory(cards []*Card, category string) []*Card {
	if category == "" || category == AllCategories {
		return cards
	}
	result := make([]*Card, 0, len(cards))
	for _, c := range cards {
		if c != nil && c.Category == category {
			result = append(result, c)
		}
	}
	return result
}

func Favorites(cards []*Card) []*Card {
	result := make([]*Card, 0)
	for _, c := range cards {
		if c != nil && c.IsFavorite {
			result = append(result, c)
		}
	}
	return result
}
