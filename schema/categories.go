package schema

import (
	"github.com/cuberootdigital/sig-backend/store"
)

const maxFieldLength = 2048

func stringFields(required ...string) map[string]any {
	props := make(map[string]any, len(required))
	req := make([]any, 0, len(required))
	for _, f := range required {
		props[f] = map[string]any{"type": "string", "maxLength": maxFieldLength}
		req = append(req, f)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   req,
	}
}

var categorySchemas = map[store.Category]map[string]any{
	store.CategoryMenu:   stringFields("restaurantName", "description"),
	store.CategoryApp:    stringFields("androidUrl", "iosUrl", "otherUrl"),
	store.CategoryFB:     stringFields("username"),
	store.CategoryCoupon: stringFields("company", "discountType", "discountCode"),
}

// ForCategory returns the document schema of a document category, or nil
// for binary and unknown categories.
func ForCategory(c store.Category) map[string]any {
	return categorySchemas[c]
}

// ValidateRecord validates doc against the schema of category c.
func ValidateRecord(c store.Category, doc map[string]any) error {
	return Validate(ForCategory(c), doc)
}
