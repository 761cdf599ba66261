package models

// All lists every persisted model, parents before children.
func All() []any {
	return []any{
		&MediaTag{},
		&MediaGroup{},
		&MediaItem{},
		&OptionConfig{},
		&OptionValue{},
		&OptionImage{},
		&ProductForm{},
		&ProductFormField{},
		&FieldImage{},
		&ProductReview{},
		&ProductReviewImage{},
	}
}
