package enums

import "fmt"

// InputType is the widget a personalization form field collects input with.
type InputType string

const (
	InputTypeText     InputType = "text"
	InputTypeTextarea InputType = "textarea"
	InputTypeDropdown InputType = "dropdown"
	InputTypeImages   InputType = "images"
)

var validInputTypes = []InputType{
	InputTypeText,
	InputTypeTextarea,
	InputTypeDropdown,
	InputTypeImages,
}

// String returns the literal string for the value.
func (v InputType) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v InputType) IsValid() bool {
	for _, candidate := range validInputTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseInputType converts raw input into a InputType.
func ParseInputType(value string) (InputType, error) {
	for _, candidate := range validInputTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid input type %q", value)
}
