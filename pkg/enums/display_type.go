package enums

import "fmt"

// DisplayType controls how an option's values are rendered on the product page.
type DisplayType string

const (
	DisplayTypeButtons  DisplayType = "buttons"
	DisplayTypeDropdown DisplayType = "dropdown"
	DisplayTypeColors   DisplayType = "colors"
	DisplayTypeImages   DisplayType = "images"
)

var validDisplayTypes = []DisplayType{
	DisplayTypeButtons,
	DisplayTypeDropdown,
	DisplayTypeColors,
	DisplayTypeImages,
}

// String returns the literal string for the value.
func (v DisplayType) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v DisplayType) IsValid() bool {
	for _, candidate := range validDisplayTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDisplayType converts raw input into a DisplayType.
func ParseDisplayType(value string) (DisplayType, error) {
	for _, candidate := range validDisplayTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid display type %q", value)
}
