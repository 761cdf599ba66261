package commerce

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Region struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currency_code"`
	Countries    []Country `json:"countries"`
}

type Country struct {
	ISO2        string `json:"iso_2"`
	DisplayName string `json:"display_name"`
}

// CountryCodes returns the lowercased ISO-2 codes of the region.
func (r Region) CountryCodes() []string {
	codes := make([]string, 0, len(r.Countries))
	for _, c := range r.Countries {
		if code := strings.ToLower(strings.TrimSpace(c.ISO2)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

type Product struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Handle   string          `json:"handle"`
	Images   []ProductImage  `json:"images"`
	Options  []ProductOption `json:"options"`
	Variants []Variant       `json:"variants"`
}

type ProductImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ProductOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Variant struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	ManageInventory   bool             `json:"manage_inventory"`
	AllowBackorder    bool             `json:"allow_backorder"`
	InventoryQuantity *int             `json:"inventory_quantity"`
	Options           []VariantOption  `json:"options"`
	CalculatedPrice   *CalculatedPrice `json:"calculated_price"`
}

type VariantOption struct {
	ID       string `json:"id"`
	OptionID string `json:"option_id"`
	Value    string `json:"value"`
}

type CalculatedPrice struct {
	CalculatedAmount decimal.Decimal `json:"calculated_amount"`
	CurrencyCode     string          `json:"currency_code"`
}

// VariantMedias is the extension payload of media items per variant.
type VariantMedias struct {
	VariantID string      `json:"variant_id"`
	Medias    []MediaItem `json:"medias"`
}

type MediaItem struct {
	ID          string  `json:"id"`
	FileID      string  `json:"file_id"`
	Name        *string `json:"name"`
	Size        int64   `json:"size"`
	MimeType    string  `json:"mime_type"`
	IsThumbnail bool    `json:"is_thumbnail"`
	URL         string  `json:"url"`
}

type MediaTag struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Value     int    `json:"value"`
}
