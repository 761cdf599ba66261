// Package displaymedia picks the media set a product page shows for the
// currently selected option values.
package displaymedia

import (
	"fmt"
	"strings"
)

const (
	KindImage = "image"
	KindVideo = "video"
)

type Product struct {
	Images   []Image
	Variants []Variant
}

type Image struct {
	ID   string
	URL  string
	Name *string
}

type Variant struct {
	ID       string
	Options  []Option
	Medias   []Media
	MediaTag *int

	ManageInventory   bool
	AllowBackorder    bool
	InventoryQuantity *int
	HasPrice          bool
}

type Option struct {
	OptionID string
	Value    string
}

type Media struct {
	ID          string
	URL         string
	Name        *string
	IsThumbnail bool
	MimeType    string
}

// Result is what the product page renders.
type Result struct {
	MediaTag *int           `json:"media_tag"`
	Medias   []DisplayMedia `json:"medias"`
}

type DisplayMedia struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	IsThumbnail *bool  `json:"is_thumbnail,omitempty"`
	MimeType    string `json:"mime_type"`
}

// Resolve returns the media for the selection: the single exact match, then
// the media shared by every matching variant's tag, then the product images.
func Resolve(product Product, selected map[string]string) Result {
	matching := matchingVariants(product.Variants, selected)

	if len(matching) == 1 && len(matching[0].Medias) > 0 {
		return Result{MediaTag: copyTag(matching[0].MediaTag), Medias: variantMedia(matching[0].Medias)}
	}

	if tag, ok := sharedTag(matching); ok {
		for _, v := range matching {
			if v.MediaTag != nil && *v.MediaTag == tag && len(v.Medias) > 0 {
				return Result{MediaTag: &tag, Medias: variantMedia(v.Medias)}
			}
		}
	}

	return Result{MediaTag: nil, Medias: productImages(product.Images)}
}

func matchingVariants(variants []Variant, selected map[string]string) []Variant {
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if hasOptions(v, selected) {
			out = append(out, v)
		}
	}
	return out
}

func hasOptions(v Variant, selected map[string]string) bool {
	for optionID, value := range selected {
		found := false
		for _, o := range v.Options {
			if o.OptionID == optionID && o.Value == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sharedTag reports the tag when the matching variants carry exactly one
// distinct non-null tag value.
func sharedTag(variants []Variant) (int, bool) {
	var (
		tag   int
		found bool
	)
	for _, v := range variants {
		if v.MediaTag == nil {
			continue
		}
		if found && *v.MediaTag != tag {
			return 0, false
		}
		tag = *v.MediaTag
		found = true
	}
	return tag, found
}

func variantMedia(items []Media) []DisplayMedia {
	out := make([]DisplayMedia, 0, len(items))
	for i, m := range items {
		thumbnail := m.IsThumbnail
		out = append(out, DisplayMedia{
			ID:          m.ID,
			URL:         m.URL,
			Name:        nameOr(m.Name, "Media", i),
			IsThumbnail: &thumbnail,
			MimeType:    Kind(m.MimeType),
		})
	}
	return out
}

func productImages(images []Image) []DisplayMedia {
	out := make([]DisplayMedia, 0, len(images))
	for i, img := range images {
		out = append(out, DisplayMedia{
			ID:       img.ID,
			URL:      img.URL,
			Name:     nameOr(img.Name, "Image", i),
			MimeType: KindImage,
		})
	}
	return out
}

func nameOr(name *string, label string, index int) string {
	if name != nil && strings.TrimSpace(*name) != "" {
		return *name
	}
	return fmt.Sprintf("%s [%d]", label, index+1)
}

// Kind collapses a MIME type to image or video.
func Kind(mimeType string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "video/") {
		return KindVideo
	}
	return KindImage
}

func copyTag(tag *int) *int {
	if tag == nil {
		return nil
	}
	v := *tag
	return &v
}

// InStock reports whether a variant can be added to the cart. Untracked
// inventory and backorders count as stock.
func InStock(v Variant) bool {
	if !v.HasPrice {
		return false
	}
	if !v.ManageInventory || v.AllowBackorder {
		return true
	}
	return v.InventoryQuantity != nil && *v.InventoryQuantity > 0
}
