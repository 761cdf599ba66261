package productforms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	_ "golang.org/x/image/webp"
	"gorm.io/datatypes"
)

const ratioTolerance = 0.01

// FieldValidation is the rule set stored on image fields.
type FieldValidation struct {
	MaxFileSize int64    `json:"max_file_size,omitempty"`
	ImageRatios []string `json:"image_ratios,omitempty"`
}

func (v FieldValidation) isZero() bool {
	return v.MaxFileSize == 0 && len(v.ImageRatios) == 0
}

func decodeValidation(raw datatypes.JSON) (FieldValidation, error) {
	var v FieldValidation
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	return v, nil
}

// parseRatio turns "4:3" into 4/3.
func parseRatio(value string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("ratio %q must look like W:H", value)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("ratio %q has an invalid width", value)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || h <= 0 {
		return 0, fmt.Errorf("ratio %q has an invalid height", value)
	}
	return w / h, nil
}

func matchesRatio(width, height int, ratios []string) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, nil
	}
	actual := float64(width) / float64(height)
	for _, r := range ratios {
		want, err := parseRatio(r)
		if err != nil {
			return false, err
		}
		if math.Abs(actual-want)/want <= ratioTolerance {
			return true, nil
		}
	}
	return false, nil
}

// checkUpload applies the field rules to an uploaded file.
func checkUpload(field *models.ProductFormField, upload Upload) error {
	rules, err := decodeValidation(field.Validation)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode field validation")
	}

	size := upload.Size
	if size <= 0 {
		size = int64(len(upload.Data))
	}
	if rules.MaxFileSize > 0 && size > rules.MaxFileSize {
		return pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the maximum size for this field").
			WithDetails(map[string]any{"max_file_size": rules.MaxFileSize, "size": size})
	}

	if len(rules.ImageRatios) == 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image dimensions could not be read")
	}
	ok, err := matchesRatio(cfg.Width, cfg.Height, rules.ImageRatios)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid stored image ratio")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "image aspect ratio is not allowed for this field").
			WithDetails(map[string]any{
				"image_ratios": rules.ImageRatios,
				"width":        cfg.Width,
				"height":       cfg.Height,
			})
	}
	return nil
}
