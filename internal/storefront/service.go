// Package storefront assembles the product page payload served by the
// storefront edge from the commerce backend and its media extension.
package storefront

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/internal/displaymedia"
	"github.com/angelmondragon/storefront-backend/pkg/commerce"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var localePattern = regexp.MustCompile(`^[a-z]{2}-[a-z]{2}$`)

type commerceClient interface {
	GetProduct(ctx context.Context, productID, regionID string) (*commerce.Product, error)
	VariantMedias(ctx context.Context, variantIDs []string) ([]commerce.VariantMedias, error)
	MediaTags(ctx context.Context, variantIDs []string) ([]commerce.MediaTag, error)
}

type Service interface {
	ProductView(ctx context.Context, regionID, productID string, selected map[string]string) (*ProductView, error)
}

type ProductView struct {
	ProductID string                      `json:"product_id"`
	Title     string                      `json:"title"`
	MediaTag  *int                        `json:"media_tag"`
	Medias    []displaymedia.DisplayMedia `json:"medias"`
	Variants  []VariantView               `json:"variants"`
}

type VariantView struct {
	ID      string `json:"id"`
	InStock bool   `json:"in_stock"`
	Price   *Price `json:"price"`
}

type Price struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
}

type service struct {
	client commerceClient
	logg   *logger.Logger
}

func NewService(client commerceClient, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	return &service{client: client, logg: logg}, nil
}

func (s *service) ProductView(ctx context.Context, regionID, productID string, selected map[string]string) (*ProductView, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.client.GetProduct(ctx, productID, regionID)
	if err != nil {
		return nil, err
	}

	variantIDs := make([]string, 0, len(product.Variants))
	for _, v := range product.Variants {
		variantIDs = append(variantIDs, v.ID)
	}

	var (
		medias []commerce.VariantMedias
		tags   []commerce.MediaTag
	)
	if len(variantIDs) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			medias, err = s.client.VariantMedias(gctx, variantIDs)
			return err
		})
		g.Go(func() error {
			var err error
			tags, err = s.client.MediaTags(gctx, variantIDs)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	input := toDisplayProduct(product, medias, tags)
	resolved := displaymedia.Resolve(input, selected)

	view := &ProductView{
		ProductID: product.ID,
		Title:     product.Title,
		MediaTag:  resolved.MediaTag,
		Medias:    resolved.Medias,
		Variants:  make([]VariantView, 0, len(product.Variants)),
	}
	for i, v := range product.Variants {
		vv := VariantView{ID: v.ID, InStock: displaymedia.InStock(input.Variants[i])}
		if v.CalculatedPrice != nil {
			vv.Price = &Price{Amount: v.CalculatedPrice.CalculatedAmount, CurrencyCode: v.CalculatedPrice.CurrencyCode}
		}
		view.Variants = append(view.Variants, vv)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID,
			"variants":   len(product.Variants),
			"medias":     len(view.Medias),
		})
		s.logg.Debug(logCtx, "storefront.product_view")
	}
	return view, nil
}

func toDisplayProduct(product *commerce.Product, medias []commerce.VariantMedias, tags []commerce.MediaTag) displaymedia.Product {
	mediaByVariant := make(map[string][]commerce.MediaItem, len(medias))
	for _, m := range medias {
		mediaByVariant[m.VariantID] = m.Medias
	}
	tagByVariant := make(map[string]int, len(tags))
	for _, t := range tags {
		tagByVariant[t.VariantID] = t.Value
	}

	out := displaymedia.Product{
		Images:   make([]displaymedia.Image, 0, len(product.Images)),
		Variants: make([]displaymedia.Variant, 0, len(product.Variants)),
	}
	for _, img := range product.Images {
		out.Images = append(out.Images, displaymedia.Image{ID: img.ID, URL: img.URL})
	}
	for _, v := range product.Variants {
		dv := displaymedia.Variant{
			ID:                v.ID,
			ManageInventory:   v.ManageInventory,
			AllowBackorder:    v.AllowBackorder,
			InventoryQuantity: v.InventoryQuantity,
			HasPrice:          v.CalculatedPrice != nil,
		}
		for _, opt := range v.Options {
			dv.Options = append(dv.Options, displaymedia.Option{OptionID: opt.OptionID, Value: opt.Value})
		}
		for _, m := range mediaByVariant[v.ID] {
			dv.Medias = append(dv.Medias, displaymedia.Media{
				ID:          m.ID,
				URL:         m.URL,
				Name:        m.Name,
				IsThumbnail: m.IsThumbnail,
				MimeType:    m.MimeType,
			})
		}
		if tag, ok := tagByVariant[v.ID]; ok {
			dv.MediaTag = &tag
		}
		out.Variants = append(out.Variants, dv)
	}
	return out
}

// NormalizeLocale lowercases and checks the xx-xx locale format.
func NormalizeLocale(raw string) (string, error) {
	locale := strings.ToLower(strings.TrimSpace(raw))
	if !localePattern.MatchString(locale) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "locale must look like xx-xx").WithDetails(map[string]any{"locale": raw})
	}
	return locale, nil
}
