package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	publishableKeyHeader          = "x-publishable-api-key"
	productFields                 = "*variants.calculated_price,+variants.inventory_quantity,*variants.options,*images"
	requestBodyReadLimit    int64 = 1024
	defaultRequestTimeout         = 10 * time.Second
)

var (
	errBackendURLRequired     = errors.New("commerce backend url is required")
	errPublishableKeyRequired = errors.New("commerce publishable key is required")
)

// Client talks to the commerce backend store API and the extension routes
// served next to it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	extensionURL   string
	publishableKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithExtensionURL points the extension routes at a different host.
func WithExtensionURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.extensionURL = trimmed
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the commerce client for the given backend.
func NewClient(baseURL, publishableKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBackendURLRequired
	}
	trimmedKey := strings.TrimSpace(publishableKey)
	if trimmedKey == "" {
		return nil, errPublishableKeyRequired
	}

	client := &Client{
		baseURL:        trimmedURL,
		extensionURL:   trimmedURL,
		publishableKey: trimmedKey,
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return client, nil
}

// ListRegions returns every region with its countries.
func (c *Client) ListRegions(ctx context.Context) ([]Region, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}

	var apiResp struct {
		Regions []Region `json:"regions"`
	}
	if err := c.getJSON(ctx, buildURL(c.baseURL, "store/regions", nil), &apiResp, "list regions"); err != nil {
		return nil, err
	}
	return apiResp.Regions, nil
}

// GetProduct fetches a product priced for the given region.
func (c *Client) GetProduct(ctx context.Context, productID, regionID string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	query := url.Values{}
	query.Set("fields", productFields)
	if regionID = strings.TrimSpace(regionID); regionID != "" {
		query.Set("region_id", regionID)
	}

	var apiResp struct {
		Product *Product `json:"product"`
	}
	endpoint := buildURL(c.baseURL, "store/products/"+url.PathEscape(trimmed), query)
	if err := c.getJSON(ctx, endpoint, &apiResp, "get product"); err != nil {
		return nil, err
	}
	if apiResp.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return apiResp.Product, nil
}

// VariantMedias fetches the media set attached to each variant.
func (c *Client) VariantMedias(ctx context.Context, variantIDs []string) ([]VariantMedias, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	if len(variantIDs) == 0 {
		return []VariantMedias{}, nil
	}

	var apiResp struct {
		Data []VariantMedias `json:"data"`
	}
	endpoint := buildURL(c.extensionURL, "store/variant_medias", idsQuery(variantIDs))
	if err := c.getJSON(ctx, endpoint, &apiResp, "variant medias"); err != nil {
		return nil, err
	}
	return apiResp.Data, nil
}

// MediaTags fetches the media tags of the given variants.
func (c *Client) MediaTags(ctx context.Context, variantIDs []string) ([]MediaTag, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	if len(variantIDs) == 0 {
		return []MediaTag{}, nil
	}

	var apiResp struct {
		Data []MediaTag `json:"data"`
	}
	endpoint := buildURL(c.extensionURL, "store/media_tag", idsQuery(variantIDs))
	if err := c.getJSON(ctx, endpoint, &apiResp, "media tags"); err != nil {
		return nil, err
	}
	return apiResp.Data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any, op string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+op+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(publishableKeyHeader, c.publishableKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, op+": not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return nil
}

func idsQuery(ids []string) url.Values {
	query := url.Values{}
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			query.Add("ids[]", trimmed)
		}
	}
	return query
}

func buildURL(base, path string, query url.Values) string {
	trimmed := strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	endpoint := fmt.Sprintf("%s/%s", trimmed, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}
