package commerce

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	client, err := NewClient("http://commerce.test", "pk_test", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresURLAndKey(t *testing.T) {
	if _, err := NewClient(" ", "pk"); err != errBackendURLRequired {
		t.Fatalf("expected backend url error, got %v", err)
	}
	if _, err := NewClient("http://commerce.test", ""); err != errPublishableKeyRequired {
		t.Fatalf("expected key error, got %v", err)
	}
}

func TestClientListRegions(t *testing.T) {
	var capturedURL string
	var capturedKey string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedKey = req.Header.Get(publishableKeyHeader)
		return jsonResponse(http.StatusOK, `{"regions":[{"id":"reg_eu","name":"Europe","currency_code":"eur","countries":[{"iso_2":"FR"},{"iso_2":"de"}]}]}`), nil
	})

	regions, err := client.ListRegions(context.Background())
	if err != nil {
		t.Fatalf("list regions: %v", err)
	}
	if capturedURL != "http://commerce.test/store/regions" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedKey != "pk_test" {
		t.Fatalf("publishable key header missing")
	}
	if len(regions) != 1 || regions[0].ID != "reg_eu" {
		t.Fatalf("unexpected regions %+v", regions)
	}
	codes := regions[0].CountryCodes()
	if len(codes) != 2 || codes[0] != "fr" || codes[1] != "de" {
		t.Fatalf("unexpected country codes %v", codes)
	}
}

func TestClientListRegionsBackendError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream down`), nil
	})

	_, err := client.ListRegions(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientGetProduct(t *testing.T) {
	var capturedPath, capturedRegion string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		capturedRegion = req.URL.Query().Get("region_id")
		return jsonResponse(http.StatusOK, `{"product":{"id":"prod_1","title":"Shirt","images":[{"id":"img_1","url":"https://cdn/1.png"}],"variants":[{"id":"var_1","manage_inventory":true,"inventory_quantity":3,"options":[{"option_id":"opt_color","value":"red"}],"calculated_price":{"calculated_amount":19.99,"currency_code":"eur"}}]}}`), nil
	})

	product, err := client.GetProduct(context.Background(), "prod_1", "reg_eu")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if capturedPath != "/store/products/prod_1" || capturedRegion != "reg_eu" {
		t.Fatalf("unexpected request path=%q region=%q", capturedPath, capturedRegion)
	}
	if len(product.Variants) != 1 {
		t.Fatalf("unexpected variants %+v", product.Variants)
	}
	v := product.Variants[0]
	if v.InventoryQuantity == nil || *v.InventoryQuantity != 3 {
		t.Fatalf("unexpected inventory quantity")
	}
	if v.CalculatedPrice == nil || v.CalculatedPrice.CalculatedAmount.String() != "19.99" {
		t.Fatalf("unexpected price %+v", v.CalculatedPrice)
	}
}

func TestClientGetProductNotFound(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"not found"}`), nil
	})

	_, err := client.GetProduct(context.Background(), "prod_missing", "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientExtensionRoutesUseExtensionURL(t *testing.T) {
	var urls []string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		urls = append(urls, req.URL.Host+req.URL.Path)
		if got := req.URL.Query()["ids[]"]; len(got) != 2 {
			t.Fatalf("expected two ids, got %v", got)
		}
		if strings.HasSuffix(req.URL.Path, "variant_medias") {
			return jsonResponse(http.StatusOK, `{"data":[{"variant_id":"var_1","medias":[{"id":"m1","url":"https://cdn/m1.png","mime_type":"image/png","is_thumbnail":true}]}]}`), nil
		}
		return jsonResponse(http.StatusOK, `{"data":[{"id":"t1","variant_id":"var_1","product_id":"prod_1","value":2}]}`), nil
	}, WithExtensionURL("http://ext.test"))

	medias, err := client.VariantMedias(context.Background(), []string{"var_1", "var_2"})
	if err != nil {
		t.Fatalf("variant medias: %v", err)
	}
	tags, err := client.MediaTags(context.Background(), []string{"var_1", "var_2"})
	if err != nil {
		t.Fatalf("media tags: %v", err)
	}
	if len(medias) != 1 || len(medias[0].Medias) != 1 || !medias[0].Medias[0].IsThumbnail {
		t.Fatalf("unexpected medias %+v", medias)
	}
	if len(tags) != 1 || tags[0].Value != 2 {
		t.Fatalf("unexpected tags %+v", tags)
	}
	if urls[0] != "ext.test/store/variant_medias" || urls[1] != "ext.test/store/media_tag" {
		t.Fatalf("unexpected urls %v", urls)
	}
}

func TestClientExtensionRoutesSkipEmptyIDs(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", req.URL)
		return nil, nil
	})

	medias, err := client.VariantMedias(context.Background(), nil)
	if err != nil || len(medias) != 0 {
		t.Fatalf("expected empty result, got %v %v", medias, err)
	}
}
