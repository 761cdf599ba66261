package displaymedia

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func media(id string, thumb bool) Media {
	return Media{ID: id, URL: "https://cdn.test/" + id, IsThumbnail: thumb, MimeType: "image/png"}
}

func variant(id string, tag *int, medias []Media, opts ...Option) Variant {
	return Variant{ID: id, Options: opts, Medias: medias, MediaTag: tag}
}

func opt(id, value string) Option { return Option{OptionID: id, Value: value} }

func ids(items []DisplayMedia) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func tshirt() Product {
	return Product{
		Images: []Image{{ID: "base_1", URL: "https://cdn.test/base_1"}, {ID: "base_2", URL: "https://cdn.test/base_2", Name: strPtr("Back")}},
		Variants: []Variant{
			variant("red_s", intPtr(1), []Media{media("red_a", false), media("red_b", true)}, opt("color", "red"), opt("size", "s")),
			variant("red_m", intPtr(1), []Media{media("red_a", false), media("red_b", true)}, opt("color", "red"), opt("size", "m")),
			variant("blue_s", intPtr(2), []Media{media("blue_a", false)}, opt("color", "blue"), opt("size", "s")),
			variant("blue_m", intPtr(2), nil, opt("color", "blue"), opt("size", "m")),
			variant("green_s", nil, nil, opt("color", "green"), opt("size", "s")),
		},
	}
}

func TestResolveExactMatch(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"color": "blue", "size": "s"})

	if result.MediaTag == nil || *result.MediaTag != 2 {
		t.Fatalf("expected tag 2, got %v", result.MediaTag)
	}
	if got := ids(result.Medias); !reflect.DeepEqual(got, []string{"blue_a"}) {
		t.Fatalf("unexpected medias %v", got)
	}
	if result.Medias[0].Name != "Media [1]" || result.Medias[0].MimeType != KindImage {
		t.Fatalf("unexpected display media %+v", result.Medias[0])
	}
	if result.Medias[0].IsThumbnail == nil || *result.Medias[0].IsThumbnail {
		t.Fatalf("expected explicit is_thumbnail=false")
	}
}

func TestResolveSharedTagForPartialSelection(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"color": "red"})

	if result.MediaTag == nil || *result.MediaTag != 1 {
		t.Fatalf("expected shared tag 1, got %v", result.MediaTag)
	}
	if got := ids(result.Medias); !reflect.DeepEqual(got, []string{"red_a", "red_b"}) {
		t.Fatalf("unexpected medias %v", got)
	}
}

func TestResolveSharedTagSkipsVariantsWithoutMedia(t *testing.T) {
	product := tshirt()
	product.Variants[2], product.Variants[3] = product.Variants[3], product.Variants[2]

	result := Resolve(product, map[string]string{"color": "blue"})

	if result.MediaTag == nil || *result.MediaTag != 2 {
		t.Fatalf("expected tag 2, got %v", result.MediaTag)
	}
	if got := ids(result.Medias); !reflect.DeepEqual(got, []string{"blue_a"}) {
		t.Fatalf("unexpected medias %v", got)
	}
}

func TestResolveSingleMatchWithoutMediaFallsBack(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"color": "blue", "size": "m"})

	if result.MediaTag != nil {
		t.Fatalf("expected nil tag, got %d", *result.MediaTag)
	}
	if got := ids(result.Medias); !reflect.DeepEqual(got, []string{"base_1", "base_2"}) {
		t.Fatalf("unexpected medias %v", got)
	}
}

func TestResolveDifferentTagsFallBack(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"size": "s"})

	if result.MediaTag != nil {
		t.Fatalf("expected nil tag, got %d", *result.MediaTag)
	}
	if got := ids(result.Medias); !reflect.DeepEqual(got, []string{"base_1", "base_2"}) {
		t.Fatalf("unexpected medias %v", got)
	}
	if result.Medias[0].Name != "Image [1]" || result.Medias[1].Name != "Back" {
		t.Fatalf("unexpected names %q %q", result.Medias[0].Name, result.Medias[1].Name)
	}
	if result.Medias[0].IsThumbnail != nil {
		t.Fatalf("fallback images carry no thumbnail flag")
	}
}

func TestResolveNoMatchFallsBack(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"color": "purple"})
	if result.MediaTag != nil || len(result.Medias) != 2 {
		t.Fatalf("expected product images, got %+v", result)
	}
}

func TestResolveUntaggedSingleMatchWithoutMedia(t *testing.T) {
	result := Resolve(tshirt(), map[string]string{"color": "green"})
	if result.MediaTag != nil || len(result.Medias) != 2 {
		t.Fatalf("expected product images, got %+v", result)
	}
}

func TestResolveEmptyProduct(t *testing.T) {
	result := Resolve(Product{}, nil)
	if result.MediaTag != nil || result.Medias == nil || len(result.Medias) != 0 {
		t.Fatalf("expected empty non-nil medias, got %+v", result)
	}
}

func TestResolveIsPure(t *testing.T) {
	product := tshirt()
	selected := map[string]string{"color": "red", "size": "m"}

	first := Resolve(product, selected)
	second := Resolve(product, selected)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results")
	}
	*first.MediaTag = 99
	if *product.Variants[1].MediaTag != 1 {
		t.Fatalf("result must not alias the input tag")
	}
}

func TestKind(t *testing.T) {
	cases := map[string]string{
		"video/mp4":  KindVideo,
		"VIDEO/webm": KindVideo,
		"image/png":  KindImage,
		"":           KindImage,
	}
	for in, want := range cases {
		if got := Kind(in); got != want {
			t.Fatalf("Kind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInStock(t *testing.T) {
	cases := []struct {
		name string
		v    Variant
		want bool
	}{
		{name: "no price", v: Variant{ManageInventory: false}, want: false},
		{name: "untracked", v: Variant{HasPrice: true}, want: true},
		{name: "backorder", v: Variant{HasPrice: true, ManageInventory: true, AllowBackorder: true, InventoryQuantity: intPtr(0)}, want: true},
		{name: "units", v: Variant{HasPrice: true, ManageInventory: true, InventoryQuantity: intPtr(3)}, want: true},
		{name: "sold out", v: Variant{HasPrice: true, ManageInventory: true, InventoryQuantity: intPtr(0)}, want: false},
		{name: "unknown quantity", v: Variant{HasPrice: true, ManageInventory: true}, want: false},
	}
	for _, tc := range cases {
		if got := InStock(tc.v); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
