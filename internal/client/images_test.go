package client

import "testing"

func TestImagePath(t *testing.T) {
	tests := []struct {
		name string
		meta ImageMetadata
		id   string
		want string
	}{
		{
			name: "nested",
			meta: ImageMetadata{"7": map[string]any{"1": map[string]any{"LARGEPRODUCT": "/a/b.jpg"}}},
			id:   "7",
			want: "/a/b.jpg",
		},
		{name: "flat", meta: ImageMetadata{"LARGEPRODUCT": "/flat.jpg"}, id: "7", want: "/flat.jpg"},
		{name: "nil", meta: nil, id: "7", want: ""},
		{name: "missing id", meta: ImageMetadata{"8": map[string]any{}}, id: "7", want: ""},
		{name: "missing index", meta: ImageMetadata{"7": map[string]any{"2": map[string]any{}}}, id: "7", want: ""},
		{name: "missing size", meta: ImageMetadata{"7": map[string]any{"1": map[string]any{"SMALL": "/s.jpg"}}}, id: "7", want: ""},
		{name: "wrong type", meta: ImageMetadata{"7": "nope"}, id: "7", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImagePath(tt.meta, tt.id); got != tt.want {
				t.Fatalf("ImagePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageURL(t *testing.T) {
	if got := ImageURL("", ""); got != "" {
		t.Fatalf("empty path should yield no URL, got %q", got)
	}
	if got := ImageURL("https://cdn.example.com/", "/x.jpg"); got != "https://cdn.example.com/productimg/x.jpg" {
		t.Fatalf("unexpected URL %q", got)
	}
	if got := ImageURL("", "/x.jpg"); got != "https://s1.thcdn.com/productimg/x.jpg" {
		t.Fatalf("default host not applied: %q", got)
	}
}

func TestExtractMessage(t *testing.T) {
	if got := extractMessage("application/json", []byte(`{"message":"Product not found"}`)); got != "Product not found" {
		t.Fatalf("json message = %q", got)
	}
	if got := extractMessage("text/html", []byte(`<html><head><title> Bad Gateway </title></head></html>`)); got != "Bad Gateway" {
		t.Fatalf("html title = %q", got)
	}
	if got := extractMessage("text/plain", []byte("oops")); got != "" {
		t.Fatalf("plain text should yield no message, got %q", got)
	}
}
