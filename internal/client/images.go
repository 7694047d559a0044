package client

import "strings"

// DefaultImageCDNHost serves product images.
const DefaultImageCDNHost = "s1.thcdn.com"

// ImagePath extracts the large product image path from image metadata.
// Two shapes are understood: the nested {"<id>": {"1": {"LARGEPRODUCT": path}}}
// and a flat {"LARGEPRODUCT": path}. Anything missing yields "".
func ImagePath(meta ImageMetadata, productID string) string {
	if meta == nil {
		return ""
	}
	if productID != "" {
		if byIndex, ok := meta[productID].(map[string]any); ok {
			if first, ok := byIndex["1"].(map[string]any); ok {
				if p, ok := first["LARGEPRODUCT"].(string); ok {
					return p
				}
			}
			return ""
		}
	}
	if p, ok := meta["LARGEPRODUCT"].(string); ok {
		return p
	}
	return ""
}

// ImageURL joins a CDN host and an image path. An empty path means no image.
func ImageURL(host, path string) string {
	if path == "" {
		return ""
	}
	if host == "" {
		host = DefaultImageCDNHost
	}
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return "https://" + strings.TrimRight(host, "/") + "/productimg" + path
}

// ResolveImageURL builds the display image URL for a product from its metadata.
func ResolveImageURL(meta ImageMetadata, productID, host string) string {
	return ImageURL(host, ImagePath(meta, productID))
}
