package domain

import "strings"

// NormalizeImageSrc stores images under assetBase as bare asset ids and
// keeps everything else as a full URL. An empty assetBase leaves src as is.
func NormalizeImageSrc(src, assetBase string) string {
	src = strings.TrimSpace(src)
	if assetBase == "" || src == "" {
		return src
	}
	base := strings.TrimRight(assetBase, "/") + "/"
	if id, ok := strings.CutPrefix(src, base); ok && id != "" && !strings.Contains(id, "/") {
		return id
	}
	return src
}

// ImageURL expands an asset id back into a fetchable URL.
func ImageURL(src, assetBase string) string {
	if src == "" || assetBase == "" || isURL(src) {
		return src
	}
	return strings.TrimRight(assetBase, "/") + "/" + src
}

func isURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "data:")
}
