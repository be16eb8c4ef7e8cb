package utils

import (
	"io"
	"net/http"
	"strings"
)

// maxResponseBody caps how much of an upstream response body is read.
const maxResponseBody = 64 << 10

// ReadResponse reads and closes the response body.
func ReadResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
}

// HasScheme reports whether url is absolute http(s).
func HasScheme(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// AppendURL joins path onto baseURL with exactly one slash between them and
// collapses doubled slashes after the scheme. Absolute paths are returned
// unchanged.
func AppendURL(baseURL, path string) string {
	if HasScheme(path) {
		return path
	}
	joined := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	scheme := ""
	if i := strings.Index(joined, "://"); i != -1 {
		scheme, joined = joined[:i+3], joined[i+3:]
	}
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	return scheme + joined
}
