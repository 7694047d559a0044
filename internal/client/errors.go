package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	// Message is the server-provided message, if one could be extracted.
	Message string
	URL     string
	Err     error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StatusText returns the numeric HTTP status of err, or "Error" when there is none.
func StatusText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "Error"
}

// ServerMessage returns the message the server attached to a failed response.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

const maxErrorBody = 64 << 10

// newAPIError reads (a bounded prefix of) the response body and extracts a
// human-readable message from either a JSON {"message": ...} object or the
// <title> of an HTML error page.
func newAPIError(resp *http.Response, reqURL string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    extractMessage(resp.Header.Get("Content-Type"), body),
		URL:        reqURL,
	}
}

func extractMessage(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	if body[0] == '{' {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			return payload.Error
		}
	}

	if strings.Contains(strings.ToLower(contentType), "text/html") || body[0] == '<' {
		return htmlTitle(bytes.NewReader(body))
	}
	return ""
}

// htmlTitle returns the trimmed text of the first <title> element.
func htmlTitle(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			return true
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// textContent returns all text content within a node.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}
