package worker

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Destination is the resource type a request is fetching, mirroring the
// browser's request destination classification.
type Destination string

const (
	DestDocument Destination = "document"
	DestScript   Destination = "script"
	DestStyle    Destination = "style"
	DestImage    Destination = "image"
	DestFont     Destination = "font"
	DestOther    Destination = ""
)

// Request is an outgoing fetch from a controlled page.
type Request struct {
	Method      string
	URL         *url.URL
	Destination Destination
	Header      http.Header
}

// Key identifies a request inside a cache partition: exact method+URL match.
func (r *Request) Key() string {
	return r.Method + " " + r.URL.String()
}

// Response is a fetched or cached answer. Bodies are held whole: a cache
// entry is saved and served as a complete response, never partial bytes.
type Response struct {
	StatusCode int
	Status     string
	Type       string // "basic" for same-origin, "opaque" otherwise
	Header     http.Header
	Body       []byte
}

// Clone duplicates the response so one copy can be cached while the
// original is returned to the caller.
func (r *Response) Clone() *Response {
	dup := &Response{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Type:       r.Type,
		Header:     make(http.Header, len(r.Header)),
		Body:       make([]byte, len(r.Body)),
	}
	for k, v := range r.Header {
		dup.Header[k] = append([]string(nil), v...)
	}
	copy(dup.Body, r.Body)
	return dup
}

// FromHTTP translates an incoming HTTP request into a fetch Request,
// resolving relative URLs against the origin.
func FromHTTP(r *http.Request, origin *url.URL) *Request {
	target := r.URL
	if !target.IsAbs() && origin != nil {
		target = origin.ResolveReference(target)
	}
	return &Request{
		Method:      r.Method,
		URL:         target,
		Destination: DestinationOf(r),
		Header:      r.Header,
	}
}

// DestinationOf classifies a request, preferring the Sec-Fetch-Dest header
// and falling back to extension and Accept sniffing for older clients.
func DestinationOf(r *http.Request) Destination {
	switch r.Header.Get("Sec-Fetch-Dest") {
	case "document":
		return DestDocument
	case "script":
		return DestScript
	case "style":
		return DestStyle
	case "image":
		return DestImage
	case "font":
		return DestFont
	}

	switch path.Ext(r.URL.Path) {
	case ".js", ".mjs":
		return DestScript
	case ".css":
		return DestStyle
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico":
		return DestImage
	case ".woff", ".woff2", ".ttf", ".otf":
		return DestFont
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return DestDocument
	}
	return DestOther
}
