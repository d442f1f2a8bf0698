package youtrack

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is a raw HTTP response handed back to callers that interpret the
// status themselves (POST, PUT, file upload).
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

// IsCreated reports whether the server answered 201 Created
func (r *Response) IsCreated() bool {
	return r.StatusCode == http.StatusCreated
}

// IsEmpty reports whether the response carried no body
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// IsNull reports whether the body is the JSON literal null
func (r *Response) IsNull() bool {
	return gjson.ValidBytes(r.Body) && gjson.ParseBytes(r.Body).Type == gjson.Null
}

// ContentType returns the Content-Type header
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Document parses the body into a loosely typed Document
func (r *Response) Document() (*Document, error) {
	return ParseDocument(r.Body, r.ContentType())
}

// Decode unmarshals the body into out as XML or JSON, whichever the body is
func (r *Response) Decode(out any) error {
	switch detectFormat(r.Body, r.ContentType()) {
	case FormatEmpty:
		return fmt.Errorf("cannot decode empty body: %w", ErrNotFound)
	case FormatXML:
		return newXMLDecoder(r.Body).Decode(out)
	default:
		return json.Unmarshal(r.Body, out)
	}
}

// Getter performs a GET for a resource path and returns the raw response.
// *Connection implements it; GetAs and GetList are written against it.
type Getter interface {
	GetResponse(ctx context.Context, path string) (*Response, error)
}

// GetAs fetches path and decodes the body into a T. An empty or null body is
// not an error: GetAs returns (nil, nil) and the caller decides what absence means.
func GetAs[T any](ctx context.Context, g Getter, path string) (*T, error) {
	resp, err := g.GetResponse(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.IsEmpty() || resp.IsNull() {
		return nil, nil
	}

	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &out, nil
}

// GetList fetches an envelope E and returns the records it wraps. The result
// is never nil: an absent envelope yields an empty slice.
func GetList[E Envelope[T], T any](ctx context.Context, g Getter, path string) ([]T, error) {
	envelope, err := GetAs[E](ctx, g, path)
	if err != nil {
		return nil, err
	}
	if envelope == nil {
		return []T{}, nil
	}

	items := (*envelope).Items()
	if items == nil {
		return []T{}, nil
	}
	return items, nil
}

// statusDescription returns the reason phrase the server sent, e.g. "Created".
func statusDescription(resp *http.Response) string {
	desc := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if desc == "" {
		desc = http.StatusText(resp.StatusCode)
	}
	return desc
}
