package youtrack

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"
)

// Format identifies the wire encoding a Document was parsed from
type Format int

const (
	// FormatEmpty means the response had no body
	FormatEmpty Format = iota
	// FormatJSON means the body was JSON
	FormatJSON
	// FormatXML means the body was XML
	FormatXML
)

// String returns the string representation of a Format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "empty"
	}
}

// xmlTextKey holds element text when the element also has attributes or children.
const xmlTextKey = "_text"

// Document is a decoded response body whose schema is not fixed at the call
// site. XML bodies are converted to an equivalent JSON tree: the root element
// name is the top-level key, attributes and child elements become keys,
// repeated children become arrays, and text next to attributes or children is
// stored under "_text". Values are read with gjson paths.
type Document struct {
	format Format
	raw    []byte
}

// ParseDocument decodes body into a Document. The body is sniffed before
// contentType is consulted because the server does not always answer in the
// encoding that was asked for.
func ParseDocument(body []byte, contentType string) (*Document, error) {
	format := detectFormat(body, contentType)

	switch format {
	case FormatEmpty:
		return &Document{format: FormatEmpty, raw: []byte("null")}, nil
	case FormatXML:
		raw, err := xmlToJSON(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml document: %w", err)
		}
		return &Document{format: FormatXML, raw: raw}, nil
	default:
		trimmed := bytes.TrimSpace(body)
		if !gjson.ValidBytes(trimmed) {
			return nil, fmt.Errorf("failed to parse json document: invalid json")
		}
		return &Document{format: FormatJSON, raw: trimmed}, nil
	}
}

// Format reports the encoding the document was parsed from
func (d *Document) Format() Format {
	return d.format
}

// IsEmpty reports whether the response had no body
func (d *Document) IsEmpty() bool {
	return d.format == FormatEmpty
}

// Get returns the value at a gjson path
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// String returns the value at path as a string, or "" when missing
func (d *Document) String(path string) string {
	return d.Get(path).String()
}

// Exists reports whether path resolves to a value
func (d *Document) Exists(path string) bool {
	return d.Get(path).Exists()
}

// JSON returns the JSON form of the document
func (d *Document) JSON() []byte {
	return d.raw
}

// Value returns the document as plain Go values (map[string]any, []any, ...)
func (d *Document) Value() any {
	return gjson.ParseBytes(d.raw).Value()
}

// Decode copies the document into out, matching keys against json tags.
// Scalars are converted loosely since XML carries every value as a string.
func (d *Document) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(d.Value()); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func detectFormat(body []byte, contentType string) Format {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return FormatEmpty
	}

	switch trimmed[0] {
	case '<':
		return FormatXML
	case '{', '[':
		return FormatJSON
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if strings.HasSuffix(mediaType, "xml") {
		return FormatXML
	}
	return FormatJSON
}

// newXMLDecoder decodes body, transcoding any declared non-UTF-8 encoding
func newXMLDecoder(body []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

func xmlToJSON(body []byte) ([]byte, error) {
	dec := newXMLDecoder(body)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no root element")
		}
		if err != nil {
			return nil, err
		}

		if start, ok := tok.(xml.StartElement); ok {
			value, err := decodeXMLElement(dec, start)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]any{start.Name.Local: value})
		}
	}
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	fields := make(map[string]any, len(start.Attr))
	for _, attr := range start.Attr {
		fields[attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			switch existing := fields[name].(type) {
			case nil:
				fields[name] = child
			case []any:
				fields[name] = append(existing, child)
			default:
				fields[name] = []any{existing, child}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if len(fields) == 0 {
				return s, nil
			}
			if s != "" {
				fields[xmlTextKey] = s
			}
			return fields, nil
		}
	}
}
