package mock

import (
	"net/http"
	"sort"
	"strings"

	"github.com/zerbitx/filegnock/encode"
)

type (
	// Request is the read-only view of an inbound request used to locate and evaluate a mock
	Request struct {
		Method  string
		Path    string
		Query   string
		Headers http.Header
		Body    Body
	}

	// Body is either a raw string or a structured set of fields
	Body struct {
		Raw    string
		Fields []Field
		// Data is the full parsed structure behind Fields, handed to expressions
		Data interface{}
	}

	// Field is one key of a structured body
	Field struct {
		Key   string
		Value interface{}
	}

	// Header is a response header with every value declared for it, in declaration order
	Header struct {
		Name   string
		Values []string
	}

	// Response is a fully evaluated mock
	Response struct {
		Status  string
		Headers []Header
		Body    string
	}
)

// NewRequest builds a Request, upper-casing the method and splitting a query off the path if one was left on it
func NewRequest(method, path, query string, headers http.Header, body Body) *Request {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if query == "" {
			query = path[i+1:]
		}
		path = path[:i]
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if headers == nil {
		headers = http.Header{}
	}

	return &Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   query,
		Headers: headers,
		Body:    body,
	}
}

// URL is the path followed by the raw query, when there is one
func (r *Request) URL() string {
	if r.Query == "" {
		return r.Path
	}

	return r.Path + "?" + r.Query
}

// StringBody wraps a raw body
func StringBody(raw string) Body {
	return Body{Raw: raw}
}

// FieldsBody builds a structured body from a map, keys sorted so the serialized form is stable
func FieldsBody(data map[string]interface{}) Body {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: data[k]})
	}

	return Body{Fields: fields, Data: data}
}

// IsStructured reports whether the body came from a key/value payload
func (b Body) IsStructured() bool {
	return b.Fields != nil
}

// Token serializes the body the way it appears in a mock filename, before prefixing and lower-casing
func (b Body) Token() string {
	if !b.IsStructured() {
		return b.Raw
	}

	pairs := make([]string, 0, len(b.Fields))
	for _, f := range b.Fields {
		pairs = append(pairs, f.Key+"="+fieldText(f.Value))
	}

	return strings.Join(pairs, "&")
}

// Value is the body as expressions see it: the parsed structure or the raw string
func (b Body) Value() interface{} {
	if !b.IsStructured() {
		return b.Raw
	}
	if b.Data != nil {
		return b.Data
	}

	m := make(map[string]interface{}, len(b.Fields))
	for _, f := range b.Fields {
		m[f.Key] = f.Value
	}

	return m
}

func fieldText(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}

	return encode.Canonical(v)
}

// Header returns the declared values for a canonical header name joined with ", "
func (r *Response) Header(name string) string {
	return strings.Join(r.Values(name), ", ")
}

// Values returns every value declared for a canonical header name
func (r *Response) Values(name string) []string {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Values
		}
	}

	return nil
}

// Add appends a value to the named header, creating it at the end if it's new
func (r *Response) Add(name, value string) {
	for i := range r.Headers {
		if r.Headers[i].Name == name {
			r.Headers[i].Values = append(r.Headers[i].Values, value)
			return
		}
	}

	r.Headers = append(r.Headers, Header{Name: name, Values: []string{value}})
}
