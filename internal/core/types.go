package core

import (
	"bytes"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Param is a single request parameter
type Param struct {
	Key   string
	Value string
}

// Params is an ordered key/value mapping. Insertion order is preserved.
type Params []Param

// NewParams builds Params from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewParams(kv ...string) Params {
	p := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		p = p.Set(kv[i], kv[i+1])
	}
	return p
}

// Get returns the value stored under key
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces the value under key in place, or appends it.
func (p Params) Set(key, value string) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Param{Key: key, Value: value})
}

// Clone returns an independent copy
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Sorted returns a copy ordered by key bytes
func (p Params) Sorted() Params {
	out := p.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MarshalJSON renders the params as a JSON object in insertion order
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RequestDescriptor describes one outbound exchange call before signing.
// It embeds a timestamp and must not be reused across calls.
type RequestDescriptor struct {
	Method     string
	Scheme     string // defaults to https
	Host       string
	Path       string
	Params     Params
	Body       any
	Timestamp  time.Time
	KeyVersion string
	Headers    map[string]string
}

// SignedRequest is a descriptor plus derived signatures and the final wire shape.
type SignedRequest struct {
	Exchange  string            `json:"exchange"`
	Method    string            `json:"method"`
	Host      string            `json:"host"`
	Path      string            `json:"path"`
	Timestamp string            `json:"timestamp"`
	Canonical string            `json:"canonical"`
	Signature string            `json:"signature"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body,omitempty"`
}

// RawResponse is what the dispatcher observed on the wire
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Result is the normalized outcome of an adapter operation
type Result struct {
	Status int  `json:"status"`
	OK     bool `json:"ok"`
	Data   any  `json:"data"`
}
