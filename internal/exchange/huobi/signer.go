package huobi

import (
	"net/http"
	"strings"
	"time"

	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
)

const (
	// DefaultHost is the signing and dispatch host when none is configured
	DefaultHost = "api.huobi.pro"

	signatureMethod  = "HmacSHA256"
	signatureVersion = "2"
	timestampLayout  = "2006-01-02T15:04:05"
	formContentType  = "application/x-www-form-urlencoded"
)

// Signer produces Huobi signature version 2 requests.
// Safe for concurrent use.
type Signer struct {
	accessKey string
	secretKey string
}

// NewSigner creates a Signer. Empty credentials are accepted.
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{accessKey: accessKey, secretKey: secretKey}
}

// FormatTimestamp renders t as UTC seconds without zone designator
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Encode percent-encodes s per RFC 3986. Only A-Z a-z 0-9 - _ . ~ are
// left literal; hex digits are upper case.
func Encode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}

// CanonicalQuery sorts params by key and joins the encoded pairs with '&'
func CanonicalQuery(params core.Params) string {
	sorted := params.Sorted()
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, Encode(p.Key)+"="+Encode(p.Value))
	}
	return strings.Join(parts, "&")
}

// AuthParams merges the four authentication parameters into params.
// Authentication values win over caller-supplied keys of the same name.
func (s *Signer) AuthParams(params core.Params, ts time.Time) core.Params {
	merged := params.Clone()
	merged = merged.Set("AccessKeyId", s.accessKey)
	merged = merged.Set("SignatureMethod", signatureMethod)
	merged = merged.Set("SignatureVersion", signatureVersion)
	merged = merged.Set("Timestamp", FormatTimestamp(ts))
	return merged
}

// PreSignedText builds METHOD\nhost\npath\nquery
func PreSignedText(method, host, path, query string) string {
	return strings.ToUpper(method) + "\n" + strings.ToLower(host) + "\n" + path + "\n" + query
}

// Sign implements core.Signer.
// GET carries the signed query on the URL; other methods send it as a form body.
func (s *Signer) Sign(desc core.RequestDescriptor) *core.SignedRequest {
	method := strings.ToUpper(desc.Method)
	host := normalizeHost(desc.Host)

	merged := s.AuthParams(desc.Params, desc.Timestamp)
	query := CanonicalQuery(merged)
	preSigned := PreSignedText(method, host, desc.Path, query)
	signature := base.SignHMAC(s.secretKey, preSigned)
	signedParams := query + "&Signature=" + Encode(signature)

	req := &core.SignedRequest{
		Exchange:  "huobi",
		Method:    method,
		Host:      host,
		Path:      desc.Path,
		Timestamp: FormatTimestamp(desc.Timestamp),
		Canonical: preSigned,
		Signature: signature,
		Headers:   map[string]string{"Content-Type": formContentType},
	}

	origin := schemeOf(desc.Scheme) + "://" + host + desc.Path
	if method == http.MethodGet {
		req.URL = origin + "?" + signedParams
	} else {
		req.URL = origin
		req.Body = signedParams
	}
	return req
}

// PublicRequest builds an unsigned request with a sorted, encoded query
func PublicRequest(method, scheme, host, path string, params core.Params) *core.SignedRequest {
	host = normalizeHost(host)
	url := schemeOf(scheme) + "://" + host + path
	if q := CanonicalQuery(params); q != "" {
		url += "?" + q
	}
	return &core.SignedRequest{
		Exchange: "huobi",
		Method:   strings.ToUpper(method),
		Host:     host,
		Path:     path,
		URL:      url,
		Headers:  map[string]string{},
	}
}

func normalizeHost(host string) string {
	if host == "" {
		return DefaultHost
	}
	return strings.ToLower(host)
}

func schemeOf(scheme string) string {
	if scheme == "" {
		return "https"
	}
	return scheme
}
