package kucoin

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
	apperrors "exchanges_gateway/pkg/errors"

	"github.com/goccy/go-json"
)

const (
	// DefaultHost serves the generic signed endpoints
	DefaultHost = "api.kucoin.com"
	// DefaultBrokerHost serves the broker endpoints
	DefaultBrokerHost = "api-broker.kucoin.com"
	// DefaultKeyVersion selects the HMAC-encoded passphrase
	DefaultKeyVersion = "2"

	HeaderAPIKey      = "KC-API-KEY"
	HeaderSign        = "KC-API-SIGN"
	HeaderTimestamp   = "KC-API-TIMESTAMP"
	HeaderPassphrase  = "KC-API-PASSPHRASE"
	HeaderKeyVersion  = "KC-API-KEY-VERSION"
	HeaderBrokerName  = "KC-BROKER-NAME"
	HeaderPartner     = "KC-API-PARTNER"
	HeaderPartnerSign = "KC-API-PARTNER-SIGN"
	HeaderSiteType    = "X-SITE-TYPE"
)

// Credentials is one KuCoin trust domain. Broker and partner fields are optional.
type Credentials struct {
	APIKey        string
	SecretKey     string
	Passphrase    string
	BrokerName    string
	Partner       string
	PartnerSecret string
}

// Signer builds KuCoin signed requests.
// Safe for concurrent use.
type Signer struct {
	creds Credentials
}

// NewSigner creates a Signer. Empty credentials are accepted.
func NewSigner(creds Credentials) *Signer {
	return &Signer{creds: creds}
}

// FormatTimestamp renders t as epoch milliseconds
func FormatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Prehash is timestamp + METHOD + path + body. The query string is never part of it.
func Prehash(timestamp, method, path, body string) string {
	return timestamp + strings.ToUpper(method) + path + body
}

// BodyString serializes body for signing and sending. GET, DELETE and nil
// bodies produce an empty string; strings are used literally.
func BodyString(method string, body any) string {
	method = strings.ToUpper(method)
	if body == nil || method == http.MethodGet || method == http.MethodDelete {
		return ""
	}
	switch b := body.(type) {
	case string:
		return b
	case []byte:
		return string(b)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprint(body)
	}
	return string(data)
}

// QueryString form-encodes an object-shaped body for a GET request.
// core.Params keep their order; plain maps are emitted in key order.
// Anything else yields an empty string.
func QueryString(body any) string {
	var pairs core.Params
	switch b := body.(type) {
	case core.Params:
		pairs = b
	case map[string]string:
		for _, k := range sortedKeys(b) {
			pairs = append(pairs, core.Param{Key: k, Value: b[k]})
		}
	case map[string]any:
		for _, k := range sortedKeys(b) {
			pairs = append(pairs, core.Param{Key: k, Value: scalarString(b[k])})
		}
	default:
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, formEncode(p.Key)+"="+formEncode(p.Value))
	}
	return strings.Join(parts, "&")
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	case map[string]any, []any:
		data, _ := json.Marshal(s)
		return string(data)
	}
	return fmt.Sprint(v)
}

// CheckQuery rejects a GET object body whose values cannot be form-encoded
func CheckQuery(method string, body any) error {
	if method != "" && !strings.EqualFold(method, http.MethodGet) {
		return nil
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range sortedKeys(obj) {
		switch obj[k].(type) {
		case map[string]any, []any:
			return fmt.Errorf("%w: body.%s must be a scalar for GET", apperrors.ErrInvalidRequest, k)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formEncode follows the application/x-www-form-urlencoded serializer:
// A-Z a-z 0-9 * - . _ stay literal and space becomes '+'.
func formEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

// EncodePassphrase returns the raw passphrase for key version 1 and
// HMAC(secret, passphrase) for every later version.
func (s *Signer) EncodePassphrase(keyVersion string) string {
	if keyVersion == "1" {
		return s.creds.Passphrase
	}
	return base.SignHMAC(s.creds.SecretKey, s.creds.Passphrase)
}

// PartnerSign returns HMAC(partnerSecret, timestamp + partner + apiKey), or
// "" unless both partner and partner secret are configured.
func (s *Signer) PartnerSign(timestamp string) string {
	if s.creds.Partner == "" || s.creds.PartnerSecret == "" {
		return ""
	}
	return base.SignHMAC(s.creds.PartnerSecret, timestamp+s.creds.Partner+s.creds.APIKey)
}

// Sign implements core.Signer. For GET an object body becomes the URL query
// and is left out of the prehash. desc.Headers are added without replacing
// authentication headers.
func (s *Signer) Sign(desc core.RequestDescriptor) *core.SignedRequest {
	method := strings.ToUpper(desc.Method)
	if method == "" {
		method = http.MethodGet
	}
	host := desc.Host
	if host == "" {
		host = DefaultHost
	}
	keyVersion := desc.KeyVersion
	if keyVersion == "" {
		keyVersion = DefaultKeyVersion
	}
	scheme := desc.Scheme
	if scheme == "" {
		scheme = "https"
	}

	timestamp := FormatTimestamp(desc.Timestamp)
	bodyStr := BodyString(method, desc.Body)
	prehash := Prehash(timestamp, method, desc.Path, bodyStr)
	signature := base.SignHMAC(s.creds.SecretKey, prehash)

	headers := make(map[string]string, 10)
	for k, v := range desc.Headers {
		if v != "" {
			headers[k] = v
		}
	}
	headers[HeaderAPIKey] = s.creds.APIKey
	headers[HeaderSign] = signature
	headers[HeaderTimestamp] = timestamp
	headers[HeaderPassphrase] = s.EncodePassphrase(keyVersion)
	headers[HeaderKeyVersion] = keyVersion
	headers["Content-Type"] = "application/json"
	if s.creds.BrokerName != "" {
		headers[HeaderBrokerName] = s.creds.BrokerName
	}
	if s.creds.Partner != "" {
		headers[HeaderPartner] = s.creds.Partner
	}
	if ps := s.PartnerSign(timestamp); ps != "" {
		headers[HeaderPartnerSign] = ps
	}

	url := scheme + "://" + host + desc.Path
	if method == http.MethodGet {
		if q := QueryString(desc.Body); q != "" {
			url += "?" + q
		}
	}

	return &core.SignedRequest{
		Exchange:  "kucoin",
		Method:    method,
		Host:      host,
		Path:      desc.Path,
		Timestamp: timestamp,
		Canonical: prehash,
		Signature: signature,
		URL:       url,
		Headers:   headers,
		Body:      bodyStr,
	}
}
