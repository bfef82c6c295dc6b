package base

import (
	"context"
	"strings"

	"exchanges_gateway/internal/core"
)

const redacted = "[REDACTED]"

// sensitiveHeaders hold signatures or the encoded passphrase
var sensitiveHeaders = map[string]bool{
	"kc-api-sign":         true,
	"kc-api-passphrase":   true,
	"kc-api-partner-sign": true,
}

// LogObserver writes every signed request at debug level with signatures redacted
type LogObserver struct {
	logger core.ILogger
}

// NewLogObserver creates a LogObserver
func NewLogObserver(logger core.ILogger) *LogObserver {
	return &LogObserver{logger: logger.WithField("component", "signed_requests")}
}

// OnSigned implements core.Observer
func (o *LogObserver) OnSigned(_ context.Context, req *core.SignedRequest) {
	o.logger.Debug("signed request",
		"exchange", req.Exchange,
		"method", req.Method,
		"url", RedactURL(req.URL),
		"timestamp", req.Timestamp,
		"headers", RedactHeaders(req.Headers),
	)
}

// RedactHeaders returns a copy of headers with signature material masked
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] && v != "" {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

// RedactURL masks the Signature query parameter, keeping parameter order intact
func RedactURL(rawURL string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}
	return base + "?" + RedactQuery(query)
}

// RedactQuery masks the Signature parameter of an encoded query or form body
func RedactQuery(query string) string {
	parts := strings.Split(query, "&")
	for i, p := range parts {
		if strings.HasPrefix(p, "Signature=") {
			parts[i] = "Signature=" + redacted
		}
	}
	return strings.Join(parts, "&")
}
