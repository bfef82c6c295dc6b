package kucoin

import (
	"net/http"
	"testing"
	"time"

	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
	apperrors "exchanges_gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
)

var fixedTime = time.UnixMilli(1700000000000)

func testCreds() Credentials {
	return Credentials{APIKey: "key", SecretKey: "secret", Passphrase: "pass"}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "1700000000000", FormatTimestamp(fixedTime))
	assert.Equal(t, "1700000000123", FormatTimestamp(time.UnixMilli(1700000000123)))
}

func TestPrehashExcludesQueryString(t *testing.T) {
	s := NewSigner(testCreds())
	req := s.Sign(core.RequestDescriptor{
		Method:    "get",
		Path:      "/api/v1/mark-price",
		Body:      core.NewParams("symbol", "BTC-USDT"),
		Timestamp: fixedTime,
	})

	assert.Equal(t, "1700000000000GET/api/v1/mark-price", req.Canonical)
	assert.Equal(t, base.SignHMAC("secret", "1700000000000GET/api/v1/mark-price"), req.Signature)
	assert.Equal(t, "https://api.kucoin.com/api/v1/mark-price?symbol=BTC-USDT", req.URL)
	assert.Empty(t, req.Body)
	assert.Equal(t, req.Signature, req.Headers[HeaderSign])
}

func TestBodyString(t *testing.T) {
	assert.Equal(t, "", BodyString("GET", core.NewParams("a", "1")))
	assert.Equal(t, "", BodyString("DELETE", "x"))
	assert.Equal(t, "", BodyString("POST", nil))
	assert.Equal(t, `{"raw":true}`, BodyString("post", `{"raw":true}`))
	assert.Equal(t, `{"b":"1","a":"x"}`, BodyString("POST", core.NewParams("b", "1", "a", "x")))
	assert.JSONEq(t, `{"size":"0.1","side":"buy"}`, BodyString("POST", map[string]any{"side": "buy", "size": "0.1"}))
}

func TestSignPOSTIncludesBody(t *testing.T) {
	s := NewSigner(testCreds())
	req := s.Sign(core.RequestDescriptor{
		Method:    http.MethodPost,
		Path:      "/api/v1/orders",
		Body:      core.NewParams("symbol", "BTC-USDT", "side", "buy"),
		Timestamp: fixedTime,
	})

	body := `{"symbol":"BTC-USDT","side":"buy"}`
	assert.Equal(t, body, req.Body)
	assert.Equal(t, "1700000000000POST/api/v1/orders"+body, req.Canonical)
	assert.Equal(t, "https://api.kucoin.com/api/v1/orders", req.URL)
}

func TestQueryString(t *testing.T) {
	assert.Equal(t, "b=2&a=1", QueryString(core.NewParams("b", "2", "a", "1")))
	assert.Equal(t, "a=1&b=2", QueryString(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "q=a+b*%7E%2F", QueryString(core.NewParams("q", "a b*~/")))
	assert.Equal(t, "", QueryString("symbol=x"))
	assert.Equal(t, "", QueryString(nil))
	assert.Equal(t, "n=1000000000000000000000&s=x", QueryString(map[string]any{"s": "x", "n": 1e21}))
}

func TestCheckQuery(t *testing.T) {
	assert.NoError(t, CheckQuery("GET", map[string]any{"a": "1", "b": 2.5, "c": true, "d": nil}))
	assert.NoError(t, CheckQuery("POST", map[string]any{"nested": map[string]any{"x": 1}}))
	assert.NoError(t, CheckQuery("GET", "symbol=x"))
	assert.ErrorIs(t, CheckQuery("", map[string]any{"list": []any{"x"}}), apperrors.ErrInvalidRequest)
	assert.ErrorIs(t, CheckQuery("get", map[string]any{"obj": map[string]any{}}), apperrors.ErrInvalidRequest)
}

func TestPassphraseByKeyVersion(t *testing.T) {
	s := NewSigner(testCreds())
	encoded := base.SignHMAC("secret", "pass")

	tests := []struct {
		version string
		want    string
	}{
		{"1", "pass"},
		{"2", encoded},
		{"3", encoded},
		{"", encoded},
	}
	for _, tt := range tests {
		req := s.Sign(core.RequestDescriptor{Method: "GET", Path: "/p", Timestamp: fixedTime, KeyVersion: tt.version})
		assert.Equal(t, tt.want, req.Headers[HeaderPassphrase], "version %q", tt.version)
	}

	req := s.Sign(core.RequestDescriptor{Method: "GET", Path: "/p", Timestamp: fixedTime})
	assert.Equal(t, DefaultKeyVersion, req.Headers[HeaderKeyVersion])
}

func TestRequiredHeaders(t *testing.T) {
	req := NewSigner(testCreds()).Sign(core.RequestDescriptor{Method: "GET", Path: "/p", Timestamp: fixedTime, KeyVersion: "3"})

	assert.Equal(t, "key", req.Headers[HeaderAPIKey])
	assert.Equal(t, "1700000000000", req.Headers[HeaderTimestamp])
	assert.Equal(t, "3", req.Headers[HeaderKeyVersion])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.NotContains(t, req.Headers, HeaderBrokerName)
	assert.NotContains(t, req.Headers, HeaderPartner)
	assert.NotContains(t, req.Headers, HeaderPartnerSign)
}

func TestPartnerHeaders(t *testing.T) {
	desc := core.RequestDescriptor{Method: "GET", Path: "/p", Timestamp: fixedTime}

	t.Run("partner and secret", func(t *testing.T) {
		creds := testCreds()
		creds.BrokerName = "broker"
		creds.Partner = "partner"
		creds.PartnerSecret = "psecret"
		req := NewSigner(creds).Sign(desc)

		assert.Equal(t, "broker", req.Headers[HeaderBrokerName])
		assert.Equal(t, "partner", req.Headers[HeaderPartner])
		assert.Equal(t, base.SignHMAC("psecret", "1700000000000partnerkey"), req.Headers[HeaderPartnerSign])
	})

	t.Run("partner without secret", func(t *testing.T) {
		creds := testCreds()
		creds.Partner = "partner"
		req := NewSigner(creds).Sign(desc)

		assert.Equal(t, "partner", req.Headers[HeaderPartner])
		assert.NotContains(t, req.Headers, HeaderPartnerSign)
	})

	t.Run("secret without partner", func(t *testing.T) {
		creds := testCreds()
		creds.PartnerSecret = "psecret"
		req := NewSigner(creds).Sign(desc)

		assert.NotContains(t, req.Headers, HeaderPartner)
		assert.NotContains(t, req.Headers, HeaderPartnerSign)
	})
}

func TestExtraHeadersCannotReplaceAuth(t *testing.T) {
	req := NewSigner(testCreds()).Sign(core.RequestDescriptor{
		Method:    "GET",
		Path:      "/p",
		Timestamp: fixedTime,
		Headers:   map[string]string{HeaderSiteType: "australia", HeaderAPIKey: "other"},
	})
	assert.Equal(t, "australia", req.Headers[HeaderSiteType])
	assert.Equal(t, "key", req.Headers[HeaderAPIKey])
}

func TestSignDeterministic(t *testing.T) {
	s := NewSigner(testCreds())
	desc := core.RequestDescriptor{Method: "POST", Path: "/p", Body: `{"a":1}`, Timestamp: fixedTime}
	assert.Equal(t, s.Sign(desc), s.Sign(desc))
}

func TestEmptyCredentials(t *testing.T) {
	req := NewSigner(Credentials{}).Sign(core.RequestDescriptor{Method: "GET", Path: "/p", Timestamp: fixedTime})
	assert.Equal(t, base.SignHMAC("", req.Canonical), req.Signature)
	assert.Equal(t, base.SignHMAC("", ""), req.Headers[HeaderPassphrase])
}
