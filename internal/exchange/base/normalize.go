package base

import (
	"fmt"
	"strings"

	"exchanges_gateway/internal/core"
	apperrors "exchanges_gateway/pkg/errors"

	"github.com/goccy/go-json"
)

// KuCoinSuccessCode is the business code KuCoin puts in every successful envelope
const KuCoinSuccessCode = "200000"

// IsOK reports whether status is in the 2xx range
func IsOK(status int) bool {
	return status >= 200 && status < 300
}

// Normalize turns a raw response into a Result. Bodies declared as JSON are
// parsed; anything else, including JSON that fails to parse, is kept as text.
func Normalize(raw *core.RawResponse) *core.Result {
	res := &core.Result{
		Status: raw.StatusCode,
		OK:     IsOK(raw.StatusCode),
		Data:   string(raw.Body),
	}

	if strings.Contains(strings.ToLower(raw.ContentType), "application/json") && len(raw.Body) > 0 {
		var parsed any
		if err := json.Unmarshal(raw.Body, &parsed); err == nil {
			res.Data = parsed
		}
	}
	return res
}

// Envelope is a decoded {code, data, msg} business wrapper
type Envelope struct {
	Code string
	Msg  string
	Data any
	Raw  map[string]any
}

// DecodeEnvelope inspects a normalized result for an exchange business
// envelope. A missing body is an EmptyResponseError; a code other than
// successCode is a BusinessError carrying the raw envelope.
func DecodeEnvelope(res *core.Result, successCode string) (*Envelope, error) {
	if res.Data == nil {
		return nil, &apperrors.EmptyResponseError{Status: res.Status}
	}

	obj, ok := res.Data.(map[string]any)
	if !ok {
		if s, isText := res.Data.(string); isText && strings.TrimSpace(s) == "" {
			return nil, &apperrors.EmptyResponseError{Status: res.Status}
		}
		return nil, &apperrors.EmptyResponseError{Status: res.Status, Detail: "body is not a JSON object"}
	}

	env := &Envelope{
		Msg:  stringOf(obj["msg"]),
		Data: obj["data"],
		Raw:  obj,
	}

	// Only a present code that differs fails; an envelope without a code passes.
	if code, present := obj["code"]; present && code != nil {
		env.Code = stringOf(code)
		if env.Code != successCode {
			return nil, &apperrors.BusinessError{
				Status:   res.Status,
				Code:     env.Code,
				Msg:      env.Msg,
				Envelope: obj,
			}
		}
	}

	return env, nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
