package config

const redactedSecret = "[REDACTED]"

// Secret is a credential string that redacts itself when printed or marshaled.
// Use Reveal to obtain the value for signing.
type Secret string

// Reveal returns the raw secret value
func (s Secret) Reveal() string {
	return string(s)
}

// IsSet reports whether the secret is non-empty
func (s Secret) IsSet() bool {
	return s != ""
}

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redactedSecret
}

// MarshalYAML redacts non-empty secrets
func (s Secret) MarshalYAML() (interface{}, error) {
	if s == "" {
		return "", nil
	}
	return redactedSecret, nil
}

// MarshalJSON redacts non-empty secrets
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"` + redactedSecret + `"`), nil
}

// GoString keeps %#v from leaking the value
func (s Secret) GoString() string {
	if s == "" {
		return `""`
	}
	return `"` + redactedSecret + `"`
}
