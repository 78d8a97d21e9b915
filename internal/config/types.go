package config

import "encoding/json"

const redacted = "[REDACTED]"

// Secret holds a credential that must never appear in logs or API
// responses. Every formatting and marshaling path yields a placeholder;
// Value returns the real string.
type Secret string

// String implements fmt.Stringer, redacting non-empty values.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString keeps %#v output redacted too.
func (s Secret) GoString() string {
	return "config.Secret(" + redacted + ")"
}

// Value returns the underlying credential. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether a credential was supplied.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON redacts the credential in JSON output.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText redacts the credential in text-based encoders.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the raw credential from YAML and env values.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
