package types

const redactedPlaceholder = "[REDACTED]"

var redactedJSON = []byte(`"` + redactedPlaceholder + `"`)

// SecretString wraps sensitive configuration values such as database
// connection strings so they cannot leak through logging or serialization.
type SecretString string

// String returns a redacted placeholder instead of the raw value. Invoked by
// fmt and by slog when the value is logged.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value. Callers should be limited to the
// points where the real value is required, such as opening the database pool.
func (s SecretString) Unmask() string {
	return string(s)
}
