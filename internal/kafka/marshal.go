package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/kasir-till/internal/sales"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeEnvelope(b []byte) (sales.Envelope, error) {
	var env sales.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return sales.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Unwrap memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
