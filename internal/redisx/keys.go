package redisx

import "time"

const (
	// Idempotency settle: idem:settle:{idempotency_key} -> transaction_id
	KeyIdemSettle = "idem:settle:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
