package sales

import (
	"crypto/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const transactionIDPrefix = "trx_"

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewTransactionID returns a time-ordered id: the ULID timestamp carries the
// millisecond, the monotonic entropy disambiguates ids within it.
func NewTransactionID() string {
	return newTransactionIDAt(time.Now())
}

func newTransactionIDAt(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return transactionIDPrefix + ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}

// displayReference is the short numeric reference printed in pre-confirmation
// payloads: the last eight digits of the millisecond clock.
func displayReference(t time.Time) string {
	s := strconv.FormatInt(t.UnixMilli(), 10)
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return s
}
