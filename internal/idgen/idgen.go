// Package idgen mints the prefixed, time-sortable identifiers used for
// order numbers, ledger entry ids, and transaction ids (spec §3, §6
// Uniqueness). IDs are ULIDs so statements and journals read back in
// generation order without a separate sequence column.
package idgen

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a bare ULID string.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// WithPrefix returns prefix+ULID, e.g. "ORD-01HZY..." (spec §3 Order.orderNo,
// §3 LedgerEntry.entryId, SPEC_FULL §3 Transaction.transactionId).
func WithPrefix(prefix string) string {
	return prefix + New()
}
