package crypto

import (
	"hash/fnv"
	"sync"

	"github.com/riobard/go-bloom"
)

// nonceRing is a sliding-window bloom filter used to reject a replayed
// (session id, nonce) pair, supplementing spec.md §4.9's encrypt/decrypt
// with the anti-replay property the original source does not itself
// provide. Grounded directly on common/antireplay/bloomring.go's
// BloomRing/bloomRing, including its double-FNV hash and slot rotation.
type nonceRing struct {
	slotCapacity int
	slotPosition int
	entryCounter int
	slots        []bloom.Filter
	mu           sync.Mutex
}

const (
	nonceRingSlots    = 10
	nonceRingCapacity = 1 << 20
	nonceRingFPR      = 1e-6
)

func newNonceRing() *nonceRing {
	r := &nonceRing{
		slotCapacity: nonceRingCapacity / nonceRingSlots,
		slots:        make([]bloom.Filter, nonceRingSlots),
	}
	for i := range r.slots {
		r.slots[i] = bloom.New(r.slotCapacity, nonceRingFPR, doubleFNV)
	}
	return r
}

func doubleFNV(b []byte) (uint64, uint64) {
	hx := fnv.New64()
	hx.Write(b)
	x := hx.Sum64()
	hy := fnv.New64a()
	hy.Write(b)
	y := hy.Sum64()
	return x, y
}

// checkAndAdd reports whether key (sessionID||nonce) was already seen. It
// records key regardless, so a concurrent duplicate also gets rejected.
func (r *nonceRing) checkAndAdd(key []byte) (seen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.Test(key) {
			seen = true
			break
		}
	}
	slot := r.slots[r.slotPosition]
	if r.entryCounter >= r.slotCapacity {
		r.slotPosition = (r.slotPosition + 1) % len(r.slots)
		slot = r.slots[r.slotPosition]
		slot.Reset()
		r.entryCounter = 0
	}
	r.entryCounter++
	slot.Add(key)
	return seen
}
