package dog

import (
	"container/list"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p-core/peer"
)

// duplicateFilter is an exact TTL membership set used to decide whether a
// transaction has already been seen. It is the exact variant rather than an
// approximate one (e.g. a cuckoo filter): false positives here would
// silently black-hole a transaction, which is worse than the modest extra
// memory of keeping exact entries around for one TTL window.
//
// It doubles as the tx_id -> origin side table the behaviour's onControl
// uses to resolve a HAVE_TX's cited transaction back to the peer whose
// route should be disabled: both pieces of state share the same entries and
// the same expiry sweep.
type duplicateFilter struct {
	mu  sync.Mutex
	ttl time.Duration

	entries map[string]peer.ID // tx id -> origin
	order   *list.List         // of *expiringEntry, oldest first
}

type expiringEntry struct {
	key     string
	expires time.Time
}

// newDuplicateFilter returns a filter that remembers entries for ttl.
func newDuplicateFilter(ttl time.Duration) *duplicateFilter {
	return &duplicateFilter{
		ttl:     ttl,
		entries: make(map[string]peer.ID),
		order:   list.New(),
	}
}

// insert records id as seen, associated with origin. It reports whether the
// id was already present (i.e. this is a duplicate).
func (f *duplicateFilter) insert(id TransactionId, origin peer.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expireLocked(time.Now())

	k := id.key()
	if _, ok := f.entries[k]; ok {
		return true
	}
	f.entries[k] = origin
	f.order.PushBack(&expiringEntry{key: k, expires: time.Now().Add(f.ttl)})
	return false
}

// originOf returns the origin peer associated with id, if it is still
// within the TTL window.
func (f *duplicateFilter) originOf(id TransactionId) (peer.ID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expireLocked(time.Now())
	p, ok := f.entries[id.key()]
	return p, ok
}

// contains reports whether id is currently tracked, without inserting it.
func (f *duplicateFilter) contains(id TransactionId) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.expireLocked(time.Now())
	_, ok := f.entries[id.key()]
	return ok
}

// len returns the number of currently tracked entries.
func (f *duplicateFilter) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireLocked(time.Now())
	return len(f.entries)
}

// expireLocked removes entries whose TTL has passed. Callers must hold f.mu.
func (f *duplicateFilter) expireLocked(now time.Time) {
	for e := f.order.Front(); e != nil; {
		ee := e.Value.(*expiringEntry)
		if ee.expires.After(now) {
			break
		}
		next := e.Next()
		delete(f.entries, ee.key)
		f.order.Remove(e)
		e = next
	}
}
