// Package session attaches a correlation id to each accepted connection so
// log lines from the same socket can be grouped, the way the teacher's
// common/session package stamps a session id onto every proxied connection
// for correlation in logs (session.ExportIDToError).
//
// AEX generates a uuid per connection (github.com/google/uuid, the same
// library the teacher uses for ad-hoc identifiers — see monitor/util.go's
// uuid.New()) and folds it down to a uint32 for internal/ctxid, which
// internal/errs reads back out to prefix log lines.
package session

import (
	"context"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/free-web-movement/aex/internal/ctxid"
)

// ID is a per-connection correlation identifier.
type ID struct {
	UUID uuid.UUID
}

// New mints a fresh correlation id.
func New() ID {
	return ID{UUID: uuid.New()}
}

func (id ID) String() string {
	return id.UUID.String()
}

// shortID folds the uuid down to a non-zero uint32 for ctxid, which only
// needs enough entropy to disambiguate concurrently-logged connections.
func (id ID) shortID() uint32 {
	h := fnv.New32a()
	_, _ = h.Write(id.UUID[:])
	v := h.Sum32()
	if v == 0 {
		v = 1
	}
	return v
}

// WithContext returns a context carrying id for internal/errs to pick up.
func (id ID) WithContext(ctx context.Context) context.Context {
	return ctxid.WithID(ctx, id.shortID())
}
