// Package ctxid attaches a small correlation id to a context.Context so
// that log lines from the same connection or request can be grouped.
//
// Mirrors the teacher's common/ctx + session.ExportIDToError idiom, without
// the protobuf session envelope: AEX's id is a uint32 derived from a
// per-connection uuid (see internal/session).
package ctxid

import "context"

type key struct{}

// WithID returns a context carrying id.
func WithID(ctx context.Context, id uint32) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// FromContext returns the id stored in ctx, or 0 if none.
func FromContext(ctx context.Context) uint32 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(key{}).(uint32); ok {
		return id
	}
	return 0
}
