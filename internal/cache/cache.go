package cache

import "context"

// SessionCache holds serialized session read payloads with a TTL. The
// ingestion coordinator and session finalizer invalidate on every mutation,
// so the TTL is a backstop, not the consistency mechanism. Implementations
// must be best-effort: a cache failure never fails the request.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) ([]byte, bool)
	Set(ctx context.Context, sessionID string, payload []byte)
	Invalidate(ctx context.Context, sessionID string)
}
