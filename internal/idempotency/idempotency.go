// Package idempotency replays previously stored responses for retried
// mutating requests. A caller supplies an idempotency key; the first
// response under (user, key, endpoint) is persisted and returned verbatim
// for any retry.
package idempotency

import "context"

type Store interface {
	GetIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string) (int, map[string]any, bool, error)
	SaveIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error
}

// Replay looks up a stored response. An empty key disables idempotency for
// the request.
func Replay(ctx context.Context, st Store, userID, idempotencyKey, endpoint string) (int, map[string]any, bool, error) {
	if idempotencyKey == "" {
		return 0, nil, false, nil
	}
	status, body, found, err := st.GetIdempotencyRecord(ctx, userID, idempotencyKey, endpoint)
	if err != nil {
		return 0, nil, false, err
	}
	if !found {
		return 0, nil, false, nil
	}
	return status, body, true, nil
}

// Save persists a response for later replay. A no-op without a key.
func Save(ctx context.Context, st Store, userID, idempotencyKey, endpoint string, status int, response map[string]any) error {
	if idempotencyKey == "" {
		return nil
	}
	return st.SaveIdempotencyRecord(ctx, userID, idempotencyKey, endpoint, status, response)
}
