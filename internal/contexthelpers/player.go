package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const playerAddressContextKey = contextKey("playerAddress")
const requestIDContextKey = contextKey("requestID")

// SetPlayerAddress stores the wallet address the request acts for. Authentication happens upstream.
func SetPlayerAddress(r *http.Request, address string) *http.Request {
	ctx := context.WithValue(r.Context(), playerAddressContextKey, address)
	return r.WithContext(ctx)
}

func PlayerAddress(ctx context.Context) string {
	address, ok := ctx.Value(playerAddressContextKey).(string)
	if !ok {
		return ""
	}

	return address
}

func SetRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDContextKey, id)
	return r.WithContext(ctx)
}

func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}

	return id
}
