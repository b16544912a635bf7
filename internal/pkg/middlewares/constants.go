package middlewares

const (
	RequestIDHeader = "X-Acid-Request-ID"

	// LocalsKeyRequestID holds the request id as a string in fiber.Ctx#Locals.
	LocalsKeyRequestID = "request_id"

	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyStatusHeader   = "X-Acid-Idempotency"
	IdempotencyKeyLengthLimit = 128

	localsKeyIdempotencyKey = "idempotency_key"

	// localsKeySentryHub is where fibersentry stores the request hub.
	localsKeySentryHub = "sentry-hub"
)
