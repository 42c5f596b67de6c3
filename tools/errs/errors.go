package errs

// Gateway error taxonomy. Codes are stable; messages are operator-facing
// and never sent to clients (a rejected connection only sees the close).
var (
	// ErrRejectedConnection : handshake carried no usable user identity.
	ErrRejectedConnection = NewCodeError(4001, "no valid identity")

	// ErrStore : a durable-store call failed. Callers treat it as
	// best-effort and continue (admission is fail-open, see DESIGN.md).
	ErrStore = NewCodeError(5001, "store operation failed")

	// ErrMalformedPayload : an inbound or buffered payload could not be
	// decoded. Skipped per item, never fatal to the batch.
	ErrMalformedPayload = NewCodeError(4002, "malformed payload")

	// ErrDeliveryPartial : a single recipient connection refused the push
	// (queue full or transport gone). Other recipients are unaffected.
	ErrDeliveryPartial = NewCodeError(5002, "delivery failed for connection")

	// ErrUnknownEvent : inbound event name outside the closed set.
	ErrUnknownEvent = NewCodeError(4003, "unknown event")
)
