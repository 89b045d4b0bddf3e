package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels so
// callers can classify failures with errors.Is without depending on the
// adapter packages.
var (
	// ErrInvalidArgument signals a caller-supplied parameter or payload shape
	// that violates a precondition. Always raised before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransport signals a network-layer failure (DNS, connection refused or
	// reset, timeout). Never retried.
	ErrTransport = errors.New("transport failure")

	// ErrRemote signals a non-success HTTP status from the exchange endpoint.
	// The wrapping error carries the status code and a truncated body preview.
	ErrRemote = errors.New("remote endpoint error")

	// ErrDataIntegrity signals that post-parse validation found unparseable
	// values in required columns. Partially valid batches are never emitted.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrInput signals an unreadable or malformed reconciliation artifact.
	ErrInput = errors.New("unreadable or malformed input artifact")

	// ErrSchema signals a reconciliation artifact whose shape does not match
	// the expected schema (wrong arity, unparseable or unexpected header).
	ErrSchema = errors.New("artifact schema mismatch")

	// ErrArchive signals a failure persisting klines to the archive store.
	ErrArchive = errors.New("kline archive failure")
)
