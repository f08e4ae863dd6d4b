package wire

import "errors"

// Sentinel errors returned by Encode/Decode. Both are non-fatal to the
// owning session: callers drop the offending frame and log, without
// tearing down the connection.
var (
	// ErrMalformedFrame means the bytes were not valid JSON, or did not
	// structurally match any known envelope shape.
	ErrMalformedFrame = errors.New("wire: malformed frame")

	// ErrNoVariant means a ClientMessage had no recognized variant field set.
	ErrNoVariant = errors.New("wire: no variant set")

	// ErrMultipleVariants means a ClientMessage had more than one variant
	// field set, violating the single-active-variant invariant.
	ErrMultipleVariants = errors.New("wire: multiple variants set")

	// ErrUnexpectedVariant means a decoded ServerMessage had no recognized
	// discriminator field set.
	ErrUnexpectedVariant = errors.New("wire: unexpected variant")
)
