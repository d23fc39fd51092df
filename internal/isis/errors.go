package isis

import (
	"errors"
	"fmt"
)

var (
	// ErrBadDiscriminator is returned when the first octet of a packet is not
	// the IS-IS intradomain routing protocol discriminator.
	ErrBadDiscriminator = errors.New("isis: bad discriminator")

	// ErrIncomplete matches every *IncompleteError.
	ErrIncomplete = errors.New("isis: incomplete")

	// ErrMalformed matches every *MalformedError.
	ErrMalformed = errors.New("isis: malformed")

	// ErrValueTooLong is returned on encode when a TLV value does not fit its
	// 8-bit length field or a PDU does not fit its 16-bit length field.
	ErrValueTooLong = errors.New("isis: value too long")
)

// IncompleteError reports that a fixed-width field or a declared TLV/sub-TLV
// length needs more bytes than the enclosing container holds.
type IncompleteError struct {
	Context string
	Needed  int
	Have    int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s truncated (need %d bytes, have %d)", e.Context, e.Needed, e.Have)
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// MalformedError reports structurally invalid data, as opposed to data that
// is merely short.
type MalformedError struct {
	Context string
	Reason  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Context, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func incomplete(context string, needed, have int) error {
	return &IncompleteError{Context: context, Needed: needed, Have: have}
}

func malformed(context, format string, args ...any) error {
	return &MalformedError{Context: context, Reason: fmt.Sprintf(format, args...)}
}
