package history

import "crypto/sha256"

// ComputeEventID computes the SHA256 hash of the IS-IS PDU bytes.
// The hash covers the PDU only, not the LLC header or the record key, so the
// same PDU seen by two collectors deduplicates to one event.
// Returns a 32-byte digest suitable for BYTEA storage.
func ComputeEventID(pdu []byte) []byte {
	h := sha256.Sum256(pdu)
	return h[:]
}
