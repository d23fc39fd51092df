package capture

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/route-beacon/isis-ingester/internal/isis"
)

// LLCHeaderSize is the IEEE 802.2 LLC header (DSAP 0xFE, SSAP 0xFE,
// control 0x03) that precedes IS-IS on broadcast circuits.
const LLCHeaderSize = 3

var llcHeader = []byte{0xfe, 0xfe, 0x03}

// Frame is one collector record with the link-layer framing removed.
type Frame struct {
	PDU    []byte
	HasLLC bool
}

// DecodeFrame extracts the IS-IS PDU from a collector record. The record is
// either a bare PDU or a PDU behind an LLC header.
func DecodeFrame(data []byte, maxPayloadBytes int) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("capture: empty frame")
	}
	if maxPayloadBytes > 0 && len(data) > maxPayloadBytes {
		return Frame{}, fmt.Errorf("capture: frame of %d bytes exceeds max_payload_bytes %d", len(data), maxPayloadBytes)
	}

	f := Frame{PDU: data}
	if bytes.HasPrefix(data, llcHeader) {
		f.PDU = data[LLCHeaderSize:]
		f.HasLLC = true
	}
	if len(f.PDU) == 0 {
		return Frame{}, fmt.Errorf("capture: no PDU after LLC header")
	}
	if f.PDU[0] != isis.Discriminator {
		return Frame{}, fmt.Errorf("capture: payload starts with 0x%02x, not an IS-IS PDU", f.PDU[0])
	}
	return f, nil
}

// CollectorFromKey names the capture point of a record. Keys are
// "<collector>/<interface>"; records without a key are attributed to
// "unknown".
func CollectorFromKey(key []byte) string {
	k := strings.TrimSpace(string(key))
	if k == "" {
		return "unknown"
	}
	return k
}
