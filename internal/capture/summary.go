package capture

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/route-beacon/isis-ingester/internal/isis"
)

// Summary is the flat view of a decoded packet that is stored alongside the
// raw bytes and printed by the debugging tools.
type Summary struct {
	PDUType     string            `json:"pdu_type"`
	Level       int               `json:"level,omitempty"`
	SourceID    string            `json:"source_id,omitempty"`
	LSPID       string            `json:"lsp_id,omitempty"`
	SeqNum      uint32            `json:"seq_num,omitempty"`
	Lifetime    uint16            `json:"lifetime,omitempty"`
	Checksum    uint16            `json:"checksum,omitempty"`
	Hostname    string            `json:"hostname,omitempty"`
	Length      int               `json:"length"`
	TLVCodes    []int32           `json:"tlv_codes"`
	UnknownTLVs map[string]string `json:"unknown_tlvs,omitempty"`
}

func Summarize(pkt *isis.Packet) Summary {
	s := Summary{
		PDUType:  pkt.PDUType.String(),
		Level:    int(pkt.PDUType.Level()),
		Length:   pkt.Len(),
		TLVCodes: []int32{},
	}

	switch p := pkt.PDU.(type) {
	case *isis.Hello:
		s.SourceID = p.SourceID.String()
	case *isis.P2PHello:
		s.SourceID = p.SourceID.String()
	case *isis.LSP:
		s.SourceID = p.LSPID.SystemID().String()
		s.LSPID = p.LSPID.String()
		s.SeqNum = p.SeqNum
		s.Lifetime = p.Lifetime
		s.Checksum = p.Checksum
	case *isis.CSNP:
		s.SourceID = p.SourceID.String()
	case *isis.PSNP:
		s.SourceID = p.SourceID.String()
	}

	for _, t := range pkt.PDU.TLVList() {
		s.TLVCodes = append(s.TLVCodes, int32(t.Type()))
		switch v := t.(type) {
		case *isis.HostnameTLV:
			s.Hostname = v.Hostname
		case *isis.UnknownTLV:
			if s.UnknownTLVs == nil {
				s.UnknownTLVs = make(map[string]string)
			}
			// Repeated codes are concatenated.
			code := strconv.Itoa(int(v.Code))
			s.UnknownTLVs[code] += hex.EncodeToString(v.Value)
		}
	}
	return s
}

// VerifyRoundTrip re-encodes pkt and compares the result with the bytes it
// was decoded from.
func VerifyRoundTrip(pkt *isis.Packet, raw []byte) error {
	enc, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("capture: re-encode: %w", err)
	}
	if !bytes.Equal(enc, raw) {
		return fmt.Errorf("capture: re-encoded %d bytes differ from %d input bytes", len(enc), len(raw))
	}
	return nil
}

// ErrorReason maps a decode error to a low-cardinality metric label.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, isis.ErrBadDiscriminator):
		return "discriminator"
	case errors.Is(err, isis.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, isis.ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
