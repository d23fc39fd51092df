package isis

import (
	"fmt"
)

// TLV codes.
const (
	TLVAreaAddr           uint8 = 1
	TLVISNeighbor         uint8 = 6
	TLVPadding            uint8 = 8
	TLVLSPEntries         uint8 = 9
	TLVExtISReach         uint8 = 22
	TLVProtocolsSupported uint8 = 129
	TLVIPv4IfAddr         uint8 = 132
	TLVTERouterID         uint8 = 134
	TLVExtIPReach         uint8 = 135
	TLVHostname           uint8 = 137
	TLVIPv6TERouterID     uint8 = 140
	TLVIPv6IfAddr         uint8 = 232
	TLVIPv6GlobalIfAddr   uint8 = 233
	TLVMTIPReach          uint8 = 235
	TLVIPv6Reach          uint8 = 236
	TLVMTIPv6Reach        uint8 = 237
	TLVRouterCap          uint8 = 242
)

// maxValueLen is the largest value an 8-bit length field can describe.
const maxValueLen = 255

// TLV is one type/length/value element of a PDU body. Len is the length of
// the value only and is always computed from content.
type TLV interface {
	Type() uint8
	Len() int
	AppendValue(b []byte) []byte
}

// UnknownTLV keeps the raw value of a TLV this package does not model.
type UnknownTLV struct {
	Code  uint8
	Value []byte
}

func (t *UnknownTLV) Type() uint8                 { return t.Code }
func (t *UnknownTLV) Len() int                    { return len(t.Value) }
func (t *UnknownTLV) AppendValue(b []byte) []byte { return append(b, t.Value...) }

// ParseTLV decodes the first TLV of b and returns it with the remaining
// bytes.
func ParseTLV(b []byte) (TLV, []byte, error) {
	t, rest, err := parseTLV(b)
	if err != nil {
		return nil, nil, fmt.Errorf("isis: %w", err)
	}
	return t, rest, nil
}

// ParseTLVs decodes TLVs until b is exhausted. A TLV whose declared length
// runs past the end of b stops decoding with an error.
func ParseTLVs(b []byte) ([]TLV, error) {
	tlvs, err := parseTLVs(b)
	if err != nil {
		return nil, fmt.Errorf("isis: %w", err)
	}
	return tlvs, nil
}

func parseTLV(b []byte) (TLV, []byte, error) {
	code, v, rest, err := splitSub(b, "tlv")
	if err != nil {
		return nil, nil, err
	}
	t, err := decodeTLV(code, v)
	if err != nil {
		return nil, nil, fmt.Errorf("tlv %d: %w", code, err)
	}
	return t, rest, nil
}

func parseTLVs(b []byte) ([]TLV, error) {
	var tlvs []TLV
	for len(b) > 0 {
		t, rest, err := parseTLV(b)
		if err != nil {
			return nil, err
		}
		tlvs = append(tlvs, t)
		b = rest
	}
	return tlvs, nil
}

func decodeTLV(code uint8, v []byte) (TLV, error) {
	switch code {
	case TLVAreaAddr:
		return decodeAreaAddr(v)
	case TLVISNeighbor:
		return decodeISNeighbor(v)
	case TLVPadding:
		return &PaddingTLV{Data: clone(v)}, nil
	case TLVLSPEntries:
		return decodeLSPEntries(v)
	case TLVExtISReach:
		return decodeExtISReach(v)
	case TLVProtocolsSupported:
		return &ProtocolsSupportedTLV{NLPIDs: clone(v)}, nil
	case TLVIPv4IfAddr:
		return decodeIPv4IfAddr(v)
	case TLVTERouterID:
		return decodeTERouterID(v)
	case TLVExtIPReach:
		entries, err := parseIPv4Entries(v)
		if err != nil {
			return nil, err
		}
		return &ExtIPReachTLV{Entries: entries}, nil
	case TLVHostname:
		return decodeHostname(v), nil
	case TLVIPv6TERouterID:
		return decodeIPv6TERouterID(v)
	case TLVIPv6IfAddr:
		addrs, err := decodeIPv6List(v, "ipv6 interface address")
		if err != nil {
			return nil, err
		}
		return &IPv6IfAddrTLV{Addrs: addrs}, nil
	case TLVIPv6GlobalIfAddr:
		addrs, err := decodeIPv6List(v, "ipv6 global interface address")
		if err != nil {
			return nil, err
		}
		return &IPv6GlobalIfAddrTLV{Addrs: addrs}, nil
	case TLVMTIPReach:
		return decodeMTIPReach(v)
	case TLVIPv6Reach:
		entries, err := parseIPv6Entries(v)
		if err != nil {
			return nil, err
		}
		return &IPv6ReachTLV{Entries: entries}, nil
	case TLVMTIPv6Reach:
		return decodeMTIPv6Reach(v)
	case TLVRouterCap:
		return decodeRouterCap(v)
	default:
		return &UnknownTLV{Code: code, Value: clone(v)}, nil
	}
}

// validator is implemented by TLVs holding fields that are wider in Go
// than on the wire. Such values are rejected rather than truncated.
type validator interface {
	validate() error
}

// AppendTLV writes the type, the computed length and the value of t.
func AppendTLV(b []byte, t TLV) ([]byte, error) {
	if v, ok := t.(validator); ok {
		if err := v.validate(); err != nil {
			return b, fmt.Errorf("tlv %d: %w", t.Type(), err)
		}
	}
	n := t.Len()
	if n > maxValueLen {
		return b, fmt.Errorf("%w: tlv %d value is %d bytes", ErrValueTooLong, t.Type(), n)
	}
	b = append(b, t.Type(), byte(n))
	return t.AppendValue(b), nil
}

// AppendTLVs writes every TLV of the list in order.
func AppendTLVs(b []byte, tlvs []TLV) ([]byte, error) {
	var err error
	for _, t := range tlvs {
		if b, err = AppendTLV(b, t); err != nil {
			return b, err
		}
	}
	return b, nil
}

// TLVsLen is the encoded size of a TLV list, headers included.
func TLVsLen(tlvs []TLV) int {
	n := 0
	for _, t := range tlvs {
		n += 2 + t.Len()
	}
	return n
}
