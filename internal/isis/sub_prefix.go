package isis

// Sub-TLV codes valid inside a prefix reachability entry.
const (
	PrefixSubPrefixSID uint8 = 3
)

// PrefixSubTLV is a sub-TLV of an IPv4/IPv6 prefix reachability entry.
type PrefixSubTLV interface {
	Code() uint8
	Len() int
	AppendValue(b []byte) []byte
	prefixSub()
}

type PrefixSIDSub struct {
	Flags     PrefixSIDFlags
	Algorithm uint8
	SID       SIDLabel
}

type UnknownPrefixSub struct {
	Type  uint8
	Value []byte
}

func (*PrefixSIDSub) Code() uint8       { return PrefixSubPrefixSID }
func (s *UnknownPrefixSub) Code() uint8 { return s.Type }

func (s *PrefixSIDSub) Len() int     { return 2 + s.SID.Len() }
func (s *UnknownPrefixSub) Len() int { return len(s.Value) }

func (s *PrefixSIDSub) AppendValue(b []byte) []byte {
	b = append(b, s.Flags.Byte(), s.Algorithm)
	return s.SID.AppendTo(b)
}

func (s *UnknownPrefixSub) AppendValue(b []byte) []byte { return append(b, s.Value...) }

func (*PrefixSIDSub) prefixSub()     {}
func (*UnknownPrefixSub) prefixSub() {}

// ParsePrefixSubs decodes the sub-TLV block of a prefix entry.
func ParsePrefixSubs(b []byte) ([]PrefixSubTLV, error) {
	return parseSubs(b, "prefix sub-tlv", decodePrefixSub)
}

func decodePrefixSub(code uint8, v []byte) (PrefixSubTLV, error) {
	switch code {
	case PrefixSubPrefixSID:
		if len(v) < 2 {
			return nil, incomplete("prefix-sid", 2, len(v))
		}
		sid, err := DecodeSIDLabel(v[2:])
		if err != nil {
			return nil, err
		}
		return &PrefixSIDSub{Flags: PrefixSIDFlagsFromByte(v[0]), Algorithm: v[1], SID: sid}, nil
	default:
		return &UnknownPrefixSub{Type: code, Value: clone(v)}, nil
	}
}
