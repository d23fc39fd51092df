package isis

// Sub-TLV codes valid inside a Router Capability TLV.
const (
	CapSubSRCapability uint8 = 2
	CapSubSRAlgorithm  uint8 = 19
	CapSubSRLocalBlock uint8 = 22
	CapSubNodeMSD      uint8 = 23
)

// sidLabelSubType is the SID/Label sub-TLV nested in SR range descriptors.
const sidLabelSubType uint8 = 1

// CapSubTLV is a sub-TLV of the Router Capability TLV.
type CapSubTLV interface {
	Code() uint8
	Len() int
	AppendValue(b []byte) []byte
	capSub()
}

// SRRange is one SRGB or SRLB descriptor: a 24-bit range size and the
// first SID/Label of the block.
type SRRange struct {
	Range uint32
	SID   SIDLabel
}

func (r SRRange) len() int { return 3 + 2 + r.SID.Len() }

func (r SRRange) appendTo(b []byte) []byte {
	b = appendU24(b, r.Range)
	b = append(b, sidLabelSubType, byte(r.SID.Len()))
	return r.SID.AppendTo(b)
}

// SRCapabilitySub advertises the SR global block.
type SRCapabilitySub struct {
	Flags  SRCapFlags
	Ranges []SRRange
}

type SRAlgorithmSub struct {
	Algorithms []uint8
}

// SRLocalBlockSub advertises the SR local block.
type SRLocalBlockSub struct {
	Flags  uint8
	Ranges []SRRange
}

// NodeMSDSub carries a node maximum SID depth.
type NodeMSDSub struct {
	Flags uint8
	Depth uint8
}

type UnknownCapSub struct {
	Type  uint8
	Value []byte
}

func (*SRCapabilitySub) Code() uint8 { return CapSubSRCapability }
func (*SRAlgorithmSub) Code() uint8  { return CapSubSRAlgorithm }
func (*SRLocalBlockSub) Code() uint8 { return CapSubSRLocalBlock }
func (*NodeMSDSub) Code() uint8      { return CapSubNodeMSD }
func (s *UnknownCapSub) Code() uint8 { return s.Type }

func (s *SRCapabilitySub) Len() int { return 1 + rangesLen(s.Ranges) }
func (s *SRAlgorithmSub) Len() int  { return len(s.Algorithms) }
func (s *SRLocalBlockSub) Len() int { return 1 + rangesLen(s.Ranges) }
func (*NodeMSDSub) Len() int        { return 2 }
func (s *UnknownCapSub) Len() int   { return len(s.Value) }

func (s *SRCapabilitySub) AppendValue(b []byte) []byte {
	return appendRanges(append(b, s.Flags.Byte()), s.Ranges)
}

func (s *SRAlgorithmSub) AppendValue(b []byte) []byte { return append(b, s.Algorithms...) }

func (s *SRLocalBlockSub) AppendValue(b []byte) []byte {
	return appendRanges(append(b, s.Flags), s.Ranges)
}

func (s *NodeMSDSub) AppendValue(b []byte) []byte    { return append(b, s.Flags, s.Depth) }
func (s *UnknownCapSub) AppendValue(b []byte) []byte { return append(b, s.Value...) }

func (*SRCapabilitySub) capSub() {}
func (*SRAlgorithmSub) capSub()  {}
func (*SRLocalBlockSub) capSub() {}
func (*NodeMSDSub) capSub()      {}
func (*UnknownCapSub) capSub()   {}

func rangesLen(rs []SRRange) int {
	n := 0
	for _, r := range rs {
		n += r.len()
	}
	return n
}

func appendRanges(b []byte, rs []SRRange) []byte {
	for _, r := range rs {
		b = r.appendTo(b)
	}
	return b
}

func parseRanges(b []byte, ctx string) ([]SRRange, error) {
	var out []SRRange
	r := newReader(b, ctx)
	for !r.empty() {
		size, err := r.u24()
		if err != nil {
			return nil, err
		}
		// The sub-TLV type octet is not checked; only the SID/Label
		// sub-TLV is defined here.
		if _, err := r.u8(); err != nil {
			return nil, err
		}
		n, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		sid, err := DecodeSIDLabel(v)
		if err != nil {
			return nil, err
		}
		out = append(out, SRRange{Range: size, SID: sid})
	}
	return out, nil
}

// ParseCapSubs decodes the sub-TLV block of a Router Capability TLV.
func ParseCapSubs(b []byte) ([]CapSubTLV, error) {
	return parseSubs(b, "capability sub-tlv", decodeCapSub)
}

func decodeCapSub(code uint8, v []byte) (CapSubTLV, error) {
	switch code {
	case CapSubSRCapability:
		if len(v) < 1 {
			return nil, incomplete("sr capability", 1, 0)
		}
		rs, err := parseRanges(v[1:], "sr capability")
		if err != nil {
			return nil, err
		}
		return &SRCapabilitySub{Flags: SRCapFlagsFromByte(v[0]), Ranges: rs}, nil
	case CapSubSRAlgorithm:
		return &SRAlgorithmSub{Algorithms: clone(v)}, nil
	case CapSubSRLocalBlock:
		if len(v) < 1 {
			return nil, incomplete("sr local block", 1, 0)
		}
		rs, err := parseRanges(v[1:], "sr local block")
		if err != nil {
			return nil, err
		}
		return &SRLocalBlockSub{Flags: v[0], Ranges: rs}, nil
	case CapSubNodeMSD:
		if len(v) != 2 {
			return nil, malformed("node msd", "length %d, want 2", len(v))
		}
		return &NodeMSDSub{Flags: v[0], Depth: v[1]}, nil
	default:
		return &UnknownCapSub{Type: code, Value: clone(v)}, nil
	}
}
