package isis

// Flag octets are modelled as named booleans. Bits without a name are kept
// in Reserved so that a decoded octet always re-encodes to the same value.

func bit(v bool, mask uint8) uint8 {
	if v {
		return mask
	}
	return 0
}

// LSP type block (ISO 10589 9.9).
const (
	lspFlagPartition = 0x80
	lspFlagAttError  = 0x40
	lspFlagAttExp    = 0x20
	lspFlagAttDelay  = 0x10
	lspFlagAttDef    = 0x08
	lspFlagOverload  = 0x04
	lspISTypeMask    = 0x03
)

// LSPFlags is the octet following the LSP checksum.
type LSPFlags struct {
	PartitionRepair bool
	AttachedError   bool
	AttachedExpense bool
	AttachedDelay   bool
	AttachedDefault bool
	Overload        bool
	ISType          uint8 // 1 = L1, 3 = L1L2
}

func LSPFlagsFromByte(b uint8) LSPFlags {
	return LSPFlags{
		PartitionRepair: b&lspFlagPartition != 0,
		AttachedError:   b&lspFlagAttError != 0,
		AttachedExpense: b&lspFlagAttExp != 0,
		AttachedDelay:   b&lspFlagAttDelay != 0,
		AttachedDefault: b&lspFlagAttDef != 0,
		Overload:        b&lspFlagOverload != 0,
		ISType:          b & lspISTypeMask,
	}
}

func (f LSPFlags) Byte() uint8 {
	return bit(f.PartitionRepair, lspFlagPartition) |
		bit(f.AttachedError, lspFlagAttError) |
		bit(f.AttachedExpense, lspFlagAttExp) |
		bit(f.AttachedDelay, lspFlagAttDelay) |
		bit(f.AttachedDefault, lspFlagAttDef) |
		bit(f.Overload, lspFlagOverload) |
		f.ISType&lspISTypeMask
}

// Attached reports whether any ATT bit is set.
func (f LSPFlags) Attached() bool {
	return f.AttachedError || f.AttachedExpense || f.AttachedDelay || f.AttachedDefault
}

// IPv4 prefix control octet (RFC 5305 4.1). The low six bits carry the
// prefix length and are handled by the entry codec.
const (
	ipv4CtlDown     = 0x80
	ipv4CtlSubTLVs  = 0x40
	ipv4CtlLenMask  = 0x3f
	ipv6FlagDown    = 0x80
	ipv6FlagExt     = 0x40
	ipv6FlagSubTLVs = 0x20
	ipv6FlagResMask = 0x1f
)

type ExtIPReachFlags struct {
	Down    bool
	SubTLVs bool
}

// IPv6 prefix flags octet (RFC 5308 2).
type IPv6ReachFlags struct {
	Down     bool
	External bool
	SubTLVs  bool
	Reserved uint8
}

func IPv6ReachFlagsFromByte(b uint8) IPv6ReachFlags {
	return IPv6ReachFlags{
		Down:     b&ipv6FlagDown != 0,
		External: b&ipv6FlagExt != 0,
		SubTLVs:  b&ipv6FlagSubTLVs != 0,
		Reserved: b & ipv6FlagResMask,
	}
}

func (f IPv6ReachFlags) Byte() uint8 {
	return bit(f.Down, ipv6FlagDown) |
		bit(f.External, ipv6FlagExt) |
		bit(f.SubTLVs, ipv6FlagSubTLVs) |
		f.Reserved&ipv6FlagResMask
}

// Prefix-SID flags (RFC 8667 2.1.1).
type PrefixSIDFlags struct {
	Readvertise  bool // R
	NodeSID      bool // N
	NoPHP        bool // P
	ExplicitNull bool // E
	Value        bool // V
	Local        bool // L
	Reserved     uint8
}

func PrefixSIDFlagsFromByte(b uint8) PrefixSIDFlags {
	return PrefixSIDFlags{
		Readvertise:  b&0x80 != 0,
		NodeSID:      b&0x40 != 0,
		NoPHP:        b&0x20 != 0,
		ExplicitNull: b&0x10 != 0,
		Value:        b&0x08 != 0,
		Local:        b&0x04 != 0,
		Reserved:     b & 0x03,
	}
}

func (f PrefixSIDFlags) Byte() uint8 {
	return bit(f.Readvertise, 0x80) |
		bit(f.NodeSID, 0x40) |
		bit(f.NoPHP, 0x20) |
		bit(f.ExplicitNull, 0x10) |
		bit(f.Value, 0x08) |
		bit(f.Local, 0x04) |
		f.Reserved&0x03
}

// Adj-SID flags (RFC 8667 2.2.1).
type AdjSIDFlags struct {
	AddressFamily bool // F
	Backup        bool // B
	Value         bool // V
	Local         bool // L
	Set           bool // S
	Persistent    bool // P
	Reserved      uint8
}

func AdjSIDFlagsFromByte(b uint8) AdjSIDFlags {
	return AdjSIDFlags{
		AddressFamily: b&0x80 != 0,
		Backup:        b&0x40 != 0,
		Value:         b&0x20 != 0,
		Local:         b&0x10 != 0,
		Set:           b&0x08 != 0,
		Persistent:    b&0x04 != 0,
		Reserved:      b & 0x03,
	}
}

func (f AdjSIDFlags) Byte() uint8 {
	return bit(f.AddressFamily, 0x80) |
		bit(f.Backup, 0x40) |
		bit(f.Value, 0x20) |
		bit(f.Local, 0x10) |
		bit(f.Set, 0x08) |
		bit(f.Persistent, 0x04) |
		f.Reserved&0x03
}

// SR Capabilities flags (RFC 8667 3.1).
type SRCapFlags struct {
	MPLSIPv4 bool // I
	MPLSIPv6 bool // V
	Reserved uint8
}

func SRCapFlagsFromByte(b uint8) SRCapFlags {
	return SRCapFlags{
		MPLSIPv4: b&0x80 != 0,
		MPLSIPv6: b&0x40 != 0,
		Reserved: b & 0x3f,
	}
}

func (f SRCapFlags) Byte() uint8 {
	return bit(f.MPLSIPv4, 0x80) | bit(f.MPLSIPv6, 0x40) | f.Reserved&0x3f
}

// Router Capability flags (RFC 7981 2).
type RouterCapFlags struct {
	Scope    bool // S: flood domain-wide
	Down     bool // D: leaked from L2 to L1
	Reserved uint8
}

func RouterCapFlagsFromByte(b uint8) RouterCapFlags {
	return RouterCapFlags{
		Scope:    b&0x01 != 0,
		Down:     b&0x02 != 0,
		Reserved: b & 0xfc,
	}
}

func (f RouterCapFlags) Byte() uint8 {
	return bit(f.Scope, 0x01) | bit(f.Down, 0x02) | f.Reserved&0xfc
}
