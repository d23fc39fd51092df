package isis

import (
	"net/netip"
)

// PrefixBytes is the number of octets a prefix of the given length occupies
// on the wire.
func PrefixBytes(bits int) int {
	return (bits + 7) / 8
}

// DecodeIPv4Prefix reads PrefixBytes(bits) octets from b and zero-pads them
// to a full address. It returns the prefix and the number of octets read.
// Host bits inside the last octet are kept as received.
func DecodeIPv4Prefix(b []byte, bits int) (netip.Prefix, int, error) {
	var addr [4]byte
	n, err := decodePrefix(b, bits, addr[:], "ipv4 prefix")
	if err != nil {
		return netip.Prefix{}, 0, err
	}
	return netip.PrefixFrom(netip.AddrFrom4(addr), bits), n, nil
}

// DecodeIPv6Prefix is the 128-bit counterpart of DecodeIPv4Prefix.
func DecodeIPv6Prefix(b []byte, bits int) (netip.Prefix, int, error) {
	var addr [16]byte
	n, err := decodePrefix(b, bits, addr[:], "ipv6 prefix")
	if err != nil {
		return netip.Prefix{}, 0, err
	}
	return netip.PrefixFrom(netip.AddrFrom16(addr), bits), n, nil
}

func decodePrefix(b []byte, bits int, addr []byte, ctx string) (int, error) {
	if bits < 0 || bits > 8*len(addr) {
		return 0, malformed(ctx, "length %d exceeds %d bits", bits, 8*len(addr))
	}
	n := PrefixBytes(bits)
	if n > len(b) {
		return 0, incomplete(ctx, n, len(b))
	}
	copy(addr, b[:n])
	return n, nil
}

// AppendPrefix writes the significant octets of p.
func AppendPrefix(b []byte, p netip.Prefix) []byte {
	bits := p.Bits()
	if bits <= 0 {
		return b
	}
	a := p.Addr()
	if a.Is4() {
		v := a.As4()
		return append(b, v[:PrefixBytes(bits)]...)
	}
	v := a.As16()
	return append(b, v[:PrefixBytes(bits)]...)
}
