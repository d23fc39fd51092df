package isis

// splitSub reads one code/length header from b and bounds the value to the
// declared length. The same framing is used by TLVs and by all three
// sub-TLV namespaces.
func splitSub(b []byte, ctx string) (code uint8, value, rest []byte, err error) {
	if len(b) < 2 {
		return 0, nil, nil, incomplete(ctx+" header", 2, len(b))
	}
	code, n := b[0], int(b[1])
	if 2+n > len(b) {
		return 0, nil, nil, incomplete(ctx+" value", n, len(b)-2)
	}
	return code, b[2 : 2+n], b[2+n:], nil
}

// subTLV is the shape shared by every sub-TLV namespace.
type subTLV interface {
	Code() uint8
	Len() int
	AppendValue(b []byte) []byte
}

// appendSub writes code, the computed length and the value. Values above
// 255 octets make every enclosing TLV too long as well, which the TLV
// encoder reports.
func appendSub(b []byte, s subTLV) []byte {
	b = append(b, s.Code(), byte(s.Len()))
	return s.AppendValue(b)
}

func subsLen[S subTLV](subs []S) int {
	n := 0
	for _, s := range subs {
		n += 2 + s.Len()
	}
	return n
}

func appendSubs[S subTLV](b []byte, subs []S) []byte {
	for _, s := range subs {
		b = appendSub(b, s)
	}
	return b
}

// parseSubs decodes a greedy sub-TLV list from a bounded slice.
func parseSubs[S any](b []byte, ctx string, decode func(code uint8, v []byte) (S, error)) ([]S, error) {
	var out []S
	for len(b) > 0 {
		code, v, rest, err := splitSub(b, ctx)
		if err != nil {
			return nil, err
		}
		s, err := decode(code, v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		b = rest
	}
	return out, nil
}
