package isis

import (
	"encoding/binary"
	"fmt"
)

type SIDKind uint8

const (
	// SIDLabelKind is a 24-bit MPLS label carried in 3 octets.
	SIDLabelKind SIDKind = iota + 1
	// SIDIndexKind is a 32-bit SID index carried in 4 octets.
	SIDIndexKind
)

// SIDLabel is the SID/Label field of the segment routing extensions. The
// kind is decided by the encoded length alone; the V/L flags of the
// enclosing sub-TLV are not consulted.
type SIDLabel struct {
	Kind  SIDKind
	Value uint32
}

func NewLabel(v uint32) SIDLabel { return SIDLabel{Kind: SIDLabelKind, Value: v & 0xffffff} }

func NewIndex(v uint32) SIDLabel { return SIDLabel{Kind: SIDIndexKind, Value: v} }

// DecodeSIDLabel decodes a SID/Label from exactly len(b) octets.
func DecodeSIDLabel(b []byte) (SIDLabel, error) {
	switch len(b) {
	case 3:
		return NewLabel(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])), nil
	case 4:
		return NewIndex(binary.BigEndian.Uint32(b)), nil
	default:
		return SIDLabel{}, malformed("sid/label", "length %d, want 3 or 4", len(b))
	}
}

func (s SIDLabel) IsLabel() bool { return s.Kind == SIDLabelKind }

// Len is 3 for a label and 4 otherwise.
func (s SIDLabel) Len() int {
	if s.Kind == SIDLabelKind {
		return 3
	}
	return 4
}

func (s SIDLabel) AppendTo(b []byte) []byte {
	if s.Kind == SIDLabelKind {
		return appendU24(b, s.Value)
	}
	return binary.BigEndian.AppendUint32(b, s.Value)
}

func (s SIDLabel) String() string {
	if s.Kind == SIDLabelKind {
		return fmt.Sprintf("label %d", s.Value)
	}
	return fmt.Sprintf("index %d", s.Value)
}
