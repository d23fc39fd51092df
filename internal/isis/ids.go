package isis

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	SystemIDLen   = 6
	NeighborIDLen = 7
	LSPIDLen      = 8
)

// SystemID is the 6-octet IS-IS system identifier.
type SystemID [SystemIDLen]byte

// NeighborID is a system ID followed by a pseudonode octet. It names an IS
// or a LAN pseudonode, and doubles as the LAN ID of a Hello and the source
// ID of a CSNP/PSNP.
type NeighborID [NeighborIDLen]byte

// LSPID is a neighbor ID followed by an LSP fragment number.
type LSPID [LSPIDLen]byte

func NewNeighborID(sys SystemID, pseudonode uint8) NeighborID {
	var n NeighborID
	copy(n[:], sys[:])
	n[6] = pseudonode
	return n
}

func NewLSPID(sys SystemID, pseudonode, fragment uint8) LSPID {
	var l LSPID
	copy(l[:], sys[:])
	l[6] = pseudonode
	l[7] = fragment
	return l
}

// String renders the dotted form, e.g. 0102.0304.0506.
func (s SystemID) String() string {
	h := hex.EncodeToString(s[:])
	return h[0:4] + "." + h[4:8] + "." + h[8:12]
}

func (n NeighborID) SystemID() SystemID {
	return SystemID(n[:SystemIDLen])
}

func (n NeighborID) Pseudonode() uint8 { return n[6] }

func (n NeighborID) String() string {
	return fmt.Sprintf("%s.%02x", n.SystemID(), n[6])
}

func (l LSPID) NeighborID() NeighborID {
	return NeighborID(l[:NeighborIDLen])
}

func (l LSPID) SystemID() SystemID {
	return SystemID(l[:SystemIDLen])
}

func (l LSPID) Pseudonode() uint8 { return l[6] }

func (l LSPID) Fragment() uint8 { return l[7] }

// String renders the conventional form, e.g. 0102.0304.0506.00-00.
func (l LSPID) String() string {
	return fmt.Sprintf("%s-%02x", l.NeighborID(), l[7])
}

// ParseSystemID accepts the dotted form (0102.0304.0506), the dashed form
// (0102-0304-0506) or 12 bare hex digits.
func ParseSystemID(s string) (SystemID, error) {
	var id SystemID
	h := strings.NewReplacer(".", "", "-", "").Replace(s)
	if len(h) != 2*SystemIDLen {
		return id, fmt.Errorf("isis: invalid system id %q", s)
	}
	if _, err := hex.Decode(id[:], []byte(h)); err != nil {
		return id, fmt.Errorf("isis: invalid system id %q: %w", s, err)
	}
	return id, nil
}

// ParseLSPID accepts 0102.0304.0506.00-00 and the short form
// 0102.0304.0506-00, which implies pseudonode 0.
func ParseLSPID(s string) (LSPID, error) {
	head, frag, ok := strings.Cut(s, "-")
	if !ok || len(frag) != 2 {
		return LSPID{}, fmt.Errorf("isis: invalid lsp id %q", s)
	}
	var pn string
	if parts := strings.Split(head, "."); len(parts) == 4 {
		pn = parts[3]
		head = strings.Join(parts[:3], ".")
	} else {
		pn = "00"
	}
	sys, err := ParseSystemID(head)
	if err != nil {
		return LSPID{}, err
	}
	var tail [2]byte
	if len(pn) != 2 {
		return LSPID{}, fmt.Errorf("isis: invalid lsp id %q", s)
	}
	if _, err := hex.Decode(tail[:], []byte(pn+frag)); err != nil {
		return LSPID{}, fmt.Errorf("isis: invalid lsp id %q: %w", s, err)
	}
	return NewLSPID(sys, tail[0], tail[1]), nil
}
