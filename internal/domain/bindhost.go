package domain

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net/netip"
)

// BindHostNet is the configured address range bind hosts are drawn from.
type BindHostNet struct {
	prefix netip.Prefix
}

// ParseBindHostNet parses a CIDR prefix. Prefixes with more than 64 host bits
// are rejected; nothing realistic needs them and it keeps the offset math in a
// single word.
func ParseBindHostNet(cidr string) (BindHostNet, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return BindHostNet{}, fmt.Errorf("parse bind host net: %w", err)
	}
	if prefix.Addr().BitLen()-prefix.Bits() > 64 {
		return BindHostNet{}, fmt.Errorf("bind host net %s: more than 64 host bits", cidr)
	}
	return BindHostNet{prefix: prefix.Masked()}, nil
}

// Size returns the number of assignable addresses in the range. For IPv4
// prefixes wider than /31 the network and broadcast addresses are excluded.
func (n BindHostNet) Size() uint64 {
	hostBits := n.prefix.Addr().BitLen() - n.prefix.Bits()
	if hostBits == 64 {
		return ^uint64(0)
	}
	size := uint64(1) << hostBits
	if n.skipEdges() {
		size -= 2
	}
	return size
}

func (n BindHostNet) skipEdges() bool {
	return n.prefix.Addr().Is4() && n.prefix.Bits() < 31
}

// Random draws a uniformly random assignable address from the range.
func (n BindHostNet) Random() netip.Addr {
	offset := rand.Uint64N(n.Size())
	if n.skipEdges() {
		offset++
	}
	return n.addrAt(offset)
}

func (n BindHostNet) addrAt(offset uint64) netip.Addr {
	base := n.prefix.Addr()
	if base.Is4() {
		a4 := base.As4()
		v := binary.BigEndian.Uint32(a4[:]) + uint32(offset)
		binary.BigEndian.PutUint32(a4[:], v)
		return netip.AddrFrom4(a4)
	}
	a16 := base.As16()
	low := binary.BigEndian.Uint64(a16[8:])
	binary.BigEndian.PutUint64(a16[8:], low+offset)
	return netip.AddrFrom16(a16)
}

// String returns the CIDR form of the range.
func (n BindHostNet) String() string {
	return n.prefix.String()
}
