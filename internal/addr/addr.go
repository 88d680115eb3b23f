// Package addr implements the dotted-quad/integer address arithmetic the
// rest of the router builds on: parsing and formatting, netmask/length
// conversion, and deriving a neighbor's self- and peer-address from its
// configured link address.
package addr

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Address is an IPv4 address as a 32-bit unsigned integer, big-endian bit
// order (bit 31 is the first octet).
type Address uint32

// ToInt parses a dotted-quad string into an Address.
func ToInt(dotted string) (Address, error) {
	parts := strings.Split(dotted, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("addr: %q is not a dotted quad", dotted)
	}
	var a Address
	for _, p := range parts {
		octet, err := strconv.Atoi(p)
		if err != nil || octet < 0 || octet > 255 {
			return 0, fmt.Errorf("addr: invalid octet %q in %q", p, dotted)
		}
		a = a<<8 | Address(octet)
	}
	return a, nil
}

// ToDotted renders an Address in dotted-quad form.
func (a Address) ToDotted() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

func (a Address) String() string { return a.ToDotted() }

// MaskToLen returns the population count of a contiguous dotted-decimal
// netmask, i.e. the prefix length it represents. Behavior on a
// non-contiguous mask is unspecified (population count is still
// returned; callers that need strict validation should use IsContiguous).
func MaskToLen(mask string) (int, error) {
	m, err := ToInt(mask)
	if err != nil {
		return 0, fmt.Errorf("addr: mask_to_len: %w", err)
	}
	return bits.OnesCount32(uint32(m)), nil
}

// LenToMask renders the dotted form of an n-bit leading netmask.
// n=0 yields "0.0.0.0"; n must be in 0..=32.
func LenToMask(n int) (string, error) {
	if n < 0 || n > 32 {
		return "", fmt.Errorf("addr: len_to_mask: length %d out of range", n)
	}
	var m uint32
	if n > 0 {
		m = ^uint32(0) << (32 - n)
	}
	return Address(m).ToDotted(), nil
}

// IsContiguous reports whether a dotted-decimal mask is a run of leading
// 1-bits followed by trailing 0-bits.
func IsContiguous(mask string) bool {
	m, err := ToInt(mask)
	if err != nil {
		return false
	}
	v := uint32(m)
	// Verify directly that no 0-bit is followed by a 1-bit when scanning
	// MSB to LSB.
	seenZero := false
	for i := 31; i >= 0; i-- {
		bit := (v >> uint(i)) & 1
		if bit == 0 {
			seenZero = true
		} else if seenZero {
			return false
		}
	}
	return true
}

// SelfAddr returns the copy of a neighbor's address with the low octet
// replaced by 1: the address we present to that neighbor on the link.
func SelfAddr(neighbor Address) Address {
	return (neighbor &^ 0xff) | 1
}

// PeerAddr returns the copy of a neighbor's address with the low octet
// replaced by 2: the next-hop we record in the RIB for routes learned
// from that neighbor.
func PeerAddr(neighbor Address) Address {
	return (neighbor &^ 0xff) | 2
}

// Prefix is a (network, length) pair naming a contiguous IPv4 block.
type Prefix struct {
	Network Address
	Length  int
}

// FromDotted builds a canonical Prefix from a dotted network and a
// dotted-decimal netmask.
func FromDotted(network, mask string) (Prefix, error) {
	n, err := ToInt(network)
	if err != nil {
		return Prefix{}, fmt.Errorf("addr: prefix network: %w", err)
	}
	if !IsContiguous(mask) {
		return Prefix{}, fmt.Errorf("addr: non-contiguous netmask %q", mask)
	}
	l, err := MaskToLen(mask)
	if err != nil {
		return Prefix{}, fmt.Errorf("addr: prefix mask: %w", err)
	}
	return Prefix{Network: canonicalNetwork(n, l), Length: l}, nil
}

// canonicalNetwork clears any host bits below the prefix length so two
// prefixes with the same (network, length) always compare equal.
func canonicalNetwork(n Address, length int) Address {
	if length >= 32 {
		return n
	}
	var mask uint32
	if length > 0 {
		mask = ^uint32(0) << (32 - length)
	}
	return Address(uint32(n) & mask)
}

// Netmask renders the prefix's length as a dotted-decimal netmask.
func (p Prefix) Netmask() string {
	m, _ := LenToMask(p.Length)
	return m
}

// Contains reports whether the top p.Length bits of d match the top
// p.Length bits of the prefix's network. Length 0 matches everything.
func (p Prefix) Contains(d Address) bool {
	if p.Length == 0 {
		return true
	}
	shift := 32 - p.Length
	return uint32(d)>>uint(shift) == uint32(p.Network)>>uint(shift)
}

// String renders the prefix as "network/length".
func (p Prefix) String() string {
	return fmt.Sprintf("%s/%d", p.Network.ToDotted(), p.Length)
}
