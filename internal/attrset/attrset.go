// Package attrset implements immutable sets of attribute indexes.
//
// A Set has no fixed width: attribute indexes can be any non-negative int.
// Sets are comparable with == and can be used directly as map keys.
package attrset

import (
	"encoding/hex"
	"fmt"
	"iter"
	"math/bits"
	"strconv"
	"strings"
)

// Set is an immutable set of 0-based attribute indexes. The zero value is the empty set.
type Set struct {
	// b holds the bitmap little-endian, one bit per attribute, with no trailing zero bytes
	// so that equal sets always have equal representations.
	b string
}

// Empty is the empty attribute set.
var Empty = Set{}

// Of returns the set containing the given attributes.
func Of(attrs ...int) Set {
	var buf []byte
	for _, a := range attrs {
		checkAttr(a)
		i := a >> 3
		if i >= len(buf) {
			buf = append(buf, make([]byte, i+1-len(buf))...)
		}
		buf[i] |= 1 << (a & 7)
	}
	return trim(buf)
}

// Full returns the set {0, 1, ..., n-1}.
func Full(n int) Set {
	if n <= 0 {
		return Empty
	}
	buf := make([]byte, (n+7)>>3)
	for i := range buf {
		buf[i] = 0xff
	}
	if rem := n & 7; rem != 0 {
		buf[len(buf)-1] = byte(1)<<rem - 1
	}
	return Set{b: string(buf)}
}

func checkAttr(a int) {
	if a < 0 {
		panic(fmt.Sprintf("attrset: negative attribute %d", a))
	}
}

func trim(buf []byte) Set {
	for len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return Set{b: string(buf)}
}

// Has reports whether a is in s.
func (s Set) Has(a int) bool {
	if a < 0 {
		return false
	}
	i := a >> 3
	if i >= len(s.b) {
		return false
	}
	return s.b[i]&(1<<(a&7)) != 0
}

// With returns s ∪ {a}.
func (s Set) With(a int) Set {
	checkAttr(a)
	if s.Has(a) {
		return s
	}
	i := a >> 3
	buf := make([]byte, max(len(s.b), i+1))
	copy(buf, s.b)
	buf[i] |= 1 << (a & 7)
	return Set{b: string(buf)}
}

// Without returns s \ {a}.
func (s Set) Without(a int) Set {
	if !s.Has(a) {
		return s
	}
	buf := []byte(s.b)
	buf[a>>3] &^= 1 << (a & 7)
	return trim(buf)
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	long, short := s.b, o.b
	if len(short) > len(long) {
		long, short = short, long
	}
	buf := []byte(long)
	for i := 0; i < len(short); i++ {
		buf[i] |= short[i]
	}
	return Set{b: string(buf)}
}

// Intersect returns s ∩ o.
func (s Set) Intersect(o Set) Set {
	n := min(len(s.b), len(o.b))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = s.b[i] & o.b[i]
	}
	return trim(buf)
}

// Difference returns s \ o.
func (s Set) Difference(o Set) Set {
	buf := []byte(s.b)
	for i := 0; i < len(buf) && i < len(o.b); i++ {
		buf[i] &^= o.b[i]
	}
	return trim(buf)
}

// SubsetOf reports whether every attribute of s is in o.
func (s Set) SubsetOf(o Set) bool {
	if len(s.b) > len(o.b) {
		return false
	}
	for i := 0; i < len(s.b); i++ {
		if s.b[i]&^o.b[i] != 0 {
			return false
		}
	}
	return true
}

// IsEmpty reports whether s has no attributes.
func (s Set) IsEmpty() bool {
	return len(s.b) == 0
}

// Len returns the number of attributes in s.
func (s Set) Len() int {
	n := 0
	for i := 0; i < len(s.b); i++ {
		n += bits.OnesCount8(s.b[i])
	}
	return n
}

// Highest returns the largest attribute in s, or -1 if s is empty.
func (s Set) Highest() int {
	if len(s.b) == 0 {
		return -1
	}
	last := len(s.b) - 1
	return last<<3 + bits.Len8(s.b[last]) - 1
}

// All yields the attributes of s in increasing order.
func (s Set) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < len(s.b); i++ {
			w := s.b[i]
			for w != 0 {
				a := i<<3 + bits.TrailingZeros8(w)
				if !yield(a) {
					return
				}
				w &= w - 1
			}
		}
	}
}

// Slice returns the attributes of s in increasing order.
func (s Set) Slice() []int {
	out := make([]int, 0, s.Len())
	for a := range s.All() {
		out = append(out, a)
	}
	return out
}

// Compare orders sets by size, then lexicographically by their sorted attributes.
// It returns -1, 0 or +1.
func Compare(x, y Set) int {
	if lx, ly := x.Len(), y.Len(); lx != ly {
		if lx < ly {
			return -1
		}
		return 1
	}
	xs, ys := x.Slice(), y.Slice()
	for i := range xs {
		switch {
		case xs[i] < ys[i]:
			return -1
		case xs[i] > ys[i]:
			return 1
		}
	}
	return 0
}

// String formats s as "{0,2,5}".
func (s Set) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for a := range s.All() {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(a))
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalText encodes the bit pattern of s as hex, lowest attributes first.
func (s Set) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString([]byte(s.b))), nil
}

// UnmarshalText decodes a bit pattern produced by MarshalText.
func (s *Set) UnmarshalText(text []byte) error {
	buf, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decoding attribute set %q: %w", text, err)
	}
	*s = trim(buf)
	return nil
}
