// Package dcilut implements the two-tier device-color interpolation
// cache: a 256-entry per-channel lookup table that memoizes a composed
// single-channel transform (transfer + calibration + mapping) at 256
// uniformly spaced inputs, optionally backed by a 1024-entry
// direct-mapped hash cache keyed on the full 16-bit input. LUTs are
// interned by fingerprint and reference-counted within a page-scoped
// pool.
package dcilut

import (
	"fmt"

	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/sublink"
)

// TableSize is the number of grid points in the 256-entry table (one per
// possible hi-byte value of a 16-bit input).
const TableSize = 256

// HashCacheSize is the number of entries in the direct-mapped hash cache.
const HashCacheSize = 1024

// These are the Go equivalent of the reference source's
// "DCILUT_assumptions_about_COLORVALUE_have_been_broken!" compile-error
// escape: TableSize and HashCacheSize are only correct for
// colorvalue.Max == 0xFF00 (TableSize-1 grid steps of 0x100 each, and a
// 10-bit hash of a 16-bit input). If colorvalue.Max ever changes in
// either direction, one of these zero-or-negative-length array bounds
// fails to compile.
var _ [int(colorvalue.Max) - 0xFF00]struct{}
var _ [0xFF00 - int(colorvalue.Max)]struct{}

// notSet is the sentinel marking an unpopulated table/cache slot.
const notSet = colorvalue.Value(0xFFFF)

// Composed is the pluggable per-channel transform a LUT memoizes. It is
// exactly a sublink.Transform, under a local name.
type Composed = sublink.Transform

// LUT is one 256-entry interpolation table for a single (channel,
// fingerprint) pair, with an optional hash-cache tier.
type LUT struct {
	fingerprint sublink.Fingerprint
	compose     Composed
	refCount    int

	codes [TableSize]colorvalue.Value

	// NMappedColorants is usually 1; >1 for photoink mappings.
	NMappedColorants int

	// Photoink, when non-nil, fans the single interpolated channel value
	// out to NMappedColorants physical inks. nil for the ordinary (non
	// photoink) case, where NMappedColorants == 1.
	Photoink *sublink.Photoink

	// Contone applies the near-clear replacement fixup to the final
	// (post-photoink-fanout) output, before it reaches the hash cache.
	Contone ContoneMask

	cache *hashCache
}

type hashCache struct {
	input  [HashCacheSize]colorvalue.Value
	output [][HashCacheSize]colorvalue.Value // one row per mapped colorant
}

func newLUT(fp sublink.Fingerprint, compose Composed, nMapped int, useCache bool) *LUT {
	l := &LUT{
		fingerprint:      fp,
		compose:          compose,
		refCount:         1,
		NMappedColorants: nMapped,
	}
	for i := range l.codes {
		l.codes[i] = notSet
	}
	if useCache {
		l.cache = &hashCache{output: make([][HashCacheSize]colorvalue.Value, nMapped)}
		for i := range l.cache.input {
			l.cache.input[i] = notSet
		}
		// Allocation of the hash-cache tier is optional: a caller that
		// fails to provision one (simulated by useCache == false) simply
		// runs without it, at reduced performance. That degraded path is
		// taken by Reserve callers passing useCache == false, not here.
	}
	return l
}

// Fingerprint returns the identity this LUT memoizes.
func (l *LUT) Fingerprint() sublink.Fingerprint { return l.fingerprint }

// RefCount returns the current reference count.
func (l *LUT) RefCount() int { return l.refCount }

// populate evaluates the composed transform at the grid point for hi
// (0-255) and stores it.
func (l *LUT) populate(hi int) colorvalue.Value {
	v := colorvalue.FromFloat(l.compose.Invoke(float32(hi) / 255.0))
	l.codes[hi] = v
	return v
}

func (l *LUT) codeAt(hi int) colorvalue.Value {
	v := l.codes[hi]
	if v == notSet {
		v = l.populate(hi)
	}
	return v
}

// Invoke performs the two-tier interpolation lookup for a 16-bit input v
// on a single-mapped-colorant LUT, matching the reference dci_invoke bit
// for bit: hi_index = v>>8, frac = v&0xFF; if frac==0 the grid point is
// returned directly (this also guards against reading codes[256]); else
// linear interpolation with +128 rounding before the right shift.
func (l *LUT) Invoke(v colorvalue.Value) colorvalue.Value {
	hi := v.HiByte()
	frac := v.LoByte()

	lo := int(l.codeAt(hi))
	if frac == 0 {
		return colorvalue.Value(lo)
	}
	hiVal := int(l.codeAt(hi + 1))

	hiVal *= frac
	lo *= 256 - frac
	return colorvalue.Value((lo + hiVal + 128) >> 8)
}

// InvokeCached performs Invoke but first consults (and then populates)
// the 1024-entry direct-mapped hash cache keyed on the full 16-bit input.
// If no hash cache is installed, it falls back to Invoke directly. It is
// only meaningful for a single-mapped-colorant LUT (NMappedColorants ==
// 1, Photoink == nil); use InvokeAllCached for the general case.
func (l *LUT) InvokeCached(v colorvalue.Value) colorvalue.Value {
	if l.cache == nil {
		return l.Invoke(v)
	}
	key := hashKey(v)
	if l.cache.input[key] == v {
		return l.cache.output[0][key]
	}
	out := l.Invoke(v)
	l.cache.input[key] = v
	l.cache.output[0][key] = out
	return out
}

// InvokeAll performs the table-interpolated lookup and, if Photoink is
// set, fans the result out to NMappedColorants physical inks, then
// applies the contone-mask fixup. This is the slow-path equivalent of
// the reference's dci_invoke followed by guc_interpolatePhotoinkTransform.
func (l *LUT) InvokeAll(v colorvalue.Value) []colorvalue.Value {
	pre := l.Invoke(v)
	if l.Photoink == nil {
		return []colorvalue.Value{l.Contone.Apply(pre)}
	}
	floats := l.Photoink.InvokeAll(pre.ToFloat())
	out := make([]colorvalue.Value, len(floats))
	for i, f := range floats {
		out[i] = l.Contone.Apply(colorvalue.FromFloat(f))
	}
	return out
}

// InvokeAllCached is InvokeAll backed by the hash-cache tier, when
// present: on a hit it returns the previously computed NMappedColorants
// outputs directly, skipping both the table lookup and any photoink
// fan-out.
func (l *LUT) InvokeAllCached(v colorvalue.Value) []colorvalue.Value {
	if l.cache == nil {
		return l.InvokeAll(v)
	}
	key := hashKey(v)
	if l.cache.input[key] == v {
		out := make([]colorvalue.Value, l.NMappedColorants)
		for i := range out {
			out[i] = l.cache.output[i][key]
		}
		return out
	}
	out := l.InvokeAll(v)
	l.cache.input[key] = v
	for i, o := range out {
		l.cache.output[i][key] = o
	}
	return out
}

// hashKey maps a 16-bit input to its hash-cache slot using the top 10
// bits, per spec.md §4.3.
func hashKey(v colorvalue.Value) int {
	return int(v) >> 6 // top 10 bits of a 16-bit value
}

// HasHashCache reports whether l was allocated with a hash-cache tier.
func (l *LUT) HasHashCache() bool { return l.cache != nil }

// ContoneMask, when active, clamps any LUT output at or above Threshold
// to Replacement. This is applied after interpolation and before
// sorting/cache-store, so "near-clear" outputs never produce a
// halftoning hole.
type ContoneMask struct {
	Active      bool
	Threshold   colorvalue.Value
	Replacement colorvalue.Value
}

// Apply clamps v per the contone-mask fixup, if active.
func (c ContoneMask) Apply(v colorvalue.Value) colorvalue.Value {
	if c.Active && v >= c.Threshold {
		return c.Replacement
	}
	return v
}

// Pool interns LUTs by fingerprint within one page's color state: two
// live LUTs in the same pool never share a fingerprint, and a LUT is
// destroyed when its reference count drops to zero. Pool is not safe for
// concurrent use — per spec.md §5, a page's color state is touched only
// by its single interpretation thread.
type Pool struct {
	byFingerprint map[sublink.Fingerprint]*LUT
}

// NewPool returns an empty, page-scoped LUT pool.
func NewPool() *Pool {
	return &Pool{byFingerprint: make(map[sublink.Fingerprint]*LUT)}
}

// Reserve returns the LUT for fp, creating one via compose/nMapped/useCache
// if none exists yet, or incrementing the refcount of an existing one.
// compose, nMapped and useCache are only consulted on a genuine miss — an
// existing LUT's identity is fp alone, per invariant 1 in spec.md §3.
func (p *Pool) Reserve(fp sublink.Fingerprint, compose Composed, nMapped int, useCache bool) *LUT {
	if l, ok := p.byFingerprint[fp]; ok {
		l.refCount++
		return l
	}
	l := newLUT(fp, compose, nMapped, useCache)
	p.byFingerprint[fp] = l
	return l
}

// Release decrements l's reference count, removing it from the pool and
// returning true when the count reaches zero.
func (p *Pool) Release(l *LUT) bool {
	l.refCount--
	if l.refCount > 0 {
		return false
	}
	if l.refCount < 0 {
		panic(fmt.Sprintf("dcilut: Release called on LUT %v with refCount already zero", l.fingerprint))
	}
	delete(p.byFingerprint, l.fingerprint)
	return true
}

// Len reports how many distinct fingerprints are currently interned.
func (p *Pool) Len() int { return len(p.byFingerprint) }

// AllFingerprintsUnique is a debug/test helper asserting invariant 4 of
// spec.md §3 (trivially true for a map-backed pool, but kept explicit so
// tests can assert it as a named property rather than an implementation
// detail of the backing store).
func (p *Pool) AllFingerprintsUnique() bool {
	seen := make(map[sublink.Fingerprint]bool, len(p.byFingerprint))
	for fp := range p.byFingerprint {
		if seen[fp] {
			return false
		}
		seen[fp] = true
	}
	return true
}
