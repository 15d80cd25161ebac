// Package overprint implements the overprint decision engine (spec.md
// component C5): given a color's values and the job's overprint
// settings, it decides whether overprinting applies at all and, if so,
// which device colorants should knock out versus overprint.
//
// This is a direct port of op_allow_implicit, op_colorant_in_spotlist
// and op_decide_overprints from the reference device-code link. The
// original functions walk a CLINK chain and a raster style's colorant
// mapping tables directly; here those lookups are pushed onto the
// caller as plain values or small callback funcs, since this module
// has no CLINK chain or raster style of its own.
package overprint

import "github.com/inkrip/devicecode/internal/colorant"

// ColorType distinguishes the handful of paint operations overprinting
// treats differently.
type ColorType int

const (
	Fill ColorType = iota
	Stroke
	Vignette
	Image
	Shfill
	ShfillIndexedBase
	Other
)

// ColorSpaceID is the small subset of PostScript/PDF color space kinds
// that op_allow_implicit distinguishes.
type ColorSpaceID int

const (
	SpaceDeviceGray ColorSpaceID = iota
	SpaceDeviceCMYK
	SpaceDeviceN
	SpaceSeparation
	SpaceIndexed
	SpaceICCBased
	SpaceOther
)

// AllowImplicitParams bundles op_allow_implicit's inputs. BaseSpace is
// only consulted when JobColorSpace is SpaceIndexed: the reference
// walks the CLINK chain past the index lookup to the space it indexes
// into (following a further Indexed link if the base is itself
// Indexed); callers resolve that chain themselves and pass the
// terminal concrete space here.
type AllowImplicitParams struct {
	ColorType            ColorType
	JobColorSpace         ColorSpaceID
	BaseSpace             ColorSpaceID // meaningful only if JobColorSpace == SpaceIndexed
	OverprintMode         bool
	OverprintGray         bool
	OverprintICCBased     bool
	NColorants            int  // colorant count of the head link (for the ICCBased 4-colorant test)
	MatchingICCProfiles   bool
}

// AllowImplicit reports whether implicit overprinting (no explicit
// setoverprint request, purely a consequence of a 0-valued colorant)
// is permitted for this paint, per op_allow_implicit.
func AllowImplicit(p AllowImplicitParams) bool {
	if !p.OverprintMode {
		return false
	}
	if p.ColorType != Fill && p.ColorType != Stroke && p.ColorType != Vignette {
		return false
	}

	space := p.JobColorSpace
	if space == SpaceDeviceN || space == SpaceSeparation {
		// With spots, the user has already chosen what's overprinted.
		return false
	}
	if space == SpaceIndexed {
		space = p.BaseSpace
	}

	switch space {
	case SpaceDeviceGray:
		return p.OverprintGray
	case SpaceDeviceCMYK:
		return true
	case SpaceICCBased:
		return p.OverprintICCBased && p.NColorants == 4 && p.MatchingICCProfiles
	default:
		return false
	}
}

// ColorantInSpotlist reports whether ci, one of the final device
// colorants, also appears in the original DeviceN/Separation space the
// color was converted from (or, failing that, in that space's inverse
// mapping via InverseColorant — the photoink "Photo Cyan" matches
// "Cyan" case). spotlist is the original space's colorant list;
// inverseColorant resolves a device colorant to its photoink source,
// returning (0, false) when there is none.
func ColorantInSpotlist(ci int32, spotlist []int32, inverseColorant func(int32) (int32, bool)) bool {
	for _, sc := range spotlist {
		if ci == sc {
			return true
		}
	}
	if inv, ok := inverseColorant(ci); ok {
		for _, sc := range spotlist {
			if inv == sc {
				return true
			}
		}
	}
	return false
}

// DecideParams bundles op_decide_overprints' inputs. All per-colorant
// slices are indexed by input (nominal, pre-photoink-fanout) colorant
// position and have length NColorants.
type DecideParams struct {
	NColorants int
	// ColorValues holds the input color's component values, in the same
	// units as OpColorMin/OpColorMax below (i.e. already oriented for
	// additive vs. subtractive, pre-transfer-function).
	ColorValues []float32
	Additive    bool // selects opColorMin/opColorMax

	OverprintsEnabled bool
	SetOverprint      bool
	OpDisabled        bool // per-link override (the reference's OP_DISABLED bit)
	ColorType         ColorType
	Compositing       bool // fCompositing: back-end chains never overprint here

	BlackPosition        int  // index of the black colorant, or -1 if none
	OverprintBlack       bool // the OverprintBlack user setting
	LinkIs100PercentBlack bool
	// OrigIs100PercentBlack is consulted only when LinkIs100PercentBlack
	// is false, mirroring the reference's fallback to black-preservation
	// analysis of the original (pre-device-code) color.
	OrigIs100PercentBlack bool

	FTransformedSpot    bool
	ColorantInSpotlist  []bool // valid only when FTransformedSpot
	NMappedColorants    []int  // photoink fan-out count per input colorant; 1 with no photoink

	AllowImplicit    bool
	OverprintProcess uint8 // dynamic per-colorant override bits (bit i = colorant i)

	// FSharedColorants and SharedColorantGroupAllMin model the DeviceN
	// shared-colorant-mapping qualification: when a colorant at
	// opColorMin belongs to a group of colorants that came from a
	// common mapped source, all of that group must be at opColorMin too
	// before the 0-valued colorant qualifies for overprinting.
	// SharedColorantGroupAllMin(i) need only be consulted when
	// FSharedColorants is true.
	FSharedColorants          bool
	SharedColorantGroupAllMin func(i int) bool

	JobColorSpaceIsGray bool
	OverprintMode       bool
	OverprintWhite      bool
	NDeviceColorants    int // total output width (sum of NMappedColorants)
}

// Result is what op_decide_overprints produces: whether overprinting
// applies at all, the resulting mask over the fanned-out output
// colorants, and whether any input colorant was marked overprint in the
// mask (for any reason: a zero value, 100% black, or a transformed-spot
// colorant outside the spot list).
type Result struct {
	Apply                bool
	Mask                 colorant.OverprintMask
	ImplicitOverprinting bool
}

// Decide ports op_decide_overprints. Erase color is assumed to already
// be oriented to 0.0 for subtractive spaces / 1.0 for additive spaces,
// as the reference requires; transfer functions and calibration have
// not yet been applied.
func Decide(p DecideParams) Result {
	if !p.OverprintsEnabled {
		return Result{Apply: false}
	}

	overprinting := p.SetOverprint && !p.OpDisabled

	if p.ColorType == Image || p.Compositing {
		return Result{Apply: overprinting}
	}

	var opColorMax, opColorMin float32
	if p.Additive {
		opColorMax, opColorMin = 0.0, 1.0
	} else {
		opColorMax, opColorMin = 1.0, 0.0
	}
	_ = opColorMax

	overprintBlack := false
	if p.BlackPosition >= 0 && p.OverprintBlack &&
		(p.ColorType == Fill || p.ColorType == Stroke) {
		if p.LinkIs100PercentBlack {
			overprintBlack = true
		} else {
			overprintBlack = p.OrigIs100PercentBlack
		}
	}

	if !overprinting && !overprintBlack {
		return Result{Apply: false}
	}

	mask := colorant.NewOverprintMask(p.NDeviceColorants)
	// mask starts all-knockout (the zero value), matching
	// SET_OVERPRINTMASK(..., OVERPRINTMASK_KNOCKOUT).

	fAllMin := true
	cOutputColorant := 0
	overprintCount := 0

	if p.FTransformedSpot {
		for i := 0; i < p.NColorants; i++ {
			if p.ColorValues[i] != opColorMin {
				fAllMin = false
			}
			if !p.ColorantInSpotlist[i] {
				for pi := 0; pi < p.NMappedColorants[i]; pi++ {
					mask.Overprint(cOutputColorant + pi)
				}
				overprintCount++
			}
			cOutputColorant += p.NMappedColorants[i]
		}
	} else {
		for i := 0; i < p.NColorants; i++ {
			fOpColorMin := p.ColorValues[i] == opColorMin

			if fOpColorMin && p.FSharedColorants && p.SharedColorantGroupAllMin != nil {
				if !p.SharedColorantGroupAllMin(i) {
					fOpColorMin = false
				}
			}

			if !fOpColorMin {
				fAllMin = false
			}

			implicitHit := overprinting && fOpColorMin &&
				(p.AllowImplicit || (p.NColorants == 4 && p.OverprintProcess&(1<<uint(i)) != 0))

			if (overprintBlack && i != p.BlackPosition) || implicitHit {
				for pi := 0; pi < p.NMappedColorants[i]; pi++ {
					mask.Overprint(cOutputColorant + pi)
				}
				overprintCount++
			}

			cOutputColorant += p.NMappedColorants[i]
		}
	}

	forceOverprintGray := p.JobColorSpaceIsGray && p.OverprintMode

	if (overprintCount == p.NDeviceColorants || forceOverprintGray) &&
		fAllMin &&
		!p.OverprintWhite &&
		p.ColorType != Shfill &&
		p.ColorType != ShfillIndexedBase &&
		p.ColorType != Vignette {
		return Result{Apply: false}
	}

	return Result{
		Apply:                true,
		Mask:                 mask,
		ImplicitOverprinting: overprintCount > 0,
	}
}
