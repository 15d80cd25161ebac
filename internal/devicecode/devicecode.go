// Package devicecode implements the device-code link (C4), the
// non-intercept link (C6) and the preseparation link (C7): the three
// link variants that turn per-channel input floats into sorted device-
// colorant values, an overprint mask, and a halftone-cache side effect,
// then emit the result as a display-list color.
//
// Grounded on devicecode_invokeSingle/devicecode_invokeBlock
// (gscdevci.c 1647-1996), the updateHTCache* family (gscdevci.c
// 2764-3089 and surrounding dispatch table), and the nonintercept link
// construction/invocation path (gscdevci.c 3321-3743).
package devicecode

import (
	"errors"
	"fmt"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/dcilut"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/halftone"
	"github.com/inkrip/devicecode/internal/overprint"
)

// ColorType is shared with package overprint: the decision engine and
// the link that drives it must always agree on which paint operation
// is in progress.
type ColorType = overprint.ColorType

const (
	Fill              = overprint.Fill
	Stroke            = overprint.Stroke
	Vignette          = overprint.Vignette
	Image             = overprint.Image
	Shfill            = overprint.Shfill
	ShfillIndexedBase = overprint.ShfillIndexedBase
	Other             = overprint.Other
)

// PatternPaintType distinguishes the three pattern-space dispositions
// devicecode_invokeSingle special-cases ahead of its ordinary none/
// black/full decision.
type PatternPaintType int

const (
	NoPattern PatternPaintType = iota
	UncolouredPattern
	ColouredPattern
)

// HTVariant is one of the seven halftone-update strategies a link picks
// once, at construction, per spec.md §4.4.
type HTVariant int

const (
	Halftone HTVariant = iota
	HalftoneTrapping
	HalftoneShfill
	HalftoneBackdropRender
	Contone
	ContoneTrapping
	PatternContone
	Nothing
)

func (v HTVariant) String() string {
	switch v {
	case Halftone:
		return "Halftone"
	case HalftoneTrapping:
		return "HalftoneTrapping"
	case HalftoneShfill:
		return "HalftoneShfill"
	case HalftoneBackdropRender:
		return "HalftoneBackdropRender"
	case Contone:
		return "Contone"
	case ContoneTrapping:
		return "ContoneTrapping"
	case PatternContone:
		return "PatternContone"
	default:
		return "Nothing"
	}
}

// VariantParams is the small set of device/job properties that decide
// which HTVariant a link uses; they are fixed for the link's lifetime.
type VariantParams struct {
	Halftoning            bool
	Trapping              bool
	Shfill                bool
	Backdrop              bool
	ContoneOutput         bool
	PatternAsScreen       bool
	ColoredPattern        bool
	ZeroColorants         bool
	InterceptedForBackend bool
}

// SelectVariant picks the halftone-update strategy per the table in
// spec.md §4.4. Backdrop rendering and the no-op cases take precedence
// over everything else, matching the reference's dispatch-table setup
// in cc_updateDeviceCodeLink.
func SelectVariant(p VariantParams) HTVariant {
	switch {
	case p.ColoredPattern, p.ZeroColorants, p.InterceptedForBackend:
		return Nothing
	case p.Backdrop:
		return HalftoneBackdropRender
	case p.PatternAsScreen:
		return PatternContone
	case p.Halftoning && p.Shfill:
		return HalftoneShfill
	case p.Halftoning && p.Trapping:
		return HalftoneTrapping
	case p.Halftoning:
		return Halftone
	case p.ContoneOutput && p.Trapping:
		return ContoneTrapping
	case p.ContoneOutput:
		return Contone
	default:
		return Nothing
	}
}

// CLID is the 12-slot fingerprint used as a color-chain cache key:
// exactly 3 transfer + 2 calibration + 1 transfer-id + 1 spot number +
// 1 packed flag word + 2 raster-style ids + 1 httype + 1 contone-mask
// value. Everything else about a link (overprint settings, input
// values, ...) is deliberately excluded and re-tested per invocation.
type CLID [12]uint32

// NewCLID assembles a CLID from its named slots, in the fixed order
// above.
func NewCLID(transfer [3]uint32, calibration [2]uint32, transferID, spotNo, flags uint32, rasterStyleIDs [2]uint32, httype, contoneMask uint32) CLID {
	return CLID{
		transfer[0], transfer[1], transfer[2],
		calibration[0], calibration[1],
		transferID, spotNo, flags,
		rasterStyleIDs[0], rasterStyleIDs[1],
		httype, contoneMask,
	}
}

// ErrInvalidInput is returned when an invocation is given input values
// outside [0, 1].
var ErrInvalidInput = errors.New("devicecode: input color value out of [0, 1]")

// ErrEmptyBlock is returned by InvokeBlock when asked to process zero
// samples.
var ErrEmptyBlock = errors.New("devicecode: empty block invocation")

// Link is the device-code link (C4): the per-chain object that owns a
// DCILUT per input channel, a colorant sort permutation, an overprint
// mask, and the selected halftone-update variant.
type Link struct {
	NInputColorants  int
	OutputColorants  []colorant.Index // final sorted/deduped output colorant list
	Sort             colorant.SortResult
	BlackPosition    int // index of black within OutputColorants, or -1
	LUTs             []*dcilut.LUT
	NMappedColorants []int // photoink fan-out per input channel

	SpotNo    int
	ReproType int
	Variant   HTVariant
	CLID      CLID

	ColorType        ColorType
	FApplyMaxBlts    bool // color-managed chain; defer overprint reduction to C6
	FTransformedSpot bool
	FCompositing     bool
	IsPatternSpace   bool
	PatternPaintType PatternPaintType

	// OverprintTemplate holds every overprint.DecideParams field except
	// ColorValues, which InvokeSingle/InvokeBlock fill in per call.
	OverprintTemplate overprint.DecideParams

	HT      halftone.Sink
	Builder dl.Builder

	overprintMask colorant.OverprintMask

	// LastSortedValues is the most recent InvokeSingle's sorted device
	// values, in OutputColorants order. A companion non-intercept link
	// (C6) consults this for its avoid-max-blit comparison, per spec.md
	// §4.6; it is nil until InvokeSingle has run at least once.
	LastSortedValues []colorvalue.Value
}

// NewLink constructs a device-code link. The colorant sort is computed
// once from the caller's (unsorted) output colorant list; blackIndex
// names the position of the black colorant in that *unsorted* list, or
// -1 if there is none. outputColorants must already be in fanned-out
// (post-photoink) form: len(outputColorants) == sum(nMapped), and
// nMapped is indexed by input (nominal, pre-fanout) channel.
func NewLink(outputColorants []colorant.Index, blackIndex int, luts []*dcilut.LUT, nMapped []int, variant HTVariant, clid CLID, ht halftone.Sink, builder dl.Builder) *Link {
	sorted := colorant.SortColorants(outputColorants, colorant.First)

	blackPosition := -1
	for k, origIdx := range sorted.Permutation {
		if origIdx >= 0 && int(origIdx) == blackIndex {
			blackPosition = k
			break
		}
	}

	return &Link{
		NInputColorants:  len(luts),
		OutputColorants:  sorted.Output,
		Sort:             sorted,
		BlackPosition:    blackPosition,
		LUTs:             luts,
		NMappedColorants: nMapped,
		Variant:          variant,
		CLID:             clid,
		HT:               ht,
		Builder:          builder,
	}
}

// sortedDeviceValues runs each input colorValue through its channel's
// DCILUT (with photoink fan-out), then permutes the fanned-out result
// into sorted-output order.
func (l *Link) sortedDeviceValues(colorValues []float32) ([]colorvalue.Value, error) {
	if len(colorValues) != l.NInputColorants {
		return nil, fmt.Errorf("devicecode: invokeSingle: got %d input colorants, link has %d", len(colorValues), l.NInputColorants)
	}
	for _, v := range colorValues {
		if v < 0 || v > 1 {
			return nil, ErrInvalidInput
		}
	}

	raw := make([]colorvalue.Value, 0, len(l.OutputColorants))
	for i, f := range colorValues {
		in := colorvalue.FromFloat(f)
		raw = append(raw, l.LUTs[i].InvokeAll(in)...)
	}

	sorted := make([]colorvalue.Value, len(raw))
	for k, origIdx := range l.Sort.Permutation {
		if origIdx < 0 {
			continue
		}
		if int(origIdx) < len(raw) {
			sorted[k] = raw[origIdx]
		}
	}
	return sorted, nil
}

// dispatchHalftone runs step 5 of the algorithm: invoke the selected
// halftone-update variant with the sorted device values, per the table
// in spec.md §4.4.
func (l *Link) dispatchHalftone(values []colorvalue.Value) error {
	switch l.Variant {
	case Halftone, HalftoneTrapping:
		for i, ci := range l.OutputColorants {
			if values[i] == colorvalue.Max {
				// white/no-ink: no form to allocate at this colorant, but
				// trapping still reserves the spot number for it.
				if l.Variant == HalftoneTrapping {
					l.HT.SetUsed(0, l.SpotNo, halftone.HTTypeNormal, int32(ci))
				}
				continue
			}
			if err := l.HT.AllocateForm(int32(ci), values[i]); err != nil {
				return err
			}
			if l.Variant == HalftoneTrapping && (values[i] == colorvalue.Min || values[i] == colorvalue.Max) {
				l.HT.SetUsed(0, l.SpotNo, halftone.HTTypeNormal, int32(ci))
			}
		}
	case HalftoneShfill:
		for _, ci := range l.OutputColorants {
			l.HT.SetUsed(0, l.SpotNo, halftone.HTTypeNormal, int32(ci))
		}
	case HalftoneBackdropRender:
		for _, ci := range l.OutputColorants {
			l.HT.SetUsed(0, l.SpotNo, halftone.HTTypeBackdropRender, int32(ci))
		}
	case Contone, ContoneTrapping:
		for i, ci := range l.OutputColorants {
			l.HT.KeepScreen(int32(ci))
			if l.Variant == ContoneTrapping && (values[i] == colorvalue.Min || values[i] == colorvalue.Max) {
				l.HT.SetUsed(0, l.SpotNo, halftone.HTTypeNormal, int32(ci))
			}
		}
	case PatternContone:
		if l.BlackPosition >= 0 {
			l.HT.KeepScreen(int32(l.OutputColorants[l.BlackPosition]))
		} else {
			for _, ci := range l.OutputColorants {
				l.HT.KeepScreen(int32(ci))
			}
		}
	case Nothing:
		// no-op, per the table.
	}
	return nil
}

// reduce applies step 6: for each device colorant, paint bits copy
// through to the reduced vectors; overprint bits on a shfill/vignette
// object instead mark that slot TRANSPARENT and cancel reduction for
// the whole object (matching the reference's "switch off overprint
// reduction" behavior the moment this happens).
func (l *Link) reduce(doReduction bool, values []colorvalue.Value) (colorants []colorant.Index, reduced []colorvalue.Value, stillReducing bool) {
	if !doReduction {
		return l.OutputColorants, values, false
	}
	colorants = make([]colorant.Index, 0, len(l.OutputColorants))
	reduced = make([]colorvalue.Value, 0, len(l.OutputColorants))
	stillReducing = true

	for i, ci := range l.OutputColorants {
		if l.overprintMask.IsPaint(i) {
			colorants = append(colorants, ci)
			reduced = append(reduced, values[i])
			continue
		}
		if !l.FTransformedSpot && (l.ColorType == Shfill || l.ColorType == ShfillIndexedBase || l.ColorType == Vignette) {
			values[i] = colorvalue.Transparent
			stillReducing = false
		}
	}

	if stillReducing && len(colorants) == 0 {
		colorants = []colorant.Index{colorant.NONE}
		reduced = []colorvalue.Value{colorvalue.Min}
	}
	return colorants, reduced, stillReducing
}

// emit performs step 7: write exactly one DL color (none, black, or
// full) into the builder's current color.
func (l *Link) emit(nSorted int, stillReducing bool, reducedColorants []colorant.Index, reducedValues []colorvalue.Value, sortedColorants []colorant.Index, sortedValues []colorvalue.Value) error {
	cur := l.Builder.CurrentColor()
	l.Builder.Release(cur)

	switch {
	case l.IsPatternSpace && l.PatternPaintType == NoPattern:
		l.Builder.GetNone(cur)
		return nil
	case l.IsPatternSpace && l.PatternPaintType != UncolouredPattern:
		l.Builder.GetBlack(cur)
		return nil
	case nSorted == 0:
		l.Builder.GetBlack(cur)
		return nil
	case stillReducing:
		if len(reducedColorants) == 1 && reducedColorants[0] == colorant.NONE {
			l.Builder.GetNone(cur)
			return nil
		}
		dlColorants := make([]dl.ColorantIndex, len(reducedColorants))
		for i, ci := range reducedColorants {
			dlColorants[i] = dl.ColorantIndex(ci)
		}
		return l.Builder.AllocFillin(dlColorants, reducedValues, cur)
	default:
		dlColorants := make([]dl.ColorantIndex, len(sortedColorants))
		for i, ci := range sortedColorants {
			dlColorants[i] = dl.ColorantIndex(ci)
		}
		return l.Builder.AllocFillin(dlColorants, sortedValues, cur)
	}
}

// InvokeSingle runs the full C4 algorithm (spec.md §4.4 steps 2-7; step
// 1, the opportunistic spot/screen detector calls, is an external
// front-end concern this package has no hook for) for one object's
// input color.
func (l *Link) InvokeSingle(colorValues []float32) error {
	params := l.OverprintTemplate
	params.ColorValues = colorValues
	params.NColorants = l.NInputColorants
	if params.NMappedColorants == nil {
		params.NMappedColorants = l.NMappedColorants
	}
	params.NDeviceColorants = len(l.OutputColorants)
	params.ColorType = l.ColorType
	params.Compositing = l.FCompositing
	params.BlackPosition = l.BlackPosition

	res := overprint.Decide(params)
	doOverprintReduction := res.Apply
	if res.Apply {
		l.overprintMask = res.Mask
	} else {
		l.overprintMask = colorant.NewOverprintMask(len(l.OutputColorants))
	}

	// Don't reduce colorants while intercepting; the non-intercept link
	// handles overprint of the original, non-color-managed colorants.
	doOverprintReduction = doOverprintReduction && !l.FApplyMaxBlts

	sortedValues, err := l.sortedDeviceValues(colorValues)
	if err != nil {
		return err
	}
	l.LastSortedValues = sortedValues

	if err := l.dispatchHalftone(sortedValues); err != nil {
		return err
	}

	reducedColorants, reducedValues, stillReducing := l.reduce(doOverprintReduction, sortedValues)

	return l.emit(len(sortedValues), doOverprintReduction && stillReducing, reducedColorants, reducedValues, l.OutputColorants, sortedValues)
}

// BlockSample is one sample's input color within a block invocation
// (used for image and shaded-fill vertex batches).
type BlockSample struct {
	ColorValues []float32
}

// BlockResult is the DL color produced for one sample of a block
// invocation. The per-sample overprint masks are not kept; InvokeBlock
// returns only their intersection.
type BlockResult struct {
	Colorants []colorant.Index
	Values    []colorvalue.Value
}

// InvokeBlock runs InvokeSingle's algorithm across n samples, tracking
// the block overprint (the intersection of every sample's overprint
// mask, plus overprintAll which clears the first time any sample knocks
// out a colorant). Per spec.md §4.4, a failure partway through leaves
// results partially populated and the whole block must be treated as
// invalid by the caller.
func (l *Link) InvokeBlock(samples []BlockSample) ([]BlockResult, colorant.OverprintMask, bool, error) {
	if len(samples) == 0 {
		return nil, colorant.OverprintMask{}, false, ErrEmptyBlock
	}

	results := make([]BlockResult, len(samples))
	blockMask := colorant.NewOverprintMask(len(l.OutputColorants))
	blockMask.SetAll(true)
	overprintAll := true

	for idx, s := range samples {
		if err := l.InvokeSingle(s.ColorValues); err != nil {
			return results, blockMask, overprintAll, fmt.Errorf("devicecode: invokeBlock: sample %d: %w", idx, err)
		}
		blockMask = colorant.Intersect(blockMask, l.overprintMask)
		for i := 0; i < l.overprintMask.Len(); i++ {
			if l.overprintMask.IsPaint(i) {
				overprintAll = false
			}
		}
		cur := l.Builder.CurrentColor()
		colorants := make([]colorant.Index, len(cur.Colorants))
		values := make([]colorvalue.Value, len(cur.Values))
		for i, ci := range cur.Colorants {
			colorants[i] = colorant.Index(ci)
		}
		copy(values, cur.Values)
		results[idx] = BlockResult{Colorants: colorants, Values: values}
	}

	return results, blockMask, overprintAll, nil
}
