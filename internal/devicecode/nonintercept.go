package devicecode

import (
	"errors"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/overprint"
)

// DefaultAvoidMaxBlitTolerance is 2^-12, the reference's TOLERANCE
// constant for the avoid-max-blit value comparison.
const DefaultAvoidMaxBlitTolerance = 1.0 / 4096.0

// errUnmappedColorant names the case where a non-intercept colorant has
// no counterpart in the device-code link's sorted output. No function
// returns it: avoidMaxBlitReplacement reports that case by returning
// false.
var errUnmappedColorant = errors.New("devicecode: colorant unmapped")

// NonInterceptLink is C6: the parallel companion to a device-code link
// used once color management (fApplyMaxBlts) is active. It computes
// only an overprint set for the *original*, non-color-managed input
// colorants, and fuses that set into the already-converted DL color via
// max-blit merges rather than computing new device values of its own.
//
// Grounded on cc_nonintercept_invokeSingle/cc_nonintercept_invokeBlock
// (gscdevci.c 3321-3743).
type NonInterceptLink struct {
	NInputColorants int
	SortedColorants []colorant.Index // this link's own sorted input colorant list

	// DCSortedColorants/DCSortedValues are the owning device-code link's
	// already-computed sorted output, consulted only by the avoid-max-
	// blit optimization.
	DCSortedColorants []colorant.Index
	DCSortedValues    []colorvalue.Value

	// Mapping[i] gives the index into DCSortedColorants/DCSortedValues
	// that SortedColorants[i] corresponds to, or -1 if there is none
	// (which alone rules out the avoid-max-blit optimization).
	Mapping []int

	Tolerance float32 // defaults to DefaultAvoidMaxBlitTolerance if zero

	OverprintTemplate overprint.DecideParams
	Builder           dl.Builder

	overprintMask colorant.OverprintMask
}

// NewNonInterceptLink constructs a non-intercept link sharing a device-
// code link's already-sorted output as its avoid-max-blit comparison
// target.
func NewNonInterceptLink(inputColorants []colorant.Index, dcSortedColorants []colorant.Index, dcSortedValues []colorvalue.Value, builder dl.Builder) *NonInterceptLink {
	sorted := colorant.SortColorants(inputColorants, colorant.First)
	mapping := make([]int, len(sorted.Output))
	index := make(map[colorant.Index]int, len(dcSortedColorants))
	for i, ci := range dcSortedColorants {
		index[ci] = i
	}
	for i, ci := range sorted.Output {
		if j, ok := index[ci]; ok {
			mapping[i] = j
		} else {
			mapping[i] = -1
		}
	}

	return &NonInterceptLink{
		NInputColorants:   len(inputColorants),
		SortedColorants:   sorted.Output,
		DCSortedColorants: dcSortedColorants,
		DCSortedValues:    dcSortedValues,
		Mapping:           mapping,
		Builder:           builder,
	}
}

func (n *NonInterceptLink) tolerance() float32 {
	if n.Tolerance == 0 {
		return DefaultAvoidMaxBlitTolerance
	}
	return n.Tolerance
}

// avoidMaxBlitReplacement attempts the avoid-max-blit optimization: if
// every one of n's sorted input colorants maps to a device-code-link
// output colorant, and their values agree within tolerance, it returns
// the plain (non-max-blit) overprint color to paint instead, and true.
func (n *NonInterceptLink) avoidMaxBlitReplacement(inputValues []float32) ([]colorant.Index, []colorvalue.Value, bool) {
	tol := n.tolerance()
	var replaceColorants []colorant.Index
	var replaceValues []colorvalue.Value

	for i, j := range n.Mapping {
		if j < 0 {
			return nil, nil, false
		}
		dcFloat := n.DCSortedValues[j].ToFloat()
		if abs32(inputValues[i]-dcFloat) > tol {
			return nil, nil, false
		}
		if n.overprintMask.Len() > i && n.overprintMask.IsPaint(i) {
			replaceColorants = append(replaceColorants, n.DCSortedColorants[j])
			replaceValues = append(replaceValues, n.DCSortedValues[j])
		}
	}

	if len(replaceColorants) == 0 {
		replaceColorants = []colorant.Index{colorant.NONE}
		replaceValues = []colorvalue.Value{colorvalue.Min}
	}
	return replaceColorants, replaceValues, true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// Invoke runs cc_nonintercept_invokeSingle: decide the overprint set for
// the original colorants, then either replace the device-code link's DL
// color outright (avoid-max-blit) or fold the decision in as a
// max-blit merge.
func (n *NonInterceptLink) Invoke(inputValues []float32) error {
	params := n.OverprintTemplate
	params.ColorValues = inputValues
	params.NColorants = n.NInputColorants
	params.NDeviceColorants = len(n.SortedColorants)
	if params.NMappedColorants == nil {
		// No photoink fan-out on this link: one output per input colorant.
		params.NMappedColorants = make([]int, n.NInputColorants)
		for i := range params.NMappedColorants {
			params.NMappedColorants[i] = 1
		}
	}

	res := overprint.Decide(params)
	doOverprintReduction := res.Apply
	if res.Apply {
		n.overprintMask = res.Mask
	} else {
		// No overprint decision applies: every one of this link's own
		// sorted colorants is marked overprint.
		mask := colorant.NewOverprintMask(len(n.SortedColorants))
		mask.SetAll(true)
		n.overprintMask = mask
	}

	cur := n.Builder.CurrentColor()

	if replaceColorants, replaceValues, ok := n.avoidMaxBlitReplacement(inputValues); ok {
		n.Builder.Release(cur)
		dlColorants := make([]dl.ColorantIndex, len(replaceColorants))
		for i, ci := range replaceColorants {
			dlColorants[i] = dl.ColorantIndex(ci)
		}
		return n.Builder.AllocFillin(dlColorants, replaceValues, cur)
	}

	if !doOverprintReduction {
		dlColorants := make([]dl.ColorantIndex, len(n.SortedColorants))
		for i, ci := range n.SortedColorants {
			dlColorants[i] = dl.ColorantIndex(ci)
		}
		return n.Builder.ApplyOverprints(dl.MergeMax, dlColorants, zeroValues(len(dlColorants)), cur)
	}

	var overprinted []dl.ColorantIndex
	for i, ci := range n.SortedColorants {
		if !n.overprintMask.IsPaint(i) {
			overprinted = append(overprinted, dl.ColorantIndex(ci))
		}
	}
	return n.Builder.ApplyOverprints(dl.MergeMax, overprinted, zeroValues(len(overprinted)), cur)
}

func zeroValues(n int) []colorvalue.Value {
	return make([]colorvalue.Value, n)
}
