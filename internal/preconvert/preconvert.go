// Package preconvert implements the post-compositing device-color pass
// (C9): for each group with a distinct blend space it picks one
// conversion method for every object in that group (so vectors and
// images placed side by side never show a seam), walks children before
// parents, and either converts an object's color in place or defers it
// to an on-the-fly conversion at render time.
//
// Grounded on preconvert.c: preconvert_update/preconvert_method
// (231-278) for per-group method selection, preconvert_unpack/
// preconvert_maxblits (353-502) for colorant-buffer reuse and max-blit
// carry-through, preconvert_dlcolor (509-600) for the chain
// re-invocation, and preconvert_callback/preconvert_dl (1420-1504) for
// the child-before-parent walk and progress reporting.
package preconvert

import (
	"fmt"

	"golang.org/x/image/draw"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/dl"
)

// Method is the image conversion method chosen once per group, shared
// by every image and vector object in that group.
type Method int

const (
	// MethodNoChoice marks a group whose method hasn't been picked yet
	// (preconvert_update hasn't run, or the colorant set just changed).
	MethodNoChoice Method = iota
	MethodTomsTables
	MethodInvokeBlock
	MethodOnTheFly
	MethodFastRGBToGray
	MethodFastRGBToCMYK
)

// String names a method the way log lines referring to it would.
func (m Method) String() string {
	switch m {
	case MethodTomsTables:
		return "toms-tables"
	case MethodInvokeBlock:
		return "invoke-block"
	case MethodOnTheFly:
		return "on-the-fly"
	case MethodFastRGBToGray:
		return "fast-rgb-to-gray"
	case MethodFastRGBToCMYK:
		return "fast-rgb-to-cmyk"
	default:
		return "no-choice"
	}
}

// Chain is the narrow color-conversion collaborator a Group invokes
// once per object (and, on the fast paths, once per scratch-buffer
// resample): it stands in for gsc_setcolordirect/gsc_invokeChainSingle.
type Chain interface {
	// Invoke converts colorantFloats (already flipped to the chain's
	// polarity by the caller) into device colorant/value pairs.
	Invoke(colorantFloats []float32) ([]colorant.Index, []colorvalue.Value, error)
	// IndependentChannels reports whether every output channel is a
	// pure function of one input channel, which is what lets a parent
	// group still claim independent channels when every child does.
	IndependentChannels() bool
}

// ScratchBuffers holds the colorant-indexed buffers a Group reuses
// across every conversion it performs, resized only when the group's
// colorant count changes (preconvert_colorants_alloc/_free).
type ScratchBuffers struct {
	indices []colorant.Index
	values  []colorvalue.Value
	floats  []float32
}

func (s *ScratchBuffers) resize(n int) {
	if cap(s.indices) >= n {
		s.indices = s.indices[:n]
		s.values = s.values[:n]
		s.floats = s.floats[:n]
		return
	}
	s.indices = make([]colorant.Index, n)
	s.values = make([]colorvalue.Value, n)
	s.floats = make([]float32, n)
}

// Group is one blend-space scope's preconvert state: its scratch
// buffers, chosen method, and whether its channels are independent (so
// a parent group can inherit that property).
type Group struct {
	Chain           Chain
	NProcessComps   int
	UnionColorants  []colorant.Index
	Subtractive     bool
	OverprintSimplify bool

	buffers              ScratchBuffers
	method               Method
	nAllocComps          int
	independentChannels  bool
}

// NewGroup constructs a group's preconvert state. unionColorants is the
// colorant set produced by every object this group might preconvert;
// nProcessComps is how many of those are process colorants (the rest
// are spots).
func NewGroup(chain Chain, unionColorants []colorant.Index, nProcessComps int, subtractive bool) *Group {
	return &Group{
		Chain:          chain,
		NProcessComps:  nProcessComps,
		UnionColorants: unionColorants,
		Subtractive:    subtractive,
		method:         MethodNoChoice,
	}
}

// Update re-allocates g's scratch buffers if the union colorant count
// changed, and (re-)selects g's image conversion method, per
// preconvert_update. imageGeometryIsLarge picks the fast RGB paths when
// the union is plain RGB/gray-like and the image is big enough that a
// resampled scratch conversion beats per-pixel chain invocation.
func (g *Group) Update(imageGeometryIsLarge bool) {
	n := len(g.UnionColorants)
	if n != g.nAllocComps {
		g.buffers.resize(n)
		g.nAllocComps = n
		g.method = MethodNoChoice
	}
	if g.method != MethodNoChoice {
		return
	}
	g.method = selectMethod(n, g.NProcessComps, imageGeometryIsLarge)
}

// Method returns g's chosen image conversion method. Update must have
// run first.
func (g *Group) Method() Method { return g.method }

func selectMethod(nComps, nProcessComps int, large bool) Method {
	hasSpots := nComps > nProcessComps
	switch {
	case hasSpots:
		return MethodInvokeBlock
	case large && nProcessComps == 3:
		return MethodFastRGBToGray
	case large && nProcessComps == 4:
		return MethodFastRGBToCMYK
	case large:
		return MethodTomsTables
	default:
		return MethodOnTheFly
	}
}

// Unpack reads dlc's colorant/value pairs into g's scratch buffers,
// narrowing them to floats and (when subtractive) flipping polarity,
// skipping white spot colorants on overprinted objects when
// overprintSimplify applies (preconvert_unpack, preconvert_overprint_simplify).
func (g *Group) Unpack(dlc *dl.Color, overprintSimplify bool) (hasSpots bool) {
	n := 0
	for i, ci := range dlc.Colorants {
		cv := dlc.Values[i]
		if overprintSimplify && cv == colorvalue.Max && !isProcessColorant(colorant.Index(ci), g.NProcessComps) {
			continue
		}
		g.buffers.indices[n] = colorant.Index(ci)
		g.buffers.values[n] = cv
		f := cv.ToFloat()
		if g.Subtractive {
			f = 1 - f
		}
		g.buffers.floats[n] = f
		n++
		if colorant.Index(ci) >= colorant.Index(g.NProcessComps) {
			hasSpots = true
		}
	}
	g.buffers.indices = g.buffers.indices[:n]
	g.buffers.values = g.buffers.values[:n]
	g.buffers.floats = g.buffers.floats[:n]
	return hasSpots
}

func isProcessColorant(ci colorant.Index, nProcessComps int) bool {
	return int(ci) < nProcessComps
}

// Convert invokes g's chain on whatever Unpack staged, writing the
// resulting device color into cur via builder. An empty staged set
// (nothing unpacked) produces the none color, matching
// preconvert_dlcolor's "no colorants" short circuit.
func (g *Group) Convert(builder dl.Builder, cur *dl.Color) error {
	if len(g.buffers.floats) == 0 {
		builder.Release(cur)
		builder.GetNone(cur)
		return nil
	}

	outColorants, outValues, err := g.Chain.Invoke(g.buffers.floats)
	if err != nil {
		return fmt.Errorf("preconvert: chain invoke: %w", err)
	}
	g.independentChannels = g.Chain.IndependentChannels()

	dlColorants := make([]dl.ColorantIndex, len(outColorants))
	for i, ci := range outColorants {
		dlColorants[i] = dl.ColorantIndex(ci)
	}
	builder.Release(cur)
	return builder.AllocFillin(dlColorants, outValues, cur)
}

// IndependentChannels reports whether the most recent Convert's output
// channels were each a pure function of one input channel. A parent
// group only inherits this from a child if every child group reports
// true.
func (g *Group) IndependentChannels() bool { return g.independentChannels }

// Resample uses golang.org/x/image/draw to downsample an oversized
// source image into dst before the fast RGB-to-gray/RGB-to-CMYK scratch
// conversion runs on it, per the "fast" methods' reliance on a reduced
// working resolution (preconvert_update's im_determine_method choice).
func Resample(dst draw.Image, src draw.Image) {
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
}

// ObjectPlan is the per-object decision preconvert_callback/
// preconvert_required make: whether to convert this object's color now
// (direct rendering, or transparency strategy 1) or leave it for an
// on-the-fly conversion during rendering.
type ObjectPlan struct {
	ConvertNow     bool
	SinglePassSetup bool
}

// PlanObject decides an object's preconvert handling. alreadyDeviceColor
// corresponds to MARKER_DEVICECOLOR (spec.md S6): such an object is
// left untouched, with only a progress tick.
func PlanObject(alreadyDeviceColor, directOnlyRegion bool, transparencyStrategy int, isImage bool) ObjectPlan {
	if alreadyDeviceColor {
		return ObjectPlan{}
	}
	if directOnlyRegion || transparencyStrategy == 1 {
		return ObjectPlan{ConvertNow: true}
	}
	if transparencyStrategy == 2 && isImage {
		return ObjectPlan{SinglePassSetup: true}
	}
	return ObjectPlan{}
}

// Walk runs the preconvert pass over objs in the order they're given
// (the caller is responsible for a child-before-parent traversal order,
// per the ordering guarantee in spec.md §4.9: "a child's preconverted
// color is never fed back into a parent conversion"), converting each
// one whose plan says ConvertNow and reporting progress with tick after
// every object (including skipped ones, matching preconvert_callback's
// unconditional updateDLProgressTotal).
func Walk(objs []WalkObject, builder dl.Builder, tick func()) error {
	for _, obj := range objs {
		if obj.Plan.ConvertNow {
			if err := obj.Group.Convert(builder, obj.Color); err != nil {
				return err
			}
		}
		if tick != nil {
			tick()
		}
	}
	return nil
}

// WalkObject pairs one display-list object's color with the group
// preconvert state and plan that apply to it.
type WalkObject struct {
	Group *Group
	Color *dl.Color
	Plan  ObjectPlan
}

// PCLWhite is the domain-specific white sentinel a PCL raster pattern's
// packed white entry preconverts to instead of running it through the
// chain, per spec.md §4.9's PCL special case.
var PCLWhite = dl.Color{Kind: dl.KindNone}

// PreconvertPCLPalette converts every unique entry of a PCL pattern
// palette once, special-casing the device's packed white value.
func PreconvertPCLPalette(g *Group, builder dl.Builder, palette []dl.Color, isDeviceWhite func(*dl.Color) bool) ([]dl.Color, error) {
	out := make([]dl.Color, len(palette))
	for i := range palette {
		entry := &palette[i]
		if isDeviceWhite(entry) {
			out[i] = PCLWhite
			continue
		}
		g.Unpack(entry, false)
		cur := dl.Color{}
		if err := g.Convert(builder, &cur); err != nil {
			return nil, fmt.Errorf("preconvert: pcl palette entry %d: %w", i, err)
		}
		out[i] = cur
	}
	return out, nil
}
