// Package recombine implements the recombine-adjust pass (C8): a
// post-interpretation walk over every object of a pre-separated
// display list that classifies each object's pseudo-colorant set,
// rebuilds a real device color for it, and rewrites any fuzzy-matched
// trap planes left by a pretrapped (Quark) workflow.
//
// Grounded on rcbadjst.c: rcba_color_setup/rcba_colorants (232-333) for
// pseudo-colorant decode and process/spot classification,
// rcba_fuzzy_overprints (913-1030) for trap-plane rewriting, and the
// per-object dispatch around DEVICE_Separation/Late-color-attrib
// recovery (1600-1950) for composite-recombine colorspace recovery.
package recombine

import (
	"errors"
	"fmt"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/colorvalue"
	"github.com/inkrip/devicecode/internal/devicecode"
	"github.com/inkrip/devicecode/internal/dl"
)

// Classification is what rcba_color_setup/rcba_convert_to_spots decide
// for one object's decoded pseudo-colorant set.
type Classification int

const (
	// None means no recognized colorant survived decode; the object
	// should be emitted as a none color (removed from the page).
	None Classification = iota
	// Process means every component maps onto the process color model
	// and can be re-expressed through it directly.
	Process
	// Spots means at least one component has no process-model slot and
	// the object must be re-expressed as a DeviceN spot color.
	Spots
)

// ErrNoPseudoColorants is returned by Classify when an object's DL
// color contains nothing recombine recognizes.
var ErrNoPseudoColorants = errors.New("recombine: object has no recognized pseudo-colorants")

// Object is one display-list object's recombine-relevant state: its
// decoded pseudo-colorant components, and (for composite-recombine
// pages) the late color attribute recovering its original colorspace.
type Object struct {
	ID int

	// Pseudo/Values are the object's as-stored pre-separated components.
	Pseudo []devicecode.PseudoColorant
	Values []colorvalue.Value

	// LateColorSpace, when non-empty, names the original gray/RGB/CMYK/
	// Separation space a composite-recombine page stashed on the object
	// so its real colorant set can be recovered without re-interpreting.
	LateColorSpace string

	// TrapPseudo/TrapValues are the second, trap-plane DL color a
	// Quark-pretrapped object carries alongside its main color, or nil
	// if this object was not pretrapped.
	TrapPseudo []devicecode.PseudoColorant
	TrapValues []colorvalue.Value

	// IsShfill/IsImage route the object through vertex decomposition or
	// image-store rewriting instead of the ordinary single-color path.
	IsShfill bool
	IsImage  bool

	// PixelArea weights an image object's contribution to progress
	// reporting (spec.md §4.8: "images additionally weighted by pixel
	// area").
	PixelArea int
}

// ProcessSplit is the result of splitting an object's decoded
// pseudo-colorants into process-model components and spot components,
// per rcba_process_seps/rcba_spot_seps.
type ProcessSplit struct {
	ProcessColorants []colorant.Index
	ProcessValues    []colorvalue.Value
	SpotColorants    []colorant.Index
	SpotValues       []colorvalue.Value
}

// Classify decodes obj's pseudo-colorant set through pmap and splits it
// into process/spot components, returning the object's overall
// classification.
func Classify(obj Object, pmap *devicecode.PseudoColorantMap, isProcessColorant func(colorant.Index) bool) (Classification, ProcessSplit, error) {
	if len(obj.Pseudo) == 0 {
		return None, ProcessSplit{}, nil
	}

	var split ProcessSplit
	resolved := 0
	for i, p := range obj.Pseudo {
		ci, ok := pmap.Real(p)
		if !ok {
			continue
		}
		resolved++
		if isProcessColorant(ci) {
			split.ProcessColorants = append(split.ProcessColorants, ci)
			split.ProcessValues = append(split.ProcessValues, obj.Values[i])
		} else {
			split.SpotColorants = append(split.SpotColorants, ci)
			split.SpotValues = append(split.SpotValues, obj.Values[i])
		}
	}

	if resolved == 0 {
		return None, split, ErrNoPseudoColorants
	}
	if len(split.SpotColorants) > 0 {
		return Spots, split, nil
	}
	return Process, split, nil
}

// Rebuild re-invokes the device-code link (C4) for a classified
// object's components, producing its final device color. For a Process
// object this should be every component; for a Spots object the caller
// typically builds a DeviceN chain over the full colorant set instead,
// but this entry point accepts whatever values/colorants the caller has
// already resolved (process-only or process+spot).
func Rebuild(link *devicecode.Link, colorValues []float32) error {
	return link.InvokeSingle(colorValues)
}

// FuzzyTrapMatch rewrites a Quark-pretrapped object's trap plane into
// its main color, per rcba_fuzzy_overprints: a trap colorant whose
// value is a knockout (colorvalue.Min) is added to the main
// color as a maximum-tones max-blit (its actual paint contribution
// comes from whichever other object was fuzzy-matched against this
// trap); a trap colorant that does carry ink, on an object that is
// itself overprinting, is instead simply removed from the main color
// (the trap ink is left to paint through from underneath).
func FuzzyTrapMatch(builder dl.Builder, main *dl.Color, objectOverprints bool, trapColorants []colorant.Index, trapValues []colorvalue.Value) error {
	for i, ci := range trapColorants {
		cv := trapValues[i]
		if cv != colorvalue.Min && objectOverprints {
			builder.RemoveColorant(main, dl.ColorantIndex(ci))
			continue
		}
		if err := builder.ApplyOverprints(dl.MergeMax, []dl.ColorantIndex{dl.ColorantIndex(ci)}, []colorvalue.Value{colorvalue.Max}, main); err != nil {
			return fmt.Errorf("recombine: fuzzy trap match colorant %d: %w", ci, err)
		}
	}
	return nil
}

// ShfillVertex is one Gouraud-shaded patch vertex awaiting per-vertex
// color conversion during shfill decomposition.
type ShfillVertex struct {
	ColorValues []float32
}

// DecomposeShfill converts every vertex of a stored shfill patch
// separately through link, per spec.md §4.8 step 7 ("decompose stored
// patches back into Gouraud triangles, color-converting each vertex
// separately").
func DecomposeShfill(link *devicecode.Link, vertices []ShfillVertex) error {
	for i, v := range vertices {
		if err := link.InvokeSingle(v.ColorValues); err != nil {
			return fmt.Errorf("recombine: shfill vertex %d: %w", i, err)
		}
	}
	return nil
}

// ImageRewritePlan is the decision PlanImage makes for one image
// object: whether its planes can be rewritten in place (every channel
// converts independently, so the image store's existing tiles can be
// spliced) or whether an on-the-fly expander must be installed instead
// (conversion mixes channels, e.g. a DeviceN base with a shared-
// colorant mapping).
type ImageRewritePlan struct {
	RewriteInPlace bool
	Permutation    []int32 // valid only when RewriteInPlace
}

// PlanImage decides an image object's rewrite strategy. channelsIndependent
// is true when every output channel is a pure function of one input
// channel (the fast path); permutation is the new sorted-colorant order
// to apply via imagestore.Store.Reorder when RewriteInPlace is true.
func PlanImage(channelsIndependent bool, permutation []int32) ImageRewritePlan {
	if !channelsIndependent {
		return ImageRewritePlan{RewriteInPlace: false}
	}
	return ImageRewritePlan{RewriteInPlace: true, Permutation: permutation}
}

// Progress reports recombine's nominal progress unit for one object:
// 1 for vector objects, and PixelArea for image objects (spec.md §4.8:
// "Progress is reported at a nominal 1 unit per DL object (images
// additionally weighted by pixel area)").
func Progress(obj Object) int {
	if obj.IsImage && obj.PixelArea > 0 {
		return obj.PixelArea
	}
	return 1
}
