// Package ricochrome is the public construction and entry-point API a
// front-end interpreter drives: build a color-chain link once per job
// parameter set (DeviceCodeType), invoke it per object or per block of
// samples, and run the page-level recombine and preconvert passes once
// interpretation of a page is done.
//
// It is a thin facade over internal/devicecode, internal/recombine,
// internal/preconvert and internal/renderdispatch — every real algorithm
// lives in those packages; this file only assembles their constructors
// into the handful of calls spec.md §6 names.
package ricochrome

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkrip/devicecode/internal/colorant"
	"github.com/inkrip/devicecode/internal/dcilut"
	"github.com/inkrip/devicecode/internal/devicecode"
	"github.com/inkrip/devicecode/internal/dl"
	"github.com/inkrip/devicecode/internal/halftone"
	"github.com/inkrip/devicecode/internal/preconvert"
	"github.com/inkrip/devicecode/internal/recombine"
	"github.com/inkrip/devicecode/internal/renderdispatch"
)

// DeviceCodeType names which stages of the per-channel transform a chain
// is configured for, per spec.md §6's make_devicecode_link config.
// NewDeviceCodeLink uses it only to pick the halftone variant; the LUTs
// passed in run as given whatever the type.
type DeviceCodeType int

const (
	DeviceCodeNormal DeviceCodeType = iota
	DeviceCodeHalftoneOnly
	DeviceCodeTransferOnly
	DeviceCodeCalibrationOnly
	DeviceCodeNone
)

// Config is the enumerated record make_devicecode_link takes: every
// job/device property that is fixed for a link's lifetime and decided
// once, at construction, rather than re-examined per invocation.
type Config struct {
	ColorType            devicecode.ColorType
	IsIntercepting       bool
	IsCompositing        bool
	DeviceCodeType       DeviceCodeType
	PatternPaintType     devicecode.PatternPaintType
	ChainColorModel      string
	IllegalTintTransform bool

	Variant devicecode.VariantParams
	CLID    devicecode.CLID
}

// ErrIllegalTintTransform is returned by NewDeviceCodeLink when
// Config.IllegalTintTransform is set: the job asked for a tint
// transform this chain configuration cannot honor.
var ErrIllegalTintTransform = errors.New("ricochrome: illegal tint transform for this chain configuration")

// NewDeviceCodeLink builds a device-code link (C4). outputColorants,
// blackIndex, luts and nMapped are exactly devicecode.NewLink's
// parameters; the halftone variant is derived from cfg.Variant unless
// cfg.DeviceCodeType forces it to Nothing (HalftoneOnly/TransferOnly/
// CalibrationOnly/None chains never reach the backend halftone cache).
func NewDeviceCodeLink(cfg Config, outputColorants []colorant.Index, blackIndex int, luts []*dcilut.LUT, nMapped []int, ht halftone.Sink, builder dl.Builder) (*devicecode.Link, error) {
	if cfg.IllegalTintTransform {
		return nil, ErrIllegalTintTransform
	}

	variant := devicecode.SelectVariant(cfg.Variant)
	if cfg.DeviceCodeType != DeviceCodeNormal {
		variant = devicecode.Nothing
	}

	link := devicecode.NewLink(outputColorants, blackIndex, luts, nMapped, variant, cfg.CLID, ht, builder)
	link.ColorType = cfg.ColorType
	link.FApplyMaxBlts = cfg.IsIntercepting
	link.FCompositing = cfg.IsCompositing
	link.PatternPaintType = cfg.PatternPaintType
	link.IsPatternSpace = cfg.PatternPaintType != devicecode.NoPattern
	return link, nil
}

// NewNonInterceptLink builds the C6 companion link for the object dc
// has *just* processed (dc.InvokeSingle must already have run): it
// shares dc's sorted output and values as its avoid-max-blit comparison
// target, per spec.md §6's make_nonintercept_link.
func NewNonInterceptLink(cfg Config, dc *devicecode.Link, inputColorants []colorant.Index, builder dl.Builder) *devicecode.NonInterceptLink {
	n := devicecode.NewNonInterceptLink(inputColorants, dc.OutputColorants, dc.LastSortedValues, builder)
	n.OverprintTemplate = dc.OverprintTemplate
	n.OverprintTemplate.ColorType = cfg.ColorType
	return n
}

// NewPreseparationLink builds a C7 link for one pseudo-colorant, per
// spec.md §6's make_preseparation_link.
func NewPreseparationLink(pseudo devicecode.PseudoColorant, lut *dcilut.LUT, ht halftone.Sink, builder dl.Builder) *devicecode.PreseparationLink {
	return devicecode.NewPreseparationLink(pseudo, lut, ht, builder)
}

// InvokeSingle runs link on one object's input color values, per
// spec.md §6's invoke_single.
func InvokeSingle(link *devicecode.Link, inputs []float32) error {
	return link.InvokeSingle(inputs)
}

// InvokeBlock runs link across a whole block of samples at once, per
// spec.md §6's invoke_block.
func InvokeBlock(link *devicecode.Link, samples []devicecode.BlockSample) ([]devicecode.BlockResult, colorant.OverprintMask, bool, error) {
	return link.InvokeBlock(samples)
}

// Page is the minimal page-scoped state recombine_prepare and
// preconvert_dl need: the pseudo-colorant map a pre-separated job's
// objects decode through, and the set of blend-space groups preconvert
// walks.
type Page struct {
	Pseudo *devicecode.PseudoColorantMap
	Groups []*preconvert.Group
}

// NewPage returns an empty page ready for recombine_prepare/preconvert_dl.
func NewPage() *Page {
	return &Page{Pseudo: devicecode.NewPseudoColorantMap()}
}

// RecombinePrepare installs the page's pseudo-to-real colorant mapping
// and classifies every object for the C8 pass, per spec.md §6's
// recombine_prepare. It returns one recombine.Classification per
// object, in the order given.
func (p *Page) RecombinePrepare(bindings map[devicecode.PseudoColorant]colorant.Index, objs []recombine.Object, isProcessColorant func(colorant.Index) bool) ([]recombine.Classification, error) {
	for pseudo, real := range bindings {
		p.Pseudo.Bind(pseudo, real)
	}

	classes := make([]recombine.Classification, len(objs))
	for i, obj := range objs {
		cls, _, err := recombine.Classify(obj, p.Pseudo, isProcessColorant)
		if err != nil && !errors.Is(err, recombine.ErrNoPseudoColorants) {
			return nil, fmt.Errorf("ricochrome: recombine prepare object %d: %w", obj.ID, err)
		}
		classes[i] = cls
	}
	return classes, nil
}

// TransparencyStrategy selects preconvert_dl's compositing behavior,
// per spec.md §6 ("transparency_strategy: 1|2").
type TransparencyStrategy int

const (
	// DirectOnly converts every eligible object immediately.
	DirectOnly TransparencyStrategy = 1
	// BackdropAware defers image objects to single-pass setup instead.
	BackdropAware TransparencyStrategy = 2
)

// PreconvertDL runs the C9 pass over the page's groups, per spec.md
// §6's preconvert_dl. walk must enumerate every object that needs
// classifying (already paired with its owning Group and ObjectPlan);
// tick is called once per object regardless of whether it converted.
func (p *Page) PreconvertDL(builder dl.Builder, walk []preconvert.WalkObject, tick func()) error {
	for _, g := range p.Groups {
		g.Update(false)
	}
	return preconvert.Walk(walk, builder, tick)
}

// RenderDispatcher exposes internal/renderdispatch's worker fan-out so
// a front end can hand off the page's preconverted bands without
// importing an internal package directly.
type RenderDispatcher = renderdispatch.Dispatcher

// Band is a renderdispatch.Band alias, re-exported for the same reason.
type Band = renderdispatch.Band

// Render dispatches bands across maxWorkers goroutines, returning the
// first error encountered.
func Render(ctx context.Context, maxWorkers int, bands []Band) error {
	return RenderDispatcher{MaxWorkers: maxWorkers}.Run(ctx, bands)
}
