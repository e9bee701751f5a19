// Package strategy implements the six traversal strategies of spec
// §4.6: Flat, Hierarchical, Stable, Balanced, Fixed and
// DistanceBaseFixed, each a direct port of the corresponding
// travMode* function in the original browser's camera traversal (see
// original_source/browser/src/vts-libbrowser/camera/traversal.cpp).
package strategy

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/GrainArc/vtsclient/geo"
	"github.com/GrainArc/vtsclient/traverse"
)

// Mode selects a layer's traversal strategy (spec §4.6 / SPEC_FULL §12).
type Mode int

const (
	None Mode = iota
	Flat
	Hierarchical
	Stable
	Balanced
	Fixed
	DistanceBaseFixed
)

// Options carries the per-layer thresholds the Fixed/DistanceBaseFixed
// strategies need; everything else reads thresholds off ctx directly.
type Options struct {
	FixedTraversalLod      uint8
	FixedTraversalDistance float64
}

// Run dispatches trav to its layer's configured strategy, the Go
// equivalent of CameraImpl::traverseRender's switch.
func Run(ctx *traverse.Context, n *traverse.Node, mode Mode, opts Options, renderFn func(*traverse.Node), renderCoarserFn func(*traverse.Node)) {
	switch mode {
	case None:
		return
	case Flat:
		RunFlat(ctx, n, renderFn)
	case Hierarchical:
		RunHierarchical(ctx, n, false, renderFn)
	case Stable:
		RunStable(ctx, n, 0, renderFn)
	case Balanced:
		RunBalanced(ctx, n, false, renderFn, renderCoarserFn)
	case Fixed:
		RunFixed(ctx, n, opts, renderFn)
	case DistanceBaseFixed:
		RunDistanceBaseFixed(ctx, n, opts, renderFn)
	}
}

// viewHalfExtent is the frustum stand-in's half-extent around the focus
// point: real frustum culling is the renderer collaborator's job (spec
// §1), so this is deliberately large enough that geo.Visible only ever
// rejects a node whose navigation-SRS footprint is nowhere near the
// camera, not one the real frustum would clip.
const viewHalfExtent = 1e12

func visible(ctx *traverse.Context, n *traverse.Node) bool {
	box := n.AabbPhys()
	f := geo.NewFrustum(orb.Point{ctx.FocusPosPhys.X, ctx.FocusPosPhys.Y}, viewHalfExtent)
	navBound := orb.Bound{
		Min: orb.Point{box.Min.X, box.Min.Y},
		Max: orb.Point{box.Max.X, box.Max.Y},
	}
	return geo.Visible(f, box, navBound)
}

func coarsenessTest(ctx *traverse.Context, n *traverse.Node) bool {
	if n.Meta == nil {
		return false
	}
	box := n.AabbPhys()
	if box.IsUnknown() {
		return false
	}
	dist := box.AxisDist(ctx.FocusPosPhys)
	if dist <= 0 {
		return true
	}
	samples := ctx.NavigationSamplesPerViewExtent
	if samples <= 0 {
		samples = 1
	}
	maxScale := ctx.MaxTexelToPixelScale
	if maxScale <= 0 {
		maxScale = 1.5 // maxTexelToPixelScale default, spec §6
	}
	return geo.CoarsenessTest(box, n.Meta.TexelSize, ctx.FocusPosPhys, samples, maxScale)
}

// RunFlat is travModeFlat: no touch-draws bookkeeping, renders the first
// coarse-enough (or leaf) node it reaches per branch.
func RunFlat(ctx *traverse.Context, n *traverse.Node, renderFn func(*traverse.Node)) {
	if !traverse.TravInit(ctx, n, false) {
		return
	}
	if !visible(ctx, n) {
		return
	}
	if coarsenessTest(ctx, n) || !n.HasChilds() {
		if traverse.DetermineDraws(ctx, n) {
			renderFn(n)
		}
		return
	}
	for _, c := range n.Childs {
		if c != nil {
			RunFlat(ctx, c, renderFn)
		}
	}
}

// RunHierarchical is travModeHierarchical: always recurses into every
// child (load-only when any child isn't ready), rendering the parent
// as a fallback the moment a child subtree can't cover for it.
func RunHierarchical(ctx *traverse.Context, n *traverse.Node, loadOnly bool, renderFn func(*traverse.Node)) {
	if !traverse.TravInit(ctx, n, false) {
		return
	}
	n.LastRenderTick = n.LastAccessTick

	traverse.DetermineDraws(ctx, n)

	if loadOnly {
		return
	}
	if !visible(ctx, n) {
		return
	}
	if coarsenessTest(ctx, n) || !n.HasChilds() {
		if n.Determined {
			renderFn(n)
		}
		return
	}

	ok := true
	for _, c := range n.Childs {
		if c == nil {
			ok = false
			continue
		}
		if c.Surface != nil && !c.Determined {
			ok = false
		}
	}
	for _, c := range n.Childs {
		if c != nil {
			RunHierarchical(ctx, c, !ok, renderFn)
		}
	}
	if !ok && n.Determined {
		renderFn(n)
	}
}

// RunStable's mode parameter mirrors the original's int mode: 0 default,
// 1 load-only (returns whether it loaded), 2 render-only.
func RunStable(ctx *traverse.Context, n *traverse.Node, mode int, renderFn func(*traverse.Node)) bool {
	if mode == 2 {
		if n.Meta == nil {
			return false
		}
		n.LastAccessTick = ctx.Tick
	} else if !traverse.TravInit(ctx, n, false) {
		return false
	}

	if !visible(ctx, n) {
		return true
	}

	if mode == 2 {
		if n.Determined {
			traverse.TouchDraws(ctx, n)
			renderFn(n)
		} else {
			for _, c := range n.Childs {
				if c != nil {
					RunStable(ctx, c, 2, renderFn)
				}
			}
		}
		return true
	}

	if coarsenessTest(ctx, n) || !n.HasChilds() {
		traverse.DetermineDraws(ctx, n)
		if mode == 1 {
			n.LastRenderTick = ctx.Tick
			return n.Determined
		}
		if n.Determined {
			renderFn(n)
		} else {
			for _, c := range n.Childs {
				if c != nil {
					RunStable(ctx, c, 2, renderFn)
				}
			}
		}
		return true
	}

	if mode == 0 && n.Determined {
		ok := true
		for _, c := range n.Childs {
			if c == nil {
				ok = false
				continue
			}
			if !RunStable(ctx, c, 1, renderFn) {
				ok = false
			}
		}
		if !ok {
			traverse.TouchDraws(ctx, n)
			renderFn(n)
			return true
		}
	}

	ok := true
	for _, c := range n.Childs {
		if c == nil {
			continue
		}
		if !RunStable(ctx, c, mode, renderFn) {
			ok = false
		}
	}
	return ok
}

// RunBalanced is travModeBalanced: same shape as Stable but collapses
// the explicit mode=1 "try, report back" pass into the recursive
// renderOnly flag, and only falls back to renderNodeCoarser (delegated
// to renderCoarserFn, which the caller supplies) on children that
// genuinely rendered nothing.
func RunBalanced(ctx *traverse.Context, n *traverse.Node, renderOnly bool, renderFn, renderCoarserFn func(*traverse.Node)) bool {
	if renderOnly {
		if n.Meta == nil {
			return false
		}
		n.LastAccessTick = ctx.Tick
	} else if !traverse.TravInit(ctx, n, false) {
		return false
	}

	if !visible(ctx, n) {
		return true
	}

	if renderOnly {
		if n.Determined {
			traverse.TouchDraws(ctx, n)
			renderFn(n)
			return true
		}
	} else if coarsenessTest(ctx, n) || !n.HasChilds() {
		if traverse.DetermineDraws(ctx, n) {
			renderFn(n)
			return true
		}
		renderOnly = true
	}

	oks := make([]bool, len(n.Childs))
	okCount := 0
	for i, c := range n.Childs {
		if c == nil {
			continue
		}
		oks[i] = RunBalanced(ctx, c, renderOnly, renderFn, renderCoarserFn)
		if oks[i] {
			okCount++
		}
	}
	if okCount == 0 && renderOnly {
		return false
	}
	for i, c := range n.Childs {
		if c != nil && !oks[i] && renderCoarserFn != nil {
			renderCoarserFn(c)
		}
	}
	return true
}

// RunFixed is travModeFixed: descends only while within
// FixedTraversalDistance, rendering whatever lod it bottoms out at.
func RunFixed(ctx *traverse.Context, n *traverse.Node, opts Options, renderFn func(*traverse.Node)) {
	if !traverse.TravInit(ctx, n, false) {
		return
	}
	if ctx.TravDistance(n, ctx.FocusPosPhys) > opts.FixedTraversalDistance {
		return
	}
	if n.Id.Lod >= opts.FixedTraversalLod || !n.HasChilds() {
		if traverse.DetermineDraws(ctx, n) {
			renderFn(n)
		}
		return
	}
	for _, c := range n.Childs {
		if c != nil {
			RunFixed(ctx, c, opts, renderFn)
		}
	}
}

// RunDistanceBaseFixed is travModeDistanceBaseFixed: the two-tier
// distance check from SPEC_FULL §12 — descend while the tile is closer
// than half its lod-scaled target distance (capped at maxLodDiff
// levels below FixedTraversalLod), otherwise render it as-is.
func RunDistanceBaseFixed(ctx *traverse.Context, n *traverse.Node, opts Options, renderFn func(*traverse.Node)) bool {
	if !traverse.TravInit(ctx, n, false) {
		return false
	}

	maxLodDiff := ctx.MaxLodDiff
	if maxLodDiff <= 0 {
		maxLodDiff = 4 // SPEC_FULL §12 default, the two-tier distance check's lod-diff cap
	}

	lodDiff := 0
	if int(opts.FixedTraversalLod) > int(n.Id.Lod) {
		lodDiff = int(opts.FixedTraversalLod) - int(n.Id.Lod)
	}
	targetDist := opts.FixedTraversalDistance * math.Pow(2, float64(lodDiff))

	dist := ctx.TravDistance(n, ctx.FocusPosPhys)
	if dist > targetDist {
		return false
	}

	if (lodDiff < maxLodDiff && dist > targetDist/2) || !n.HasChilds() {
		if traverse.DetermineDraws(ctx, n) {
			renderFn(n)
		}
		return true
	}

	rendered := make([]bool, len(n.Childs))
	isRendered := false
	for i, c := range n.Childs {
		if c == nil {
			continue
		}
		rendered[i] = RunDistanceBaseFixed(ctx, c, opts, renderFn)
		isRendered = isRendered || rendered[i]
	}

	if lodDiff > maxLodDiff || !isRendered {
		return isRendered
	}

	for i, c := range n.Childs {
		if c == nil || rendered[i] {
			continue
		}
		if traverse.DetermineDraws(ctx, c) {
			renderFn(c)
		}
	}
	return isRendered
}
