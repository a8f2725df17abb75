// File: internal/browser/element.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// cdpElement is the chromedp-backed Element. It keeps the node's backend id,
// which survives DOM reshuffles better than the frontend node id; every
// operation re-resolves the node, and a failed resolution classifies as
// stale.
type cdpElement struct {
	s    *Session
	node *cdp.Node
}

var _ Element = (*cdpElement)(nil)

func (e *cdpElement) run(ctx context.Context, action chromedp.Action) error {
	opCtx, cancel := e.s.operationContext(ctx)
	defer cancel()
	return chromedp.Run(opCtx, action)
}

// callOn invokes fn with the node bound as `this`. Must run inside a
// chromedp action context.
func (e *cdpElement) callOn(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	if obj == nil || obj.ObjectID == "" {
		return ErrStale
	}
	if res == nil {
		var discard interface{}
		res = &discard
	}
	return chromedp.CallFunctionOn(fn, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
}

// Call implements Element.
func (e *cdpElement) Call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return e.callOn(ctx, fn, res, args...)
	}))
}

// Enabled implements Element.
func (e *cdpElement) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.Call(ctx, scriptIsEnabled, &enabled)
	return enabled, err
}

// Displayed implements Element.
func (e *cdpElement) Displayed(ctx context.Context) (bool, error) {
	var displayed bool
	err := e.Call(ctx, scriptIsDisplayed, &displayed)
	return displayed, err
}

// Attribute implements Element.
func (e *cdpElement) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	err := e.Call(ctx, scriptAttribute, &value, name)
	return value, err
}

// Text implements Element.
func (e *cdpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.Call(ctx, scriptText, &text)
	return text, err
}

// TagName implements Element.
func (e *cdpElement) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.Call(ctx, scriptTagName, &tag)
	return tag, err
}

// Click scrolls the node into view, verifies the center point actually hits
// the node, and dispatches a native mouse press/release pair.
func (e *cdpElement) Click(ctx context.Context) error {
	return e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id := e.node.BackendNodeID

		if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(id).Do(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}

		quads, err := dom.GetContentQuads().WithBackendNodeID(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
		if len(quads) == 0 {
			return fmt.Errorf("%w: node has no layout box", ErrStale)
		}
		x, y := quadCenter(quads[0])

		var onTarget bool
		if err := e.callOn(ctx, scriptHitsTarget, &onTarget, x, y); err != nil {
			return err
		}
		if !onTarget {
			return fmt.Errorf("%w at (%.0f, %.0f)", ErrIntercepted, x, y)
		}

		press := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1)
		if err := press.Do(ctx); err != nil {
			return fmt.Errorf("mouse press failed: %w", err)
		}
		release := input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1)
		if err := release.Do(ctx); err != nil {
			return fmt.Errorf("mouse release failed: %w", err)
		}
		return nil
	}))
}

// SendKeys focuses the node and types the text as key events.
func (e *cdpElement) SendKeys(ctx context.Context, text string) error {
	return e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithBackendNodeID(e.node.BackendNodeID).Do(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
		return chromedp.KeyEvent(text).Do(ctx)
	}))
}

// Clear selects the field contents and deletes them with a key event,
// mimicking a user clearing the field.
func (e *cdpElement) Clear(ctx context.Context) error {
	return e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithBackendNodeID(e.node.BackendNodeID).Do(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
		if err := e.callOn(ctx, scriptSelectContents, nil); err != nil {
			return err
		}
		return chromedp.KeyEvent("\b").Do(ctx)
	}))
}

// quadCenter averages the quad's four corners.
func quadCenter(quad dom.Quad) (float64, float64) {
	var x, y float64
	for i := 0; i < len(quad); i += 2 {
		x += quad[i]
		y += quad[i+1]
	}
	points := float64(len(quad) / 2)
	return x / points, y / points
}
