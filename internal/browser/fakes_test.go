// File: internal/browser/fakes_test.go
package browser

import (
	"context"
	"fmt"
	"time"
)

// fakeElement is an in-memory Element. Script calls are routed on the
// shared script constants so the production code paths stay honest.
type fakeElement struct {
	enabled   bool
	displayed bool
	dead      bool
	attrs     map[string]string
	text      string
	tag       string
	value     string

	keysStick   bool // SendKeys appends to value
	scriptedSet bool // scripted value assignment updates value
	forceEnable bool // force-enable script succeeds

	clickResults   []error // consumed one per native click
	scriptClickErr error
	dispatchErr    error
	clearErr       error
	sendKeysErr    error

	clicks       int
	scriptClicks int
	dispatches   int
	calls        []string
	onAnyClick   func() // fired after any successful click variant
	afterClick   func(*fakeElement)
}

func newFakeElement() *fakeElement {
	return &fakeElement{
		enabled:   true,
		displayed: true,
		attrs:     map[string]string{},
		tag:       "button",
		keysStick: true,
	}
}

func (f *fakeElement) staleErr() error {
	return fmt.Errorf("%w: node is detached", ErrStale)
}

func (f *fakeElement) Enabled(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "enabled")
	if f.dead {
		return false, f.staleErr()
	}
	return f.enabled, nil
}

func (f *fakeElement) Displayed(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "displayed")
	if f.dead {
		return false, f.staleErr()
	}
	return f.displayed, nil
}

func (f *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	f.calls = append(f.calls, "attribute:"+name)
	if f.dead {
		return "", f.staleErr()
	}
	return f.attrs[name], nil
}

func (f *fakeElement) Text(ctx context.Context) (string, error) {
	if f.dead {
		return "", f.staleErr()
	}
	return f.text, nil
}

func (f *fakeElement) TagName(ctx context.Context) (string, error) {
	if f.dead {
		return "", f.staleErr()
	}
	return f.tag, nil
}

func (f *fakeElement) Click(ctx context.Context) error {
	f.clicks++
	if f.dead {
		return f.staleErr()
	}
	var err error
	if len(f.clickResults) > 0 {
		err = f.clickResults[0]
		f.clickResults = f.clickResults[1:]
	}
	if f.afterClick != nil {
		f.afterClick(f)
	}
	if err == nil && f.onAnyClick != nil {
		f.onAnyClick()
	}
	return err
}

func (f *fakeElement) SendKeys(ctx context.Context, text string) error {
	if f.dead {
		return f.staleErr()
	}
	if f.sendKeysErr != nil {
		return f.sendKeysErr
	}
	if f.keysStick {
		f.value += text
	}
	return nil
}

func (f *fakeElement) Clear(ctx context.Context) error {
	if f.dead {
		return f.staleErr()
	}
	if f.clearErr != nil {
		return f.clearErr
	}
	f.value = ""
	return nil
}

func (f *fakeElement) Call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	if f.dead {
		return f.staleErr()
	}
	switch fn {
	case scriptIsEnabled:
		setResult(res, f.enabled)
	case scriptIsDisplayed:
		setResult(res, f.displayed)
	case scriptValue:
		setResult(res, f.value)
	case scriptText:
		setResult(res, f.text)
	case scriptTagName:
		setResult(res, f.tag)
	case scriptAttribute:
		if len(args) == 1 {
			if name, ok := args[0].(string); ok {
				setResult(res, f.attrs[name])
			}
		}
	case scriptClick:
		f.calls = append(f.calls, "scriptClick")
		f.scriptClicks++
		if f.scriptClickErr != nil {
			return f.scriptClickErr
		}
		if f.onAnyClick != nil {
			f.onAnyClick()
		}
	case scriptDispatchClick:
		f.calls = append(f.calls, "dispatchClick")
		f.dispatches++
		if f.dispatchErr != nil {
			return f.dispatchErr
		}
		if f.onAnyClick != nil {
			f.onAnyClick()
		}
	case scriptClearValue:
		f.value = ""
	case scriptSetValueAndNotify, scriptSetValueAndBlur:
		f.calls = append(f.calls, "scriptedSet")
		if f.scriptedSet && len(args) == 1 {
			if v, ok := args[0].(string); ok {
				f.value = v
			}
		}
	case scriptForceEnable:
		if f.forceEnable {
			f.enabled = true
		}
		setResult(res, f.enabled)
	case scriptSuppressListeners:
		f.calls = append(f.calls, "suppressListeners")
	case scriptRemoveNode:
		f.calls = append(f.calls, "removeNode")
		f.displayed = false
	case scriptNeutralizeOverlays, scriptScrollCenter, scriptFocus, scriptSelectContents, scriptHitsTarget:
		f.calls = append(f.calls, "aux")
	}
	return nil
}

func setResult(res interface{}, v interface{}) {
	switch p := res.(type) {
	case *bool:
		if b, ok := v.(bool); ok {
			*p = b
		}
	case *string:
		if s, ok := v.(string); ok {
			*p = s
		}
	case *int:
		if n, ok := v.(int); ok {
			*p = n
		}
	}
}

// fakeDriver serves elements keyed by selector string and polls like the
// real session does.
type fakeDriver struct {
	elements map[string][]*fakeElement
	queryErr error
	navErr   error

	navigated  []string
	bodyClicks int
	evalHook   func(script string, res interface{}) error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{elements: map[string][]*fakeElement{}}
}

func (d *fakeDriver) add(selector string, els ...*fakeElement) {
	d.elements[selector] = append(d.elements[selector], els...)
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return d.navErr
}

func (d *fakeDriver) Query(ctx context.Context, loc Locator) ([]Element, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	fakes := d.elements[loc.Selector()]
	elements := make([]Element, 0, len(fakes))
	for _, f := range fakes {
		elements = append(elements, f)
	}
	return elements, nil
}

func (d *fakeDriver) WaitFor(ctx context.Context, loc Locator, mode ReadinessMode, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		elements, err := d.Query(ctx, loc)
		if err == nil {
			for _, el := range elements {
				if fakeSatisfies(ctx, el, mode) {
					return el, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s did not become %s within %s", ErrNotFound, loc, mode, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: wait aborted", ErrNotFound)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func fakeSatisfies(ctx context.Context, el Element, mode ReadinessMode) bool {
	if mode == Present {
		return true
	}
	displayed, err := el.Displayed(ctx)
	if err != nil || !displayed {
		return false
	}
	if mode == Visible {
		return true
	}
	enabled, err := el.Enabled(ctx)
	return err == nil && enabled
}

func (d *fakeDriver) Evaluate(ctx context.Context, script string, res interface{}) error {
	if d.evalHook != nil {
		return d.evalHook(script, res)
	}
	if script == scriptClickBody {
		d.bodyClicks++
	}
	return nil
}

var (
	_ Driver  = (*fakeDriver)(nil)
	_ Element = (*fakeElement)(nil)
)
