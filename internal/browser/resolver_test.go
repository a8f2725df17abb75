// File: internal/browser/resolver_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver(d *fakeDriver) *Resolver {
	return NewResolver(d, 50*time.Millisecond, zap.NewNop())
}

func TestNewLocator(t *testing.T) {
	css := NewLocator("#login-button")
	assert.Equal(t, ByAttribute, css.Strategy())

	xpath := NewLocator(`//span[@data-char]`)
	assert.Equal(t, ByPathQuery, xpath.Strategy())
	assert.Equal(t, `//span[@data-char]`, xpath.Selector())
}

func TestResolveReturnsNilOnTimeout(t *testing.T) {
	r := newTestResolver(newFakeDriver())

	start := time.Now()
	el := r.Resolve(context.Background(), NewLocator("#missing"), Present, 40*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, el, "a miss is reported as nil, never as a panic or error")
	assert.Less(t, elapsed, 500*time.Millisecond, "resolve must not block past its timeout")
}

func TestResolveModeFiltering(t *testing.T) {
	d := newFakeDriver()
	hidden := newFakeElement()
	hidden.displayed = false
	d.add("#banner", hidden)

	r := newTestResolver(d)
	ctx := context.Background()

	assert.NotNil(t, r.Resolve(ctx, NewLocator("#banner"), Present, 30*time.Millisecond))
	assert.Nil(t, r.Resolve(ctx, NewLocator("#banner"), Visible, 30*time.Millisecond))

	hidden.displayed = true
	hidden.enabled = false
	assert.NotNil(t, r.Resolve(ctx, NewLocator("#banner"), Visible, 30*time.Millisecond))
	assert.Nil(t, r.Resolve(ctx, NewLocator("#banner"), Clickable, 30*time.Millisecond))
}

func TestFindAllAbsorbsDriverErrors(t *testing.T) {
	d := newFakeDriver()
	d.queryErr = assert.AnError

	r := newTestResolver(d)
	assert.Empty(t, r.FindAll(context.Background(), NewLocator(".popup")))
}

func TestIsLive(t *testing.T) {
	r := newTestResolver(newFakeDriver())
	ctx := context.Background()

	live := newFakeElement()
	assert.True(t, r.IsLive(ctx, live))

	dead := newFakeElement()
	dead.dead = true
	assert.False(t, r.IsLive(ctx, dead))

	assert.False(t, r.IsLive(ctx, nil))

	// Probing must be read-only.
	assert.Zero(t, live.clicks)
	assert.Empty(t, live.value)
}

func TestEnsureValidIdempotent(t *testing.T) {
	r := newTestResolver(newFakeDriver())
	ctx := context.Background()
	loc := NewLocator("#claim")

	el := newFakeElement()
	first := r.EnsureValid(ctx, loc, el, "claim button", 20*time.Millisecond)
	second := r.EnsureValid(ctx, loc, first, "claim button", 20*time.Millisecond)

	assert.Same(t, el, first)
	assert.Same(t, first, second)
	assert.Zero(t, el.clicks, "validation must not mutate the page")
}

func TestEnsureValidReResolvesByLocator(t *testing.T) {
	d := newFakeDriver()
	replacement := newFakeElement()
	d.add("#claim", replacement)

	r := newTestResolver(d)
	stale := newFakeElement()
	stale.dead = true

	recovered := r.EnsureValid(context.Background(), NewLocator("#claim"), stale, "claim button", 20*time.Millisecond)
	require.NotNil(t, recovered)
	assert.Same(t, Element(replacement), recovered)
}

func TestEnsureValidGivesUp(t *testing.T) {
	r := newTestResolver(newFakeDriver())
	stale := newFakeElement()
	stale.dead = true

	assert.Nil(t, r.EnsureValid(context.Background(), NewLocator("#gone"), stale, "vanished", 20*time.Millisecond))
}

func TestFindSimilarHeuristicOrder(t *testing.T) {
	newOriginal := func() *fakeElement {
		el := newFakeElement()
		el.attrs = map[string]string{
			"id":    "btn-claim",
			"class": "btn primary",
			"type":  "submit",
			"name":  "claim",
		}
		el.text = "Coletar"
		el.tag = "button"
		return el
	}

	t.Run("id attribute wins first", func(t *testing.T) {
		d := newFakeDriver()
		byID := newFakeElement()
		byClass := newFakeElement()
		d.add(`[id="btn-claim"]`, byID)
		d.add(".btn", byClass)

		r := newTestResolver(d)
		assert.Same(t, Element(byID), r.FindSimilar(context.Background(), newOriginal(), "claim"))
	})

	t.Run("class token when id is absent", func(t *testing.T) {
		d := newFakeDriver()
		byClass := newFakeElement()
		d.add(".primary", byClass)

		original := newOriginal()
		delete(original.attrs, "id")

		r := newTestResolver(d)
		assert.Same(t, Element(byClass), r.FindSimilar(context.Background(), original, "claim"))
	})

	t.Run("hidden class candidates are skipped for text match", func(t *testing.T) {
		d := newFakeDriver()
		hidden := newFakeElement()
		hidden.displayed = false
		d.add(".btn", hidden)

		byText := newFakeElement()
		d.add(`//*[contains(text(), "Coletar")]`, byText)

		original := newOriginal()
		delete(original.attrs, "id")

		r := newTestResolver(d)
		assert.Same(t, Element(byText), r.FindSimilar(context.Background(), original, "claim"))
	})

	t.Run("tag plus attributes as last resort", func(t *testing.T) {
		d := newFakeDriver()
		byTag := newFakeElement()
		d.add(`button[type="submit"][name="claim"]`, byTag)

		original := newOriginal()
		delete(original.attrs, "id")
		delete(original.attrs, "class")
		original.text = ""

		r := newTestResolver(d)
		assert.Same(t, Element(byTag), r.FindSimilar(context.Background(), original, "claim"))
	})

	t.Run("nothing matches", func(t *testing.T) {
		r := newTestResolver(newFakeDriver())
		assert.Nil(t, r.FindSimilar(context.Background(), newOriginal(), "claim"))
	})
}
