// File: internal/browser/scripts.go
package browser

// Node-scoped scripts, invoked through Element.Call with the node bound as
// `this`. Kept as named constants so the fake driver in tests can route on
// them.
const (
	scriptIsEnabled = `function() { return !this.disabled; }`

	scriptIsDisplayed = `function() {
		if (!this.isConnected) return false;
		const style = window.getComputedStyle(this);
		if (style.display === 'none' || style.visibility === 'hidden' || parseFloat(style.opacity) === 0) return false;
		const rect = this.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	}`

	scriptAttribute = `function(name) {
		const v = this.getAttribute(name);
		return v === null ? '' : v;
	}`

	scriptText = `function() { return (this.innerText || this.textContent || '').trim(); }`

	scriptTagName = `function() { return this.tagName.toLowerCase(); }`

	scriptScrollCenter = `function() { this.scrollIntoView({block: 'center', inline: 'center'}); }`

	scriptFocus = `function() { this.focus(); }`

	scriptClick = `function() { this.click(); }`

	// scriptHitsTarget checks whether the topmost element at a viewport
	// point is the node or one of its descendants.
	scriptHitsTarget = `function(x, y) {
		const el = document.elementFromPoint(x, y);
		return el === this || this.contains(el);
	}`

	// scriptNeutralizeOverlays disables pointer events on every element
	// stacked over the node's center, so a native click lands on the node.
	scriptNeutralizeOverlays = `function() {
		const rect = this.getBoundingClientRect();
		const cx = rect.left + rect.width / 2;
		const cy = rect.top + rect.height / 2;
		let cleared = 0;
		for (const el of document.elementsFromPoint(cx, cy)) {
			if (el === this || this.contains(el) || el.contains(this)) continue;
			el.style.pointerEvents = 'none';
			cleared++;
		}
		return cleared;
	}`

	// scriptDispatchClick synthesizes the full mouse event sequence on the
	// node, bypassing hit testing entirely.
	scriptDispatchClick = `function() {
		for (const type of ['mousedown', 'mouseup', 'click']) {
			this.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
		}
	}`

	scriptForceEnable = `function() {
		this.removeAttribute('disabled');
		this.removeAttribute('readonly');
		this.disabled = false;
		return !this.disabled;
	}`

	scriptValue = `function() { return this.value === undefined ? '' : String(this.value); }`

	scriptClearValue = `function() {
		this.value = '';
		this.dispatchEvent(new Event('input', {bubbles: true}));
	}`

	scriptSetValueAndNotify = `function(value) {
		this.value = value;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`

	scriptSetValueAndBlur = `function(value) {
		this.value = value;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		this.dispatchEvent(new Event('blur', {bubbles: true}));
	}`

	// scriptSuppressListeners defeats input-mask libraries that reformat the
	// field on every keystroke: their handlers never see the events.
	scriptSuppressListeners = `function() {
		const stop = e => e.stopImmediatePropagation();
		for (const type of ['input', 'keydown', 'keyup', 'keypress']) {
			this.addEventListener(type, stop, {capture: true});
		}
		this.oninput = null;
		this.onkeydown = null;
		this.onkeyup = null;
		this.onkeypress = null;
	}`

	scriptSelectContents = `function() { if (typeof this.select === 'function') this.select(); }`

	scriptRemoveNode = `function() { this.remove(); }`
)

// Page-scoped scripts, run through Driver.Evaluate.
const (
	scriptClickBody = `document.body.click();`

	// scriptOverlaySweep removes top-level containers that look like modal
	// overlays: fixed or absolute position with a high stacking order, a
	// translucent backdrop, or a telltale class name.
	scriptOverlaySweep = `(() => {
		let removed = 0;
		for (const el of Array.from(document.body.children)) {
			const style = window.getComputedStyle(el);
			if (style.position !== 'fixed' && style.position !== 'absolute') continue;
			const z = parseInt(style.zIndex, 10) || 0;
			const cls = String(el.className || '').toLowerCase();
			const id = String(el.id || '').toLowerCase();
			const alphaMatch = style.backgroundColor.match(/rgba\(.+,\s*([\d.]+)\)/);
			const translucent = alphaMatch !== null && parseFloat(alphaMatch[1]) > 0 && parseFloat(alphaMatch[1]) < 1;
			if (z >= 1000 || translucent || /overlay|modal|popup|backdrop|dialog/.test(cls + ' ' + id)) {
				el.remove();
				removed++;
			}
		}
		return removed;
	})()`
)
