package browser

// snapshotJS stamps every element with its bounding box, serializes the
// document and removes the stamps again in the same task, so the page
// never renders with the attributes present.
const snapshotJS = `() => {
	const attr = "data-cs-rect";
	const round = (v) => Math.round(v * 10) / 10;
	const els = document.body ? [document.body, ...document.body.querySelectorAll("*")] : [];
	for (const el of els) {
		const r = el.getBoundingClientRect();
		el.setAttribute(attr, [r.x, r.y, r.width, r.height].map(round).join(","));
	}
	const html = document.documentElement.outerHTML;
	for (const el of els) {
		el.removeAttribute(attr);
	}
	return JSON.stringify({
		html: html,
		width: window.innerWidth,
		height: window.innerHeight,
		title: document.title,
		url: location.href,
	});
}`

// scrollJS scrolls the nearest vertically scrollable ancestor of the
// element at the centre of the target rect to its top. Without a target,
// or when no ancestor scrolls, the document scroller is used.
const scrollJS = `(x, y, w, h, valid) => {
	const scrollable = (el) => {
		const style = getComputedStyle(el);
		return /(auto|scroll|overlay)/.test(style.overflowY) && el.scrollHeight > el.clientHeight;
	};
	let el = valid ? document.elementFromPoint(x + w / 2, y + h / 2) : null;
	while (el && el !== document.body && el !== document.documentElement) {
		if (scrollable(el)) {
			const before = el.scrollTop;
			el.scrollTop = 0;
			return JSON.stringify({ scroller: "container", before: before });
		}
		el = el.parentElement;
	}
	const root = document.scrollingElement || document.documentElement;
	const before = root.scrollTop;
	root.scrollTop = 0;
	window.scrollTo(0, 0);
	return JSON.stringify({ scroller: "document", before: before });
}`
