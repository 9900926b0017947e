package collector

// In-page measurement scripts. Each returns a plain JSON-serializable object
// so chromedp can unmarshal straight into the matching Go struct.

// timingScript reads the navigation, paint and layout-shift entries.
// Metrics the browser has not reported yet come back as zero.
const timingScript = `(() => {
	const out = {
		loadTimeMs: 0, domContentLoadedMs: 0, ttfbMs: 0,
		firstContentfulPaintMs: 0, timeToInteractiveMs: 0,
		cumulativeLayoutShift: 0
	};
	const nav = performance.getEntriesByType('navigation')[0];
	if (nav) {
		out.loadTimeMs = nav.loadEventEnd || nav.duration || 0;
		out.domContentLoadedMs = nav.domContentLoadedEventEnd || 0;
		out.ttfbMs = nav.responseStart || 0;
		out.timeToInteractiveMs = nav.domInteractive || 0;
	}
	for (const entry of performance.getEntriesByType('paint')) {
		if (entry.name === 'first-contentful-paint') {
			out.firstContentfulPaintMs = entry.startTime;
		}
	}
	try {
		for (const entry of performance.getEntriesByType('layout-shift')) {
			if (!entry.hadRecentInput) { out.cumulativeLayoutShift += entry.value; }
		}
	} catch (e) { /* layout-shift entries are not supported everywhere */ }
	return out;
})()`

// contentScript gathers the raw word, image, link, structured-data and
// testimonial signals. Classification happens on the Go side.
const contentScript = `(() => {
	const text = document.body ? document.body.innerText : '';
	const words = text.trim().split(/\s+/).filter(w => w.length > 0);

	const sentences = text.split(/[.!?]+/).filter(s => s.trim().length > 0);

	const images = Array.from(document.querySelectorAll('img')).map(img => ({
		src: img.getAttribute('src') || '',
		alt: img.getAttribute('alt'),
		loading: img.getAttribute('loading') || '',
		naturalWidth: img.naturalWidth || 0,
		displayWidth: img.clientWidth || 0
	}));

	const links = Array.from(document.querySelectorAll('a')).map(a => ({
		href: a.getAttribute('href') || '',
		rel: a.getAttribute('rel') || '',
		text: a.textContent.trim(),
		inNav: !!a.closest('nav, header, [role="navigation"]')
	}));

	const structured = Array.from(
		document.querySelectorAll('script[type="application/ld+json"]')
	).map(s => s.textContent);

	const testimonials = Array.from(document.querySelectorAll(
		'[class*="testimonial" i], [id*="testimonial" i], [class*="review" i], blockquote'
	)).map(el => el.textContent.trim()).filter(t => t.length > 0);

	return {
		wordCount: words.length,
		sentenceCount: sentences.length,
		images: images,
		links: links,
		structuredData: structured,
		testimonials: testimonials
	};
})()`

// resourceScript groups resource-timing entries into script/style/image
// breakdowns.
const resourceScript = `(() => {
	const out = {
		scripts: {count: 0, bytes: 0},
		styles: {count: 0, bytes: 0},
		images: {count: 0, bytes: 0}
	};
	for (const entry of performance.getEntriesByType('resource')) {
		const size = entry.transferSize || entry.encodedBodySize || 0;
		switch (entry.initiatorType) {
		case 'script':
			out.scripts.count++; out.scripts.bytes += size;
			break;
		case 'link':
		case 'css':
			out.styles.count++; out.styles.bytes += size;
			break;
		case 'img':
			out.images.count++; out.images.bytes += size;
			break;
		}
	}
	return out;
})()`

// accessibilityScript counts coarse accessibility signals.
const accessibilityScript = `(() => {
	return {
		imagesWithoutAlt: document.querySelectorAll('img:not([alt])').length,
		ariaAttributes: document.querySelectorAll(
			'[aria-label], [aria-labelledby], [aria-describedby], [role]').length,
		hasLang: !!document.documentElement.getAttribute('lang')
	};
})()`

// hreflangScript lists the declared alternate languages.
const hreflangScript = `Array.from(
	document.querySelectorAll('link[rel="alternate"][hreflang]')
).map(l => l.getAttribute('hreflang'))`
