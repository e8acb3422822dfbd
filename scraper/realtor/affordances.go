package realtor

import (
	"encoding/json"
	"fmt"
)

// Affordance is one way of asking the page for more results. Script is
// evaluated in the page and must return true when it found something to act on.
type Affordance struct {
	Name   string
	Script string
}

// clickScript clicks the first visible element matching selector whose text,
// when text is non-empty, equals text.
func clickScript(selector, text string) string {
	sel, _ := json.Marshal(selector)
	txt, _ := json.Marshal(text)
	return fmt.Sprintf(`(function() {
	var want = %s;
	var els = document.querySelectorAll(%s);
	for (var i = 0; i < els.length; i++) {
		var el = els[i];
		if (!el.offsetParent) continue;
		if (want && (el.textContent || '').trim() !== want) continue;
		el.click();
		return true;
	}
	return false;
})()`, txt, sel)
}

const scrollScript = `(function() {
	var before = window.scrollY;
	window.scrollTo(0, document.body.scrollHeight);
	return document.body.scrollHeight > window.innerHeight || window.scrollY !== before;
})()`

// ListView switches the map search to its paginated list view.
var ListView = Affordance{Name: "list-view", Script: clickScript("a, button, span", "List")}

// PageAffordances returns the ordered page-advance alternatives used to reach
// page target. Infinite scroll is always last.
func PageAffordances(target int) []Affordance {
	return []Affordance{
		{Name: "next-results-link", Script: clickScript("a.lnkNextResultsPage", "")},
		{Name: "next-title", Script: clickScript(`a[title="Next"]`, "")},
		{Name: "pagination-next", Script: clickScript(".paginationLink", "Next")},
		{Name: "paginator-last", Script: clickScript(".paginator li:last-child a", "")},
		{Name: "next-button", Script: clickScript("button", "Next")},
		{Name: "next-class", Script: clickScript(`[class*="next"]`, "")},
		{Name: "page-number", Script: clickScript(".paginator a", fmt.Sprintf("%d", target))},
		{Name: "page-title", Script: clickScript(fmt.Sprintf(`a[title="Page %d"]`, target), "")},
		{Name: "scroll", Script: scrollScript},
	}
}
