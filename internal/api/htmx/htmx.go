// internal/api/htmx/htmx.go
package htmx

import (
	"net/http"
	"strings"
)

const (
	// TriggerHeader fires a client-side event after the swap.
	TriggerHeader    = "HX-Trigger"
	redirectHeader   = "HX-Redirect"
	currentURLHeader = "HX-Current-URL"
)

func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// CurrentURL is the browser URL of the page that issued the request.
func CurrentURL(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(currentURLHeader))
}

// Redirect asks htmx to navigate the whole page to path.
func Redirect(w http.ResponseWriter, path string) {
	w.Header().Set(redirectHeader, path)
	w.WriteHeader(http.StatusNoContent)
}
