package page

import (
	_ "embed"
	"net/http"
	"strconv"
)

//go:embed index.html
var index []byte

// Handler serves the position page on "/". Mount it as the catch-all route;
// any other path is answered with 404.
type Handler struct{}

// New returns the page handler.
func New() http.Handler {
	return Handler{}
}

func (Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(index)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(index) //nolint:errcheck
}

// Size returns the byte length of the embedded page.
func Size() int {
	return len(index)
}
