package apiserver

import "net/http"

// allow wraps a route handler with the browser-facing plumbing every endpoint
// shares: permissive cross-origin headers (the UI is served from another
// origin during development), preflight short-circuiting, and the method
// check. An empty method admits any verb, for routes that dispatch on the
// method themselves.
func (s *Server) allow(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "3600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if method != "" && r.Method != method {
			s.handleMethodNotAllowed(w, r)
			return
		}

		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next(w, r)
	}
}
