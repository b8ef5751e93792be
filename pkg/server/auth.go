package server

import (
	"net/http"
	"strings"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// bearerAuth rejects any request that does not carry a valid token from
// the store. Only the streamable-HTTP transport is wrapped; stdio never
// authenticates.
func bearerAuth(store *TokenStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			util.Warnf("Missing or invalid auth header for %s %s", r.Method, r.URL.Path)
			writeAuthError(w, "Missing or invalid Authorization header")
			return
		}
		if !store.Validate(strings.TrimPrefix(header, "Bearer ")) {
			util.Warnf("Invalid token attempt from %s", r.RemoteAddr)
			writeAuthError(w, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
