package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// openPaths are served without a token.
var openPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware rejects requests whose Bearer token is not one of apiKeys.
// Empty keys are ignored; with no keys left the middleware is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := openPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if msg := checkBearer(r.Header.Get("Authorization"), keys); msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="retrieval"`)
				writeError(w, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns an empty string when the header carries a known token.
func checkBearer(header string, keys [][]byte) string {
	if header == "" {
		return "missing authorization header"
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "authorization header must use Bearer scheme"
	}
	token := []byte(strings.TrimPrefix(header, bearerPrefix))
	for _, k := range keys {
		if subtle.ConstantTimeCompare(token, k) == 1 {
			return ""
		}
	}
	return "invalid api key"
}
