package middleware

import (
	"context"
	"net"
	"net/http"
)

type contextKey string

const (
	clientIDKey contextKey = "client_id"
	adminKey    contextKey = "admin"
)

// SetClientID stores the identity rate limits are counted against.
func SetClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

func GetClientID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(clientIDKey).(string)
	return id, ok && id != ""
}

func setAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdmin reports whether the request passed admin authentication.
func IsAdmin(r *http.Request) bool {
	ok, _ := r.Context().Value(adminKey).(bool)
	return ok
}

// Identify sets the client identity: the Bearer key prefix when one is sent, otherwise
// the remote IP. Run it after chi's RealIP so proxies are honoured.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetClientID(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		id := "ip:" + remoteHost(r.RemoteAddr)
		if key := extractBearerToken(r); len(key) >= keyPrefixLen {
			id = "key:" + key[:keyPrefixLen]
		}
		next.ServeHTTP(w, r.WithContext(SetClientID(r.Context(), id)))
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
