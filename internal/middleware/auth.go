package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"lake-explorer/internal/config"
	"lake-explorer/internal/domain"
)

// Authenticator resolves the caller of a request from its bearer token.
type Authenticator struct {
	validator JWTValidator
	method    string
	nameClaim string
	public    map[string]bool
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator. method names the validator
// ("jwt" or "oidc") in the request principal. Requests to publicPaths skip
// authentication.
func NewAuthenticator(validator JWTValidator, method string, cfg config.AuthConfig, logger *slog.Logger, publicPaths ...string) *Authenticator {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	nameClaim := cfg.NameClaim
	if nameClaim == "" {
		nameClaim = "email"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		validator: validator,
		method:    method,
		nameClaim: nameClaim,
		public:    public,
		logger:    logger.With("component", "auth"),
	}
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the caller in the request context otherwise.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeUnauthorized(w, "unauthorized: provide a valid JWT Bearer token")
				return
			}

			claims, err := a.validator.Validate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				a.logger.Warn("token rejected", "request_id", RequestIDFromContext(r.Context()), "error", err)
				writeUnauthorized(w, "unauthorized: invalid token")
				return
			}
			if claims.Subject == "" {
				writeUnauthorized(w, "unauthorized: token has no subject")
				return
			}

			p := domain.ContextPrincipal{Subject: claims.Subject, Name: a.principalName(claims), Method: a.method}
			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), p)))
		})
	}
}

// principalName reads the configured name claim, falling back to the subject.
func (a *Authenticator) principalName(c *JWTClaims) string {
	if v, ok := c.Raw[a.nameClaim].(string); ok && v != "" {
		return v
	}
	return c.Subject
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="lake-explorer"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
