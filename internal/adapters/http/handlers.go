package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/application"
	"github.com/evibes/commerce/internal/ports"
)

// Handler is the HTTP adapter entrypoint for commerce use-cases.
// Keeping only application dependencies here preserves clean adapter boundaries.
type Handler struct {
	service   *application.Service
	limiter   ports.RateLimiter
	reload    func(context.Context) error
	jwtSecret []byte
}

// NewHandler constructs an HTTP handler bound to the application service.
// reload swaps the runtime configuration and may be nil when hot reload is
// not wired.
func NewHandler(service *application.Service, limiter ports.RateLimiter, reload func(context.Context) error, jwtSecret []byte) *Handler {
	return &Handler{
		service:   service,
		limiter:   limiter,
		reload:    reload,
		jwtSecret: jwtSecret,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

// authMiddleware resolves the caller from a signed bearer token. Identity is
// established upstream; this service only trusts the subject and staff claims.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		actor, err := h.actorFromToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type actorClaims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

func (h *Handler) actorFromToken(raw string) (application.Actor, error) {
	var claims actorClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return application.Actor{}, errors.New("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return application.Actor{}, errors.New("invalid subject claim")
	}
	return application.Actor{UserID: userID, Staff: claims.Staff}, nil
}

func (h *Handler) staffMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		if !actor.Staff {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromContext(ctx context.Context) application.Actor {
	v := ctx.Value(ctxKeyActor)
	if actor, ok := v.(application.Actor); ok {
		return actor
	}
	return application.Actor{}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(pathParam(r, name))
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}

// resolveCatalogRefs serves vendor sync jobs: it maps provider category and
// brand names onto catalog rows, creating inactive placeholders on a miss.
func (h *Handler) resolveCatalogRefs(w http.ResponseWriter, r *http.Request) {
	var req application.CatalogResolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "catalog_resolve", err)
		return
	}
	refs, err := h.service.ResolveCatalogRefs(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "catalog_resolve", err)
		return
	}
	writeSuccess(w, http.StatusOK, refs)
}

func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "config reload is not wired")
		return
	}
	if err := h.reload(r.Context()); err != nil {
		writeMappedError(r.Context(), w, "config_reload", err)
		return
	}
	writeMessage(w, http.StatusOK, "configuration reloaded")
}
