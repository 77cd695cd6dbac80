package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// DebugTenantHeader may name the tenant in test deployments only.
const DebugTenantHeader = "X-Tenant-Debug"

var bearerTenant = regexp.MustCompile(`(?i)^Bearer\s+tenant[:=](.+)$`)

type tenantKey struct{}

// TenantFromContext returns the tenant resolved by the auth middleware.
func TenantFromContext(ctx context.Context) (domain.TenantID, bool) {
	t, ok := ctx.Value(tenantKey{}).(domain.TenantID)
	return t, ok
}

// tenantFromRequest resolves the caller's tenant. The debug header is only
// consulted when trustDebug is set and the Authorization header yields none.
func tenantFromRequest(r *http.Request, trustDebug bool) (domain.TenantID, error) {
	if m := bearerTenant.FindStringSubmatch(strings.TrimSpace(r.Header.Get("Authorization"))); m != nil {
		if t, err := domain.ParseTenantID(m[1]); err == nil {
			return t, nil
		}
	}
	if trustDebug {
		if t, err := domain.ParseTenantID(r.Header.Get(DebugTenantHeader)); err == nil {
			return t, nil
		}
	}
	return "", domain.ErrTenantRequired
}

func (s *Server) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantFromRequest(r, s.opts.TrustDebugHeader)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized,
				"Missing or invalid tenant. Use Authorization: Bearer tenant:<id>")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, tenant)))
	})
}
