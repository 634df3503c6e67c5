package middleware

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

// RoleAdmin gates quote management, import and likes reset.
const RoleAdmin = "admin"

// ContextKeyPrincipal holds the *Principal once a guard has resolved it.
const ContextKeyPrincipal = "principal"

// Principal is the caller identity asserted by the gateway. The gateway
// verifies credentials; this service only reads its headers.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries role.
func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// PrincipalFromHeaders reads the subject header and the comma-separated
// roles header named in cfg. A nil cfg uses X-User-ID and X-User-Roles.
func PrincipalFromHeaders(c *gin.Context, cfg *config.AuthConfig) *Principal {
	subjectHeader, rolesHeader := "X-User-ID", "X-User-Roles"

	if cfg != nil {
		subjectHeader = cmp.Or(cfg.SubjectHeader, subjectHeader)
		rolesHeader = cmp.Or(cfg.RolesHeader, rolesHeader)
	}

	p := &Principal{Subject: c.GetHeader(subjectHeader)}

	for role := range strings.SplitSeq(c.GetHeader(rolesHeader), ",") {
		if role = strings.TrimSpace(role); role != "" {
			p.Roles = append(p.Roles, role)
		}
	}

	return p
}

// GetPrincipal returns the principal stored by RequireRole, or nil.
func GetPrincipal(c *gin.Context) *Principal {
	p, _ := c.Value(ContextKeyPrincipal).(*Principal)
	return p
}

// RequireRole rejects callers without role with 403. Admitted callers have
// their subject added to the request logger.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			p = PrincipalFromHeaders(c, cfg)
			c.Set(ContextKeyPrincipal, p)
		}

		if !p.HasRole(role) {
			dto.AbortWithCode(c, dto.ErrorCodeForbidden, "insufficient permissions: role "+role+" required")
			return
		}

		if p.Subject != "" {
			c.Request = c.Request.WithContext(logging.With(c.Request.Context(), slog.String("subject", p.Subject)))
		}

		c.Next()
	}
}
