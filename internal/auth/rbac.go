package auth

import (
	"net/http"

	"it-inventory-api/internal/models"
)

// Capability is a permission checked at the HTTP boundary
type Capability string

const (
	CapRead           Capability = "read"
	CapWriteAssets    Capability = "assets:write"
	CapWriteEmployees Capability = "employees:write"
	CapImport         Capability = "import"
	CapTriggerSweep   Capability = "sweep:trigger"
	CapForceSweep     Capability = "sweep:force"
	CapManageUsers    Capability = "users:manage"
)

var (
	viewerCaps     = []Capability{CapRead}
	technicianCaps = append(append([]Capability{}, viewerCaps...), CapWriteAssets, CapWriteEmployees, CapImport, CapTriggerSweep)
	adminCaps      = append(append([]Capability{}, technicianCaps...), CapForceSweep, CapManageUsers)
)

var roleCapabilities = map[models.Role]map[Capability]bool{
	models.RoleViewer:     capSet(viewerCaps),
	models.RoleTechnician: capSet(technicianCaps),
	models.RoleAdmin:      capSet(adminCaps),
}

func capSet(caps []Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Can reports whether role holds capability c
func Can(role models.Role, c Capability) bool {
	return roleCapabilities[role][c]
}

// RequireCapability rejects requests whose role lacks capability c
func RequireCapability(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				SendErrorResponse(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
				return
			}
			if !Can(claims.Role, c) {
				SendErrorResponse(w, "Insufficient permissions", "FORBIDDEN", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
