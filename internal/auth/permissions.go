package auth

import "github.com/spec-kit/workspace-service/internal/domain"

// The authorization engine is pure: it only sees the caller's role set and
// the required capabilities. Account status is a precondition checked by the
// access gate before these run.

// EffectivePermissions computes the union of permissions across roles.
func EffectivePermissions(roles []domain.Role) map[domain.Permission]struct{} {
	effective := make(map[domain.Permission]struct{})
	for _, role := range roles {
		for _, perm := range role.Permissions {
			effective[perm] = struct{}{}
		}
	}
	return effective
}

// HasPermission reports whether any role grants the required capability.
func HasPermission(roles []domain.Role, required domain.Permission) bool {
	for _, role := range roles {
		if role.HasPermission(required) {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one required capability is granted.
// An empty requirement list is satisfied trivially.
func HasAny(roles []domain.Role, required ...domain.Permission) bool {
	if len(required) == 0 {
		return true
	}
	effective := EffectivePermissions(roles)
	for _, perm := range required {
		if _, ok := effective[perm]; ok {
			return true
		}
	}
	return false
}

// HasAll reports whether every required capability is granted.
func HasAll(roles []domain.Role, required ...domain.Permission) bool {
	effective := EffectivePermissions(roles)
	for _, perm := range required {
		if _, ok := effective[perm]; !ok {
			return false
		}
	}
	return true
}
