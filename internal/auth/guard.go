package auth

import (
	"slices"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

// RequireGroupMember passes when u belongs to groupID.
func RequireGroupMember(u *entity.User, groupID string) error {
	if u == nil || groupID == "" || u.GroupRef() != groupID {
		return apperr.Forbidden("this is not your group's claim")
	}
	return nil
}

// RequireOwner passes when u is the owner of a resource.
func RequireOwner(u *entity.User, ownerID string) error {
	if u == nil || ownerID == "" || u.ID != ownerID {
		return apperr.Forbidden("you do not have permission")
	}
	return nil
}

// RequireSecretaryOf passes when u is the secretary of groupID.
func RequireSecretaryOf(u *entity.User, groupID string) error {
	if u == nil || u.Role != entity.RoleSecretary || groupID == "" || u.GroupRef() != groupID {
		return apperr.Forbidden("you do not have permission")
	}
	return nil
}

// RequireRole passes when u holds one of roles.
func RequireRole(u *entity.User, roles ...entity.Role) error {
	if u == nil || u.Role == entity.RoleUnset || !slices.Contains(roles, u.Role) {
		return apperr.Forbidden("you do not have permission")
	}
	return nil
}
