package models

import "testing"

func TestHasPermissionSuperAdmin(t *testing.T) {
	admin := &AdminUser{ID: "a1", Role: RoleSuperAdmin}

	// No explicit grants, yet everything is allowed.
	checks := [][2]string{
		{ResourceReviews, ActionModerate},
		{ResourceProducts, ActionDelete},
		{ResourceAnalytics, ActionRead},
	}
	for _, c := range checks {
		if !admin.HasPermission(c[0], c[1]) {
			t.Errorf("super_admin should hold %s:%s", c[0], c[1])
		}
	}
}

func TestHasPermissionGranularGrants(t *testing.T) {
	admin := &AdminUser{
		ID:   "a2",
		Role: RoleModerator,
		Permissions: []AdminPermission{
			{Resource: ResourceReviews, Actions: []string{ActionRead, ActionModerate}},
			{Resource: ResourceProducts, Actions: []string{ActionRead}},
		},
	}

	if !admin.HasPermission(ResourceReviews, ActionModerate) {
		t.Error("granted reviews:moderate should be allowed")
	}
	if admin.HasPermission(ResourceReviews, ActionDelete) {
		t.Error("ungranted reviews:delete should be denied")
	}
	if admin.HasPermission(ResourceProducts, ActionWrite) {
		t.Error("ungranted products:write should be denied")
	}
	if admin.HasPermission(ResourceOrders, ActionRead) {
		t.Error("resource with no grants should be denied")
	}
}

func TestHasPermissionNilReceiver(t *testing.T) {
	var admin *AdminUser
	if admin.HasPermission(ResourceReviews, ActionRead) {
		t.Error("nil admin should never be authorized")
	}
}
