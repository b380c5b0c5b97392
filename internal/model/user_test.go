package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	roles := []string{RoleUser, RoleModerator, RoleAdmin}
	for i, role := range roles {
		for j, minimum := range roles {
			if got, want := RoleAtLeast(role, minimum), i >= j; got != want {
				t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", role, minimum, got, want)
			}
		}
	}

	// Unknown or empty roles never pass, in either position.
	for _, pair := range [][2]string{{"unknown", RoleUser}, {RoleAdmin, "unknown"}, {"", ""}, {"", RoleUser}} {
		if RoleAtLeast(pair[0], pair[1]) {
			t.Errorf("RoleAtLeast(%q, %q) = true", pair[0], pair[1])
		}
	}
}

func TestIsModerator(t *testing.T) {
	want := map[string]bool{RoleAdmin: true, RoleModerator: true, RoleUser: false, "": false}
	for role, w := range want {
		if got := IsModerator(role); got != w {
			t.Errorf("IsModerator(%q) = %v, want %v", role, got, w)
		}
		if got := (Actor{Role: role}).IsModerator(); got != w {
			t.Errorf("Actor{Role: %q}.IsModerator() = %v, want %v", role, got, w)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleModerator, RoleUser} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
	if ValidRole("root") {
		t.Error(`ValidRole("root") = true`)
	}
}

func TestValidatePassword(t *testing.T) {
	for password, ok := range map[string]bool{
		"":                 false,
		"1234567":          false,
		"12345678":         true,
		"a-valid-password": true,
	} {
		if err := ValidatePassword(password); (err == nil) != ok {
			t.Errorf("ValidatePassword(%q) = %v", password, err)
		}
	}
}
