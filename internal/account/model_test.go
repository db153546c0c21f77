package account

import "testing"

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"staff", "admin", "super_admin"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) error = %v, want nil", valid, err)
		}
	}

	for _, invalid := range []string{"", "owner", "Admin", "superadmin"} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("ParseRole(%q) error = nil, want error", invalid)
		}
	}
}

func TestRoleCanReview(t *testing.T) {
	cases := []struct {
		role Role
		want bool
	}{
		{RoleStaff, false},
		{RoleAdmin, true},
		{RoleSuperAdmin, true},
		{Role("owner"), false},
	}
	for _, c := range cases {
		if got := c.role.CanReview(); got != c.want {
			t.Errorf("%q.CanReview() = %v, want %v", c.role, got, c.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"A@X.com", "a@x.com"},
		{"  user@example.org ", "user@example.org"},
		{"already@lower.io", "already@lower.io"},
	}
	for _, c := range cases {
		if got := NormalizeEmail(c.in); got != c.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
