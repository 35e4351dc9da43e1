package domain

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		role string
		want RoleTier
	}{
		{"super admin", RoleSuperAdmin, TierSuperAdmin},
		{"marketing manager", RoleMarketingManager, TierManager},
		{"sales manager", RoleSalesManager, TierManager},
		{"domestic ops manager", RoleDomesticOpsManager, TierManager},
		{"exim ops manager", RoleEximOpsManager, TierManager},
		{"import dtd manager", RoleImportDTDManager, TierManager},
		{"wh traffic manager", RoleWHTrafficManager, TierManager},
		{"marketing staff", RoleMarketingStaff, TierStaff},
		{"sales staff", RoleSalesStaff, TierStaff},
		{"domestic ops staff", RoleDomesticOpsStaff, TierStaff},
		{"exim ops staff", RoleEximOpsStaff, TierStaff},
		{"import dtd staff", RoleImportDTDStaff, TierStaff},
		{"wh traffic staff", RoleWHTrafficStaff, TierStaff},
		{"plain user", RoleUser, TierRegular},
		{"unknown role", "shift_supervisor", TierRegular},
		{"empty role", "", TierRegular},
		{"case sensitive", "Super_Admin", TierRegular},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.role); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestTierOrdering(t *testing.T) {
	if !(TierRegular < TierStaff && TierStaff < TierManager && TierManager < TierSuperAdmin) {
		t.Fatal("tier ordering broken")
	}
}
