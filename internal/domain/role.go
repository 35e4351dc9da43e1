package domain

// RoleTier is the capability tier a role classifies into.
type RoleTier int

const (
	TierRegular RoleTier = iota
	TierStaff
	TierManager
	TierSuperAdmin
)

func (t RoleTier) String() string {
	switch t {
	case TierSuperAdmin:
		return "super_admin"
	case TierManager:
		return "manager"
	case TierStaff:
		return "staff"
	default:
		return "regular"
	}
}

// Role machine names. These are static reference data seeded by migrations.
const (
	RoleSuperAdmin string = "super_admin"

	RoleMarketingManager   string = "marketing_manager"
	RoleSalesManager       string = "sales_manager"
	RoleDomesticOpsManager string = "domestic_ops_manager"
	RoleEximOpsManager     string = "exim_ops_manager"
	RoleImportDTDManager   string = "import_dtd_ops_manager"
	RoleWHTrafficManager   string = "wh_traffic_ops_manager"

	RoleMarketingStaff   string = "marketing_staff"
	RoleSalesStaff       string = "sales_staff"
	RoleDomesticOpsStaff string = "domestic_ops_staff"
	RoleEximOpsStaff     string = "exim_ops_staff"
	RoleImportDTDStaff   string = "import_dtd_ops_staff"
	RoleWHTrafficStaff   string = "wh_traffic_ops_staff"

	RoleUser string = "user"
)

// Role is a static reference record backing the role machine names.
type Role struct {
	ID          string
	Name        string
	DisplayName string
}

var roleTiers = map[string]RoleTier{
	RoleSuperAdmin: TierSuperAdmin,

	RoleMarketingManager:   TierManager,
	RoleSalesManager:       TierManager,
	RoleDomesticOpsManager: TierManager,
	RoleEximOpsManager:     TierManager,
	RoleImportDTDManager:   TierManager,
	RoleWHTrafficManager:   TierManager,

	RoleMarketingStaff:   TierStaff,
	RoleSalesStaff:       TierStaff,
	RoleDomesticOpsStaff: TierStaff,
	RoleEximOpsStaff:     TierStaff,
	RoleImportDTDStaff:   TierStaff,
	RoleWHTrafficStaff:   TierStaff,

	RoleUser: TierRegular,
}

// Classify maps a role machine name to its capability tier. Unrecognized
// names classify as TierRegular so an unknown role never gains privilege.
func Classify(roleName string) RoleTier {
	if tier, ok := roleTiers[roleName]; ok {
		return tier
	}
	return TierRegular
}
