package roles

// Role represents a user's permission level within a hospital.
type Role string

const (
	Viewer     Role = "viewer"
	Staff      Role = "staff"
	Supervisor Role = "supervisor"
	HOD        Role = "hod"
	CFO        Role = "cfo"
	Admin      Role = "admin"
)

// HierarchyLevel orders roles for permission checks.
type HierarchyLevel int

const (
	ViewerLevel     HierarchyLevel = 1
	StaffLevel      HierarchyLevel = 2
	SupervisorLevel HierarchyLevel = 3
	HODLevel        HierarchyLevel = 4
	CFOLevel        HierarchyLevel = 5
	AdminLevel      HierarchyLevel = 6
)

func (r Role) GetHierarchyLevel() HierarchyLevel {
	switch r {
	case Viewer:
		return ViewerLevel
	case Staff:
		return StaffLevel
	case Supervisor:
		return SupervisorLevel
	case HOD:
		return HODLevel
	case CFO:
		return CFOLevel
	case Admin:
		return AdminLevel
	default:
		return ViewerLevel
	}
}

// HasPermission checks whether the role meets the required hierarchy level.
func (r Role) HasPermission(requiredRole Role) bool {
	return r.GetHierarchyLevel() >= requiredRole.GetHierarchyLevel()
}

func (r Role) IsValid() bool {
	switch r {
	case Viewer, Staff, Supervisor, HOD, CFO, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
