package user

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleRenter, RoleOwner, RoleAdmin:
		return true
	default:
		return false
	}
}
