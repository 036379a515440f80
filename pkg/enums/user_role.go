package enums

// UserRole distinguishes the two marketplace actors.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleFarmer   UserRole = "farmer"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleCustomer, UserRoleFarmer:
		return true
	}
	return false
}

func (r UserRole) String() string {
	return string(r)
}
