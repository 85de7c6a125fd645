package domain

// Role names as stored in the roles table. Endpoints declare which of
// these they require at route registration time.
const (
	RoleAdmin  = "Admin"
	RoleEditor = "Editor"
	RoleMember = "Member"
)
