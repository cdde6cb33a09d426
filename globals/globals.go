package globals

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const RequestIDKey ContextKey = "requestId"

// Roles allowed to moderate and edit the directory.
var PrivilegedRoles = []string{"admin", "moderator"}
