package models

// Actor is the authenticated identity on whose behalf an operation runs.
// It is passed explicitly into every service call.
type Actor struct {
	UserID string
	Role   string
}

// SystemActor is used by webhook callbacks and the payment reconciler.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// Authenticated reports whether the actor carries a usable identity.
func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.Role != ""
}

// CanAccess reports whether the actor may read or act on a record owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	return a.IsAdmin() || a.IsSystem() || (a.UserID != "" && a.UserID == ownerID)
}
