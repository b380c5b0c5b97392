package model

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID       int64
	Username string
	Role     string
}

// IsModerator reports whether the actor may review claims.
func (a Actor) IsModerator() bool {
	return IsModerator(a.Role)
}
