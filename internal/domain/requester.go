package domain

const RoleAdmin = "admin"

// Requester is the resolved caller of a lifecycle operation.
// The zero value is an anonymous caller.
type Requester struct {
	ID            int64
	Role          string
	Authenticated bool
}

func Anonymous() Requester {
	return Requester{}
}

func (r Requester) IsAdmin() bool {
	return r.Authenticated && r.Role == RoleAdmin
}

// CanAccess reports whether r may read or modify b.
func (r Requester) CanAccess(b *Booking) bool {
	if !r.Authenticated {
		return false
	}
	return r.IsAdmin() || b.OwnedBy(r.ID)
}
