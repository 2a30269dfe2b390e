package domain

// SessionState is computed fresh each run by probing the live page.
type SessionState struct {
	Authenticated       bool
	OrganizerAuthorized bool
}

// Ready reports whether the run may visit any event.
func (s SessionState) Ready() bool {
	return s.Authenticated && s.OrganizerAuthorized
}
