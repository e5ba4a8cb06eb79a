package session

// ConsentStatus is the consent state of one participant for one
// subpopulation.
type ConsentStatus struct {
	SubpopulationID         string `json:"subpopulationGuid"`
	Name                    string `json:"name"`
	Required                bool   `json:"required"`
	Consented               bool   `json:"consented"`
	SignedMostRecentConsent bool   `json:"signedMostRecentConsent"`
}

// Participant is the account snapshot carried by a session.
type Participant struct {
	ID            string   `json:"id"`
	HealthCode    string   `json:"healthCode,omitempty"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Phone         string   `json:"phone,omitempty"`
	PhoneVerified bool     `json:"phoneVerified"`
	Status        string   `json:"status,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	DataGroups    []string `json:"dataGroups,omitempty"`
}

// Session is an assembled, authenticated session.
//
// Sessions are built fresh on every sign-in and are not mutated after being
// saved. ReauthToken is returned to the caller once and never persisted.
type Session struct {
	SessionToken         string                   `json:"sessionToken"`
	InternalSessionToken string                   `json:"internalSessionToken"`
	ReauthToken          string                   `json:"-"`
	TenantID             string                   `json:"tenantId"`
	Environment          string                   `json:"environment,omitempty"`
	Authenticated        bool                     `json:"authenticated"`
	Participant          Participant              `json:"participant"`
	ConsentStatuses      map[string]ConsentStatus `json:"consentStatuses"`
	CreatedAt            int64                    `json:"createdOn"`
}

// UserID returns the participant id the session belongs to.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Participant.ID
}

// FullyConsented reports whether the session carries at least one status
// and every required status is consented.
func (s *Session) FullyConsented() bool {
	if s == nil {
		return false
	}
	return FullyConsented(s.ConsentStatuses)
}

// HasAnyRole reports whether the participant holds one of roles.
func (s *Session) HasAnyRole(roles ...string) bool {
	if s == nil {
		return false
	}
	for _, held := range s.Participant.Roles {
		for _, r := range roles {
			if held == r {
				return true
			}
		}
	}
	return false
}

// FullyConsented is false for an empty map: a participant matching no
// subpopulation cannot have consented to anything.
func FullyConsented(statuses map[string]ConsentStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, st := range statuses {
		if st.Required && !st.Consented {
			return false
		}
	}
	return true
}
