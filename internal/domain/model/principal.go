package model

// Principal is the resolved caller: an authenticated user or an anonymous
// session, never both.
type Principal struct {
	UserID       int64
	SessionToken string
}

func UserPrincipal(userID int64) Principal {
	return Principal{UserID: userID}
}

func SessionPrincipal(token string) Principal {
	return Principal{SessionToken: token}
}

// ResolvePrincipal prefers the authenticated user over the session header.
func ResolvePrincipal(userID int64, sessionToken string) Principal {
	if userID > 0 {
		return UserPrincipal(userID)
	}
	return SessionPrincipal(sessionToken)
}

func (p Principal) IsUser() bool {
	return p.UserID > 0
}

func (p Principal) IsAnonymous() bool {
	return p.UserID <= 0 && p.SessionToken != ""
}

func (p Principal) IsZero() bool {
	return p.UserID <= 0 && p.SessionToken == ""
}
