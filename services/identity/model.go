package identity

import "loyalty-connector/services/host"

// Actor is whoever triggered the current request. An empty UserID is a guest.
type Actor struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

func (a Actor) IsGuest() bool {
	return a.UserID == ""
}

func ActorFromUser(u *host.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Balance separates "unknown" from a known zero.
type Balance struct {
	Points int64
	Known  bool
}
