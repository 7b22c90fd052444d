package trip

import (
	"sync"

	"github.com/kilianp07/ridepool/core/geo"
)

// UserStatus is the state of the person behind requests.
type UserStatus int

const (
	UserIdle UserStatus = iota
	UserRequestingPickup
	UserWaitingForPickup
	UserInTransit
)

func (s UserStatus) String() string {
	switch s {
	case UserIdle:
		return "IDLE"
	case UserRequestingPickup:
		return "REQUESTING_PICKUP"
	case UserWaitingForPickup:
		return "WAITING_FOR_PICKUP"
	case UserInTransit:
		return "IN_TRANSIT"
	default:
		return "UNKNOWN"
	}
}

// User is a traveller. A user has at most one active request.
type User struct {
	ID string

	mu       sync.Mutex
	status   UserStatus
	position geo.Position
}

func NewUser(id string, pos geo.Position) *User {
	return &User{ID: id, position: pos}
}

func (u *User) Status() UserStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

func (u *User) Position() geo.Position {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.position
}

func (u *User) set(s UserStatus) {
	u.mu.Lock()
	u.status = s
	u.mu.Unlock()
}

// TryRequest moves an idle user to RequestingPickup. It reports false when
// the user is busy with another trip.
func (u *User) TryRequest(at geo.Position) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status != UserIdle {
		return false
	}
	u.status = UserRequestingPickup
	u.position = at
	return true
}

// Release returns the user to idle at pos.
func (u *User) Release(pos geo.Position) {
	u.mu.Lock()
	u.status = UserIdle
	if !pos.IsZero() {
		u.position = pos
	}
	u.mu.Unlock()
}
