package domain

import (
	"strconv"

	"github.com/google/uuid"
)

type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

// Owner identifies whose cart it is: a registered user or an anonymous
// guest session.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func UserOwner(userID int64) Owner {
	return Owner{Kind: OwnerUser, ID: strconv.FormatInt(userID, 10)}
}

func GuestOwner(guestID string) Owner {
	return Owner{Kind: OwnerGuest, ID: guestID}
}

// NewGuestOwner mints a fresh guest identity.
func NewGuestOwner() Owner {
	return GuestOwner(uuid.NewString())
}

func (o Owner) IsGuest() bool {
	return o.Kind == OwnerGuest
}

// UserID returns the numeric id of a user owner.
func (o Owner) UserID() (int64, bool) {
	if o.Kind != OwnerUser {
		return 0, false
	}

	id, err := strconv.ParseInt(o.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerUser:
		if _, ok := o.UserID(); !ok {
			return ErrInvalidOwner
		}
	case OwnerGuest:
		if _, err := uuid.Parse(o.ID); err != nil {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}

	return nil
}

func (o Owner) String() string {
	return string(o.Kind) + ":" + o.ID
}
