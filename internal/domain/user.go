package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the commerce view of an account: enough identity to own orders,
// a balance and a wishlist. Authentication itself is served elsewhere.
type User struct {
	UserID    uuid.UUID
	Email     string
	Language  string
	IsStaff   bool
	IsActive  bool
	CreatedAt time.Time
}

// Address references the geo hierarchy; only the fields the order flow
// needs are modeled here.
type Address struct {
	AddressID  uuid.UUID
	UserID     *uuid.UUID
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// Wishlist is the user's saved product set, created together with the user.
type Wishlist struct {
	WishlistID uuid.UUID
	UserID     uuid.UUID
	ProductIDs []uuid.UUID
}
