package types

import (
	"github.com/golang-jwt/jwt/v4"
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IntentClaims is the signed payload of a reservation intent token. It
// carries every field needed to materialize the reservation row at
// redemption time; until then no row exists and no slot is held.
type IntentClaims struct {
	RestaurantID    uint    `json:"restaurant_id"`
	TableID         *uint   `json:"table_id,omitempty"`
	UserID          *uint   `json:"user_id,omitempty"`
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerEmail   string  `json:"customer_email,omitempty"`
	PartySize       int     `json:"party_size"`
	ReservationDate string  `json:"reservation_date"`
	ReservationTime string  `json:"reservation_time"`
	SpecialRequests *string `json:"special_requests,omitempty"`
	jwt.RegisteredClaims
}
