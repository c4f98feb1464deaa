package utils

import (
	"os"
	"rbs/src/config"
	"rbs/src/types"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

func GenerateJWT(email string, userID uint) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &types.Claims{
		Username: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(userID)),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// GenerateIntentToken mints a signed, time-boxed reservation intent. The
// token is the only artifact of the proposal: no row exists and no slot is
// held until the engine redeems it.
func GenerateIntentToken(claims *types.IntentClaims) (string, time.Time, error) {
	expiresAt := time.Now().Add(config.INTENT_TOKEN_TTL_MINUTES * time.Minute)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(config.IntentSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseIntentToken re-validates an intent token as untrusted input. Expiry
// is distinguishable from tampering via errors.Is(err, jwt.ErrTokenExpired).
func ParseIntentToken(token string) (*types.IntentClaims, error) {
	claims := &types.IntentClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return config.IntentSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

var (
	reservationRefPattern = regexp.MustCompile(`(?i)reservation[-_:]?(\d+)`)
	bareNumberPattern     = regexp.MustCompile(`^\d+$`)
)

// ExtractReservationID recovers a reservation id from payment-event fields
// by an explicitly ordered set of rules: an explicit metadata id first, then
// a "reservation<id>" marker in any reference field, then a bare numeric
// reference. Lookup by stored payment id is the caller's last resort.
func ExtractReservationID(explicit string, references ...string) (uint, bool) {
	if explicit != "" {
		if id, err := strconv.ParseUint(strings.TrimSpace(explicit), 10, 32); err == nil && id > 0 {
			return uint(id), true
		}
	}
	for _, ref := range references {
		m := reservationRefPattern.FindStringSubmatch(ref)
		if m == nil {
			continue
		}
		if id, err := strconv.ParseUint(m[1], 10, 32); err == nil && id > 0 {
			return uint(id), true
		}
	}
	for _, ref := range references {
		trimmed := strings.TrimSpace(ref)
		if !bareNumberPattern.MatchString(trimmed) {
			continue
		}
		if id, err := strconv.ParseUint(trimmed, 10, 32); err == nil && id > 0 {
			return uint(id), true
		}
	}
	return 0, false
}

// VerifyWebhookSignature checks the provider's base64 HMAC-SHA256 signature
// over the raw body in constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	return hmacEqual(body, signature, secret)
}
