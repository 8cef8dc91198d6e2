package tokens

import "github.com/golang-jwt/jwt/v5"

// LongClaims is the payload of the long-lived credential. It is reissued
// only at login and is the sole credential accepted by the refresh flow.
type LongClaims struct {
	UserKey  string `json:"userKey"`
	Role     string `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
	jwt.RegisteredClaims
}

// ShortClaims is the payload of the per-session credential sent with every
// request. SessionID makes targeted revocation possible; DeviceID pins the
// session to the device that opened it.
type ShortClaims struct {
	UserKey   string `json:"userKey"`
	Role      string `json:"role"`
	SchoolID  string `json:"schoolId,omitempty"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	jwt.RegisteredClaims
}
