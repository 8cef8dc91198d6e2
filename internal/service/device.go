package service

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Device describes the client opening a session. Its fingerprint is an
// equality-checked identifier embedded in the short credential, not a
// security boundary.
type Device struct {
	IP        string `json:"ip"`
	UserAgent string `json:"agent"`
}

func (d Device) Fingerprint() string {
	data, _ := json.Marshal(d)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
