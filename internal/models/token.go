package models

import "time"

// AuthToken is a persisted opaque bearer credential, one row per user. The
// row's existence is the sole proof of a valid session: there is no expiry
// column, revocation is deletion.
type AuthToken struct {
	Key     string    `db:"key" json:"token"`
	UserID  int64     `db:"user_id" json:"-"`
	Created time.Time `db:"created" json:"created"`
}
