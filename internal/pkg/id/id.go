package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID string. Every entity key in the system (users,
// projects, notifications, messages) is a ULID: lexicographically sortable
// by creation time, which keeps newest-first DynamoDB queries cheap.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
