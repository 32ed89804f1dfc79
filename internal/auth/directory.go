// Package auth implements the login core: the compiled-in credential
// directory, the failed-attempt lockout policy, and the gateway state machine
// that orchestrates remote-then-local verification.
package auth

import (
	"crypto/subtle"

	"github.com/pavelk2005/storegate/internal/cryptox"
)

// UserCredential is a static fallback identity. PasswordHash is
// hex(sha256(password + salt)); the plaintext never ships.
type UserCredential struct {
	Username     string
	PasswordHash string
	Salt         string
	Role         string
}

// Verify checks password against the stored hash in constant time.
func (c UserCredential) Verify(password string) bool {
	candidate := cryptox.HashCredential(password, c.Salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(c.PasswordHash)) == 1
}

// Directory is a pure lookup over a fixed identity list. No side effects,
// no failure modes beyond "not found".
type Directory struct {
	users []UserCredential
}

func NewDirectory(users []UserCredential) *Directory {
	return &Directory{users: users}
}

// DefaultDirectory returns the identities compiled into the admin client.
func DefaultDirectory() *Directory {
	return NewDirectory([]UserCredential{
		{
			Username:     "admin",
			PasswordHash: "6d00d88f92cf623d5d982ad0d2953e11b459a9246f0a12efa66561aa130be1f2",
			Salt:         "sg7f2k",
			Role:         "Supervisor",
		},
		{
			Username:     "manager",
			PasswordHash: "0c0b523be3d46368d8f2d2b838d135afef49c302839cbcb6f5648bffca18b540",
			Salt:         "qp9d4m",
			Role:         "Manager",
		},
		{
			Username:     "viewer",
			PasswordHash: "38f08b356736dcd83c95145c98bd46f7e38fc953fc906acbc74156b44148c98f",
			Salt:         "zx1c8v",
			Role:         "Viewer",
		},
	})
}

// Find returns the credential for username, if any.
func (d *Directory) Find(username string) (UserCredential, bool) {
	for _, u := range d.users {
		if u.Username == username {
			return u, true
		}
	}
	return UserCredential{}, false
}
