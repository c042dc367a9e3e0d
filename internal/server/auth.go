package server

import "strings"

// passwordHeader carries the shared password on every authenticated request.
const passwordHeader = "X-App-Password"

// Users maps configured passwords to user names. Passwords double as the
// credential and the lookup key, so they must be unique per user.
type Users struct {
	byPassword map[string]string
}

// ParseUsers builds a Users set from "name:password" entries. Malformed
// entries and entries with a blank name or password are skipped.
func ParseUsers(entries []string) Users {
	byPassword := make(map[string]string)
	for _, entry := range entries {
		name, password, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		password = strings.TrimSpace(password)
		if name == "" || password == "" {
			continue
		}
		byPassword[password] = name
	}
	return Users{byPassword: byPassword}
}

// Len returns the number of configured users. A zero count disables
// authentication.
func (u Users) Len() int {
	return len(u.byPassword)
}

// Authenticate resolves a password to its user name.
func (u Users) Authenticate(password string) (string, bool) {
	if password == "" {
		return "", false
	}
	name, ok := u.byPassword[password]
	return name, ok
}
