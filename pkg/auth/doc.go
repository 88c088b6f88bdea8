// Package auth provides password hashing and bearer token issuance for the
// API. Passwords are stored as bcrypt hashes; sessions are signed JWTs whose
// presence in the user's persisted token set is checked on every request.
package auth
