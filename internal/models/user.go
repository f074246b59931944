package models

// UserAccount is the stored form of one user entry. The user document is a
// JSON object keyed by login, so Login is not repeated inside the entry.
type UserAccount struct {
	PasswordHash string   `json:"password_hash"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

// PasswordResetCode is the stored form of one pending reset code, keyed by
// login in the reset-code document.
type PasswordResetCode struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}
