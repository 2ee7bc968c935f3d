package models

import (
	"database/sql"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// Server-side user accounts
//
// Accounts exist so the companion API can scope snapshot data by an opaque
// user identity. The device core never inspects users — it only carries the
// bearer token the login endpoint hands back.
// ============================================================================

// User is an account row. PasswordHash uses bcrypt and is never exposed in
// JSON responses.
type User struct {
	ID           int64
	GUID         string
	Username     string
	Email        sql.NullString
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOutput is the JSON-safe projection of a User.
type UserOutput struct {
	GUID     string  `json:"guid"`
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

// UserRegisterInput is the request body for registration.
type UserRegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// UserLoginInput is the request body for login.
type UserLoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const DDLCreateUsersSequence = `
CREATE SEQUENCE IF NOT EXISTS users_id_seq START 1;
`

const DDLCreateUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
    guid          VARCHAR NOT NULL UNIQUE,
    username      VARCHAR NOT NULL UNIQUE,
    email         VARCHAR,
    password_hash VARCHAR NOT NULL,
    is_active     BOOLEAN DEFAULT TRUE,
    created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// bcryptCost balances hash strength against login latency.
const bcryptCost = 12

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// ToOutput converts a User to its JSON-safe form.
func (u *User) ToOutput() UserOutput {
	out := UserOutput{
		GUID:     u.GUID,
		Username: u.Username,
	}
	if u.Email.Valid {
		out.Email = &u.Email.String
	}
	return out
}

// HashPassword creates a bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", serr.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser validates input and inserts a new account.
func CreateUser(input UserRegisterInput) (*User, error) {
	if !usernamePattern.MatchString(input.Username) {
		return nil, serr.New("username must be 3-32 characters and can only contain letters, digits, '_', '.', '-'")
	}
	if len(input.Password) < 8 {
		return nil, serr.New("password must be at least 8 characters")
	}

	existing, err := GetUserByUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, serr.New("username already exists")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		GUID:         uuid.New().String(),
		Username:     input.Username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if input.Email != "" {
		user.Email = sql.NullString{String: input.Email, Valid: true}
	}

	err = db.QueryRow(`
		INSERT INTO users (guid, username, email, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		user.GUID, user.Username, user.Email, user.PasswordHash, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, serr.Wrap(err, "failed to insert user")
	}

	return user, nil
}

// GetUserByUsername returns the account for a username, or nil if absent.
func GetUserByUsername(username string) (*User, error) {
	return scanUser(db.QueryRow(`
		SELECT id, guid, username, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE username = ?`, username))
}

// GetUserByGUID returns the account for a GUID, or nil if absent.
func GetUserByGUID(guid string) (*User, error) {
	return scanUser(db.QueryRow(`
		SELECT id, guid, username, email, password_hash, is_active, created_at, updated_at
		FROM users WHERE guid = ?`, guid))
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.GUID, &user.Username, &user.Email,
		&user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to query user")
	}
	return user, nil
}

// AuthenticateUser verifies credentials and returns the account.
func AuthenticateUser(input UserLoginInput) (*User, error) {
	user, err := GetUserByUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, input.Password) {
		return nil, serr.New("invalid credentials")
	}
	if !user.IsActive {
		return nil, serr.New("account is disabled")
	}
	return user, nil
}
