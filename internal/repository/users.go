package repository

import "context"

const createUser = `
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id, name, email, password_hash, role, phone, created_at
`

// CreateUserParams holds the columns for a new user.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

// CreateUser inserts a user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Email, arg.PasswordHash, arg.Role)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, name, email, password_hash, role, phone, created_at
FROM users
WHERE email = $1
`

// GetUserByEmail fetches a user by email. Returns sql.ErrNoRows if absent.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, name, email, password_hash, role, phone, created_at
FROM users
WHERE id = $1
`

// GetUserByID fetches a user by ID. Returns sql.ErrNoRows if absent.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	return u, err
}

const updateUserProfile = `
UPDATE users
SET name = $2, phone = $3
WHERE id = $1
RETURNING id, name, email, password_hash, role, phone, created_at
`

// UpdateUserProfileParams holds the editable profile columns.
type UpdateUserProfileParams struct {
	ID    int64
	Name  string
	Phone string
}

// UpdateUserProfile updates the user's own profile fields and returns the
// stored row. Returns sql.ErrNoRows if the user does not exist.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUserProfile, arg.ID, arg.Name, arg.Phone)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	return u, err
}
