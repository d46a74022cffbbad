package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// GetCredential returns the stored Google credential for a doctor.
// Returns model.ErrNotFound when the doctor never linked a calendar.
func (db *DB) GetCredential(ctx context.Context, doctorID string) (*model.GoogleCredential, error) {
	row := db.QueryRowContext(ctx, `
		SELECT doctor_id, access_token, refresh_token, token_uri, client_id,
		       client_secret, expiry, updated_at
		FROM google_credentials
		WHERE doctor_id = ?`, doctorID)

	var c model.GoogleCredential
	var refresh sql.NullString
	var expiry sql.NullTime
	err := row.Scan(&c.DoctorID, &c.AccessToken, &refresh, &c.TokenURI,
		&c.ClientID, &c.ClientSecret, &expiry, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeErr("get credential", err)
	}
	c.RefreshToken = refresh.String
	if expiry.Valid {
		c.Expiry = expiry.Time.UTC()
	}
	return &c, nil
}

// SaveCredential creates or replaces a doctor's Google credential.
// Called both on initial OAuth linking and after a token refresh.
func (db *DB) SaveCredential(ctx context.Context, c *model.GoogleCredential) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO google_credentials (doctor_id, access_token, refresh_token,
			token_uri, client_id, client_secret, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doctor_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_uri = excluded.token_uri,
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`,
		c.DoctorID, c.AccessToken, c.RefreshToken, c.TokenURI,
		c.ClientID, c.ClientSecret, c.Expiry, now,
	)
	if err != nil {
		return storeErr("save credential", err)
	}
	return nil
}

// GetUser resolves a directory entry by email.
func (db *DB) GetUser(ctx context.Context, email string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT email, first_name, last_name, role FROM users WHERE email = ?`, email)

	var u model.User
	err := row.Scan(&u.Email, &u.FirstName, &u.LastName, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

// UpsertUser creates or updates a directory entry.
func (db *DB) UpsertUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (email, first_name, last_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role,
			updated_at = excluded.updated_at`,
		u.Email, u.FirstName, u.LastName, u.Role, now, now)
	if err != nil {
		return storeErr("upsert user", err)
	}
	return nil
}
