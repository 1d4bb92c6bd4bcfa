package models

import (
	"strings"
	"time"

	dErrors "landregistry/pkg/domain-errors"
)

// Role is fixed at signup. There is no self-promotion flow; an admin account
// is provisioned, never earned.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RolePublic Role = "public"
)

// ParseRole validates a role string, defaulting empty input to owner.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleOwner, nil
	case RoleAdmin, RoleOwner, RolePublic:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "role must be one of: admin, owner, public")
	}
}

// User is a registered citizen or administrator. Users are soft-deleted only;
// ownership history keeps referencing them forever.
type User struct {
	ID           string     `json:"id"`
	CitizenID    string     `json:"citizen_id"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phone_number"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// NewUser validates the signup fields and builds a user. The password hash is
// supplied by the service; models never see plaintext.
func NewUser(id, citizenID, email, phoneNumber, name, passwordHash string, role Role, now time.Time) (*User, error) {
	citizenID = strings.TrimSpace(citizenID)
	email = strings.ToLower(strings.TrimSpace(email))
	phoneNumber = strings.TrimSpace(phoneNumber)
	name = strings.TrimSpace(name)

	if citizenID == "" || email == "" || phoneNumber == "" || name == "" || passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "all signup fields are required")
	}

	return &User{
		ID:           id,
		CitizenID:    citizenID,
		Email:        email,
		PhoneNumber:  phoneNumber,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// ProfilePatch carries optional profile edits, each applied and validated
// independently.
type ProfilePatch struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// IsZero reports whether no field is set.
func (p ProfilePatch) IsZero() bool {
	return p.Name == nil && p.Email == nil && p.PhoneNumber == nil
}

// Apply validates and applies each set field.
func (p ProfilePatch) Apply(u *User, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeBadRequest, "name must not be empty")
		}
		u.Name = name
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if email == "" || !strings.Contains(email, "@") {
			return dErrors.New(dErrors.CodeBadRequest, "email is not valid")
		}
		u.Email = email
	}
	if p.PhoneNumber != nil {
		phone := strings.TrimSpace(*p.PhoneNumber)
		if phone == "" {
			return dErrors.New(dErrors.CodeBadRequest, "phone number must not be empty")
		}
		u.PhoneNumber = phone
	}
	if !p.IsZero() {
		u.UpdatedAt = now
	}
	return nil
}
