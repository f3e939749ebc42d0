package models

import "time"

// Vote is one cast ballot. VoterID and AgoraID are fixed at cast time and
// never recomputed; DeletedAt marks retraction, rows are never hard-deleted.
type Vote struct {
	ID         int64
	UserID     int64
	ElectionID int64
	// VoterID is the deterministic pseudonym presented to the booth, unique
	// per user.
	VoterID string
	// AgoraID is the numeric ballot address the vote was cast against.
	AgoraID int64
	// PaperAuthorityID is set when an authority recorded this vote on the
	// voter's behalf.
	PaperAuthorityID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Retracted reports whether the vote has been soft-deleted.
func (v *Vote) Retracted() bool {
	return v.DeletedAt != nil
}

// User carries the attributes the voting core needs from the account model.
// The full account lives outside this repository.
type User struct {
	ID            int64
	DocumentType  int
	DocumentVatID string
	CreatedAt     time.Time

	// Territorial attributes, already normalized to the circle code
	// conventions (see internal/territory).
	Country      string
	AutonomyCode string
	ProvinceCode string
	Town         string
	IslandCode   string
	// VoteCircleCode is the code of the user's assigned circle.
	VoteCircleCode string

	Admin          bool
	PaperAuthority bool
}

// Document types as stored by the account model.
const (
	DocumentDNI      = 1
	DocumentNIE      = 2
	DocumentPassport = 3
)

// IsNationalDocument reports whether the user's document is a national id
// rather than a passport.
func (u *User) IsNationalDocument() bool {
	return u.DocumentType != DocumentPassport
}
