// Package territory models the circle hierarchy and classifies circles into
// their territorial kind from the structure of their codes.
package territory

import (
	"strings"
	"time"
)

// CircleKind orders circles from internal to exterior. The integer values are
// part of the stored data model and must not be reordered.
type CircleKind int

const (
	KindInterno CircleKind = iota
	KindBarrial
	KindMunicipal
	KindComarcal
	KindExterior
)

func (k CircleKind) String() string {
	switch k {
	case KindInterno:
		return "interno"
	case KindBarrial:
		return "barrial"
	case KindMunicipal:
		return "municipal"
	case KindComarcal:
		return "comarcal"
	case KindExterior:
		return "exterior"
	default:
		return "unknown"
	}
}

// Code prefixes that mark circles inside Spain, plus the internal prefix.
const (
	PrefixBarrial   = "TB"
	PrefixMunicipal = "TM"
	PrefixComarcal  = "TC"
	PrefixInterno   = "IP"
)

// VoteCircle is one membership circle. The geography pointers are nil until
// the classifier has derived them; the classifier only touches rows where all
// three of country, autonomy, and province are still nil.
type VoteCircle struct {
	ID           int64
	Code         string
	OriginalCode string
	Name         string
	OriginalName string
	Kind         CircleKind

	// Town is the municipality code ("m_" plus INE code), empty for circles
	// not bound to a municipality.
	Town         string
	IslandCode   *string
	ProvinceCode *string
	AutonomyCode *string
	CountryCode  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CodeInSpain reports whether the circle's code carries one of the Spanish
// territorial prefixes.
func (c *VoteCircle) CodeInSpain() bool {
	return strings.HasPrefix(c.Code, PrefixBarrial) ||
		strings.HasPrefix(c.Code, PrefixMunicipal) ||
		strings.HasPrefix(c.Code, PrefixComarcal)
}

// IsActive reports whether members of the circle participate territorially.
// Internal circles exist for organisational bookkeeping only.
func (c *VoteCircle) IsActive() bool {
	return c.Kind != KindInterno
}

// InSpain reports whether the circle sits inside Spain.
func (c *VoteCircle) InSpain() bool {
	switch c.Kind {
	case KindBarrial, KindMunicipal, KindComarcal:
		return true
	default:
		return false
	}
}

// TypePrefix extracts the territorial prefix of the original code, "00" for
// circles outside Spain.
func (c *VoteCircle) TypePrefix() string {
	if len(c.OriginalCode) < 2 || !c.InSpain() {
		return "00"
	}
	return c.OriginalCode[:2]
}

// Classified reports whether the classifier has already derived geography for
// this circle. A row with any of the three codes set is never revisited.
func (c *VoteCircle) Classified() bool {
	return c.CountryCode != nil || c.AutonomyCode != nil || c.ProvinceCode != nil
}

// ClearGeography resets every derived field.
func (c *VoteCircle) ClearGeography() {
	c.Town = ""
	c.ProvinceCode = nil
	c.AutonomyCode = nil
	c.IslandCode = nil
	c.CountryCode = nil
}

// CountryName resolves the circle's country soft: "" when unset or unknown.
func (c *VoteCircle) CountryName() string {
	if c.CountryCode == nil {
		return ""
	}
	return CountryName(*c.CountryCode)
}

// Order is the slice of a membership order the consistency pass needs: its
// territorial snapshot and the circle it was made under.
type Order struct {
	ID           int64
	UserID       int64
	VoteCircleID *int64
	PaidAt       time.Time

	TownCode     *string
	IslandCode   *string
	AutonomyCode *string

	VoteCircleTownCode     *string
	VoteCircleIslandCode   *string
	VoteCircleAutonomyCode *string

	UpdatedAt time.Time
}
