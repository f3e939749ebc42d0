package models

import "fmt"

// Layouts the booth understands for a location's ballot rendering.
var Layouts = []string{"simple", "accordion", "accordion-no-description", "pcandidates-election"}

// ElectionLayouts are the layouts that render full candidacy elections.
var ElectionLayouts = []string{"pcandidates-election"}

// ElectionLocation is one ballot definition scoped to a constituency code
// within an election.
type ElectionLocation struct {
	ID         int64
	ElectionID int64
	// Location is the constituency code this ballot covers. "00" covers the
	// whole election territory.
	Location string
	// Override, when set, replaces the location code inside the numeric
	// ballot address.
	Override string
	// AgoraVersion is the published ballot generation; NewAgoraVersion is the
	// prepared-but-unpublished one. Promotion is an explicit admin action.
	AgoraVersion    int
	NewAgoraVersion int

	// Voting content. All of it must be empty while HasVotingInfo is false;
	// ApplyVotingInfo enforces that on every save.
	HasVotingInfo bool
	Title         string
	Description   string
	Layout        string
	Theme         string
	ShareText     string

	Questions []ElectionLocationQuestion
}

// NewElectionLocation applies the defaults a fresh row carries.
func NewElectionLocation(electionID int64) *ElectionLocation {
	return &ElectionLocation{
		ElectionID: electionID,
		Location:   "00",
		Layout:     "simple",
	}
}

// HasPendingRevision reports whether a revised ballot has been prepared but
// not yet promoted.
func (l *ElectionLocation) HasPendingRevision() bool {
	return l.AgoraVersion != l.NewAgoraVersion
}

// ClearVoting wipes the voting content and its questions.
func (l *ElectionLocation) ClearVoting() {
	l.Title = ""
	l.Description = ""
	l.Layout = ""
	l.Theme = ""
	l.ShareText = ""
	l.Questions = nil
}

// ApplyVotingInfo enforces the content invariant before a save: locations
// without voting info carry no content fields.
func (l *ElectionLocation) ApplyVotingInfo() {
	if !l.HasVotingInfo {
		l.ClearVoting()
	}
}

// Validate checks the content fields required while HasVotingInfo is set.
func (l *ElectionLocation) Validate() error {
	if !l.HasVotingInfo {
		return nil
	}
	if l.Title == "" {
		return fmt.Errorf("election location: title can't be blank")
	}
	if l.Layout == "" {
		return fmt.Errorf("election location: layout can't be blank")
	}
	if l.Theme == "" {
		return fmt.Errorf("election location: theme can't be blank")
	}
	return nil
}

// ElectionLayout returns the layout only when it renders a candidacy
// election, empty otherwise.
func (l *ElectionLocation) ElectionLayout() string {
	for _, el := range ElectionLayouts {
		if l.Layout == el {
			return el
		}
	}
	return ""
}

// CounterToken guards this location's anonymous progress counter.
func (l *ElectionLocation) CounterToken(e *Election) string {
	return e.AccessToken(fmt.Sprintf("counter %d %d", e.ID, l.ID))
}

// PaperToken guards the paper-vote desk for this location.
func (l *ElectionLocation) PaperToken(e *Election) string {
	return e.AccessToken(fmt.Sprintf("paper %d %d", e.ID, l.ID))
}

// Territory renders the location for admin listings.
func (l *ElectionLocation) Territory(e *Election) string {
	if e.Scope == ScopeEstatal {
		return e.ScopeName()
	}
	return fmt.Sprintf("%s (%s)", e.ScopeName(), l.Location)
}

// ElectionLocationQuestion is one ballot question.
type ElectionLocationQuestion struct {
	ID                 int64
	ElectionLocationID int64
	Title              string
	Description        string
	VotingSystem       string
	Layout             string
	Winners            int
	Minimum            int
	Maximum            int
	RandomOrder        bool
	Totals             string
	OptionsHeaders     string
	Options            string
}
