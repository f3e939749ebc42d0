package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewElectionLocationDefaults(t *testing.T) {
	l := NewElectionLocation(10)
	assert.Equal(t, int64(10), l.ElectionID)
	assert.Equal(t, "00", l.Location)
	assert.Equal(t, "simple", l.Layout)
	assert.False(t, l.HasPendingRevision())
}

func TestHasPendingRevision(t *testing.T) {
	l := &ElectionLocation{AgoraVersion: 2, NewAgoraVersion: 2}
	assert.False(t, l.HasPendingRevision())
	l.NewAgoraVersion = 3
	assert.True(t, l.HasPendingRevision())
}

func TestApplyVotingInfo(t *testing.T) {
	l := &ElectionLocation{
		HasVotingInfo: false,
		Title:         "stale",
		Description:   "stale",
		Layout:        "simple",
		Theme:         "default",
		ShareText:     "stale",
		Questions:     []ElectionLocationQuestion{{Title: "¿Sí o no?"}},
	}
	l.ApplyVotingInfo()
	assert.Empty(t, l.Title)
	assert.Empty(t, l.Description)
	assert.Empty(t, l.Layout)
	assert.Empty(t, l.Theme)
	assert.Empty(t, l.ShareText)
	assert.Empty(t, l.Questions)

	kept := &ElectionLocation{HasVotingInfo: true, Title: "Votación", Layout: "simple", Theme: "default"}
	kept.ApplyVotingInfo()
	assert.Equal(t, "Votación", kept.Title)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		l       ElectionLocation
		wantErr bool
	}{
		{"no voting info skips checks", ElectionLocation{}, false},
		{"complete", ElectionLocation{HasVotingInfo: true, Title: "t", Layout: "simple", Theme: "default"}, false},
		{"missing title", ElectionLocation{HasVotingInfo: true, Layout: "simple", Theme: "default"}, true},
		{"missing layout", ElectionLocation{HasVotingInfo: true, Title: "t", Theme: "default"}, true},
		{"missing theme", ElectionLocation{HasVotingInfo: true, Title: "t", Layout: "simple"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.l.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestElectionLayout(t *testing.T) {
	assert.Empty(t, (&ElectionLocation{Layout: "simple"}).ElectionLayout())
	assert.Equal(t, "pcandidates-election", (&ElectionLocation{Layout: "pcandidates-election"}).ElectionLayout())
}

func TestLocationTokens(t *testing.T) {
	e := &Election{ID: 10, CounterKey: "counter-key"}
	l := &ElectionLocation{ID: 3}

	counter := l.CounterToken(e)
	paper := l.PaperToken(e)
	assert.Len(t, counter, 17)
	assert.Len(t, paper, 17)
	assert.NotEqual(t, counter, paper, "counter and paper desks use distinct tokens")
	assert.NotEqual(t, counter, e.CounterToken(), "location counters differ from the election counter")
}

func TestTerritory(t *testing.T) {
	l := &ElectionLocation{Location: "p_28"}
	assert.Equal(t, "Estatal", l.Territory(&Election{Scope: ScopeEstatal}))
	assert.Equal(t, "Provincia (p_28)", l.Territory(&Election{Scope: ScopeProvincial}))
}
