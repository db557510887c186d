package phrase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsAreScopedByPrincipal(t *testing.T) {
	r := NewSessions(" ")
	mine := r.Get("u1", "main")
	again := r.Get("u1", "main")
	other := r.Get("u2", "main")

	assert.Same(t, mine, again)
	assert.NotSame(t, mine, other)
	assert.Equal(t, 2, r.Len())

	r.Drop("u1", "main")
	assert.Equal(t, 1, r.Len())
}

func TestRemoveCardEverywhere(t *testing.T) {
	r := NewSessions(" ")
	s1 := r.Get("u1", "a")
	s2 := r.Get("u1", "b")
	foreign := r.Get("u2", "a")

	_, err := s1.Assembly.AddCard(card("c1", "Água"))
	require.NoError(t, err)
	_, _ = s1.Assembly.AddText("por favor")
	_, _ = s2.Assembly.AddCard(card("c1", "Água"))
	_, _ = foreign.Assembly.AddCard(card("c1", "Água"))

	assert.Equal(t, 2, r.RemoveCardEverywhere("u1", "c1"))
	assert.Equal(t, "por favor", s1.Assembly.SpeechText())
	assert.Equal(t, 0, s2.Assembly.Len())
	assert.Equal(t, 1, foreign.Assembly.Len())
}

func TestSweepDropsIdleSessions(t *testing.T) {
	r := NewSessions(" ")
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get("u1", "old")
	now = now.Add(time.Hour)
	r.Get("u1", "fresh")

	speaking := r.Get("u1", "busy")
	require.True(t, speaking.beginSpeaking())
	speaking.lastUsed.Store(0)

	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 2, r.Len())
}

func TestSpeechGate(t *testing.T) {
	s := NewSessions(" ").Get("u1", "main")
	assert.Equal(t, StateIdle, s.State())
	require.True(t, s.beginSpeaking())
	assert.False(t, s.beginSpeaking())
	assert.Equal(t, StateSpeaking, s.State())
	s.endSpeaking()
	assert.Equal(t, "idle", s.State().String())
}
