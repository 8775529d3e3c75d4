package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateGetAddMessage(t *testing.T) {
	m := NewManager(time.Hour, time.Minute)

	s := m.Create("agt_1", "Assistant", "")
	require.NotEmpty(t, s.SessionID)

	require.NoError(t, m.AddMessage(s.SessionID, RoleUser, "Hi"))
	require.NoError(t, m.AddMessage(s.SessionID, RoleAssistant, "Hello!"))

	msgs, err := m.GetMessages(s.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp) || msgs[0].Timestamp.Equal(msgs[1].Timestamp))
}

func TestManager_GetOrCreate_MatchesSameAgent(t *testing.T) {
	m := NewManager(time.Hour, time.Minute)
	s := m.Create("agt_1", "Assistant", "")

	again := m.GetOrCreate(s.SessionID, "agt_1", "Assistant", "")
	assert.Equal(t, s.SessionID, again.SessionID)

	different := m.GetOrCreate(s.SessionID, "agt_2", "Other", "")
	assert.NotEqual(t, s.SessionID, different.SessionID)
}

func TestManager_VariablesPersistAcrossTurns(t *testing.T) {
	m := NewManager(time.Hour, time.Minute)
	s := m.Create("agt_1", "Assistant", "")

	require.NoError(t, m.SetVariable(s.SessionID, "topic", "invoices"))
	v, ok, err := m.GetVariable(s.SessionID, "topic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "invoices", v)
}

func TestManager_ClearMessagesTruncatesOnly(t *testing.T) {
	m := NewManager(time.Hour, time.Minute)
	s := m.Create("agt_1", "Assistant", "")
	require.NoError(t, m.AddMessage(s.SessionID, RoleUser, "Hi"))

	require.NoError(t, m.ClearMessages(s.SessionID))
	msgs, err := m.GetMessages(s.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, ok, _ := m.GetVariable(s.SessionID, "nonexistent")
	assert.False(t, ok)
}

func TestManager_TTLBoundaryIsStrictInequality(t *testing.T) {
	m := NewManager(50*time.Millisecond, time.Hour)
	s := m.Create("agt_1", "Assistant", "")

	sess := m.sessions[s.SessionID]
	now := time.Now()
	sess.mu.Lock()
	sess.lastActivity = now.Add(-50 * time.Millisecond)
	sess.mu.Unlock()

	assert.False(t, sess.expired(now, m.ttl), "now-last==ttl must not count as expired")

	sess.mu.Lock()
	sess.lastActivity = now.Add(-51 * time.Millisecond)
	sess.mu.Unlock()
	assert.True(t, sess.expired(now, m.ttl))
}

func TestManager_SweeperEvictsExpiredSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, 5*time.Millisecond)
	s := m.Create("agt_1", "Assistant", "")
	m.StartSweeper()
	defer m.Close()

	require.Eventually(t, func() bool {
		_, err := m.Get(s.SessionID)
		return err == ErrNotFound
	}, time.Second, 5*time.Millisecond)
}

func TestManager_DeleteAndCount(t *testing.T) {
	m := NewManager(time.Hour, time.Minute)
	s1 := m.Create("agt_1", "A", "")
	_ = m.Create("agt_1", "A", "")
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.Delete(s1.SessionID))
	assert.Equal(t, 1, m.Count())
	assert.ErrorIs(t, m.Delete(s1.SessionID), ErrNotFound)
}
