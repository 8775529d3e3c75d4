// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session keeps short-lived conversational state accessible by an
// opaque token (§4.5). A Session owns its own message history and
// variable map; the Manager owns the map of all sessions and the TTL
// sweeper that evicts stale ones.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a Session's append-only history (§3).
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrNotFound is returned when an operation names an unknown session id.
var ErrNotFound = errors.New("session not found")

// Session is a single conversation's mutable state, guarded by its own
// mutex so operations on different sessions never contend (§5 "Shared
// resources: Sessions are protected per-id").
type Session struct {
	mu sync.RWMutex

	id        string
	agentID   string
	agentName string
	userID    string

	messages  []Message
	variables map[string]any

	createdAt    time.Time
	lastActivity time.Time
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// AgentID returns the id of the agent this session talks to.
func (s *Session) AgentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID
}

// Snapshot is an immutable point-in-time read of a Session, safe to hand
// to callers outside the package without exposing the internal mutex.
type Snapshot struct {
	SessionID    string
	AgentID      string
	AgentName    string
	UserID       string
	Messages     []Message
	Variables    map[string]any
	CreatedAt    time.Time
	LastActivity time.Time
}

func (s *Session) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	vars := make(map[string]any, len(s.variables))
	for k, v := range s.variables {
		vars[k] = v
	}
	return Snapshot{
		SessionID:    s.id,
		AgentID:      s.agentID,
		AgentName:    s.agentName,
		UserID:       s.userID,
		Messages:     msgs,
		Variables:    vars,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}

func newSession(id, agentID, agentName, userID string) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		agentID:      agentID,
		agentName:    agentName,
		userID:       userID,
		variables:    make(map[string]any),
		createdAt:    now,
		lastActivity: now,
	}
}

func (s *Session) touch() {
	s.lastActivity = time.Now()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Strict inequality per §8: "now - last_activity == ttl is *not* expired".
	return now.Sub(s.lastActivity) > ttl
}

func newSessionID() string { return uuid.NewString() }
