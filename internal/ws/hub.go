package ws

import "sync"

// Hub tracks open sessions keyed by conversation. Unrelated conversations
// never serialize on each other beyond the map lock.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[string]*Session),
	}
}

func (h *Hub) Add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[s.ConversationID] == nil {
		h.sessions[s.ConversationID] = make(map[string]*Session)
	}
	h.sessions[s.ConversationID][s.ID] = s
}

func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if convSessions, ok := h.sessions[s.ConversationID]; ok {
		if current, ok := convSessions[s.ID]; ok && current == s {
			delete(convSessions, s.ID)
			if len(convSessions) == 0 {
				delete(h.sessions, s.ConversationID)
			}
		}
	}
}

// Broadcast enqueues the frame on every open session of the conversation,
// including the sender's own, and reports how many sessions took it.
func (h *Hub) Broadcast(conversationID string, payload []byte) int {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions[conversationID]))
	for _, s := range h.sessions[conversationID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range sessions {
		if s.TrySend(payload) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) SessionCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[conversationID])
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, convSessions := range h.sessions {
		for _, s := range convSessions {
			s.Close()
		}
	}
}
