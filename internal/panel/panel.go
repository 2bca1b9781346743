// Package panel tracks which side panel is open for a connected client:
// a message thread or a member profile, never both. It also carries the
// id of the message currently being edited, which is independent of the
// panel itself.
package panel

import "sync"

type State struct {
	ParentMessageID  string
	ProfileMemberID  string
	EditingMessageID string
}

type Listener func(State)

type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: map[int]Listener{}}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OpenMessage opens the thread panel for a message, closing any open
// profile panel.
func (s *Store) OpenMessage(messageID string) {
	s.update(func(state *State) {
		state.ParentMessageID = messageID
		state.ProfileMemberID = ""
	})
}

// OpenProfile opens the profile panel for a member, closing any open
// thread panel.
func (s *Store) OpenProfile(memberID string) {
	s.update(func(state *State) {
		state.ProfileMemberID = memberID
		state.ParentMessageID = ""
	})
}

func (s *Store) Close() {
	s.update(func(state *State) {
		state.ParentMessageID = ""
		state.ProfileMemberID = ""
	})
}

func (s *Store) SetEditing(messageID string) {
	s.update(func(state *State) {
		state.EditingMessageID = messageID
	})
}

func (s *Store) ClearEditing() {
	s.update(func(state *State) {
		state.EditingMessageID = ""
	})
}

// Subscribe registers a listener called with the new state after every
// change. The returned function removes the listener.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	state := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	// Listeners run outside the lock so they can call back into the store.
	for _, listener := range listeners {
		listener(state)
	}
}
