package store

// Session is the single active login on the device. It refers to an
// account by index and does not own it.
type Session struct {
	index  int
	active bool
}

// Index returns the active account index.
func (s Session) Index() (int, bool) {
	return s.index, s.active
}

// Active reports whether someone is logged in.
func (s Session) Active() bool {
	return s.active
}

// Begin makes index the active account, replacing any previous session.
func (s *Session) Begin(index int) {
	s.index = index
	s.active = true
}

// End logs out.
func (s *Session) End() {
	s.index = 0
	s.active = false
}

// AfterDelete keeps the session pointing at the same account after the
// account at deleted was removed and the collection compacted.
func (s *Session) AfterDelete(deleted int) {
	if !s.active {
		return
	}
	switch {
	case deleted == s.index:
		s.End()
	case deleted < s.index:
		s.index--
	}
}
