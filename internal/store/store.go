package store

import (
	"fmt"
	"log"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

// Store is the bounded, insertion-ordered account collection. Every
// mutation is persisted immediately. Not safe for concurrent use; the
// device loop is its only caller.
type Store struct {
	codec    Codec
	accounts []Account
	degraded bool
}

// New creates an empty store. A nil codec runs the store in memory only
// (degraded).
func New(codec Codec) *Store {
	return &Store{codec: codec, degraded: codec == nil}
}

// Load replaces the collection with the codec's contents. On failure the
// store is left empty and the error is returned for the caller to log;
// startup continues with EnsureAdmin.
func (s *Store) Load() error {
	s.accounts = nil
	if s.codec == nil {
		return nil
	}
	loaded, err := s.codec.Load()
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	seen := make(map[string]bool, len(loaded))
	for _, a := range loaded {
		if len(s.accounts) == MaxAccounts {
			log.Printf("store: more than %d accounts stored, ignoring the rest", MaxAccounts)
			break
		}
		if a.Username == "" || seen[a.Username] {
			log.Printf("store: skipping invalid or duplicate account %q", a.Username)
			continue
		}
		seen[a.Username] = true
		if n := len(a.Records); n > MaxRecords {
			a.Records = a.Records[n-MaxRecords:]
		}
		s.accounts = append(s.accounts, a.clone())
	}
	return nil
}

// save persists the collection. Persistence failures never fail the
// caller: the store degrades to in-memory operation and logs a warning.
func (s *Store) save() {
	if s.codec == nil {
		log.Printf("store: no persistence configured, change kept in memory only")
		return
	}
	if err := s.codec.Save(s.accounts); err != nil {
		if !s.degraded {
			log.Printf("store: persistence unavailable, running in memory: %v", err)
		}
		s.degraded = true
		return
	}
	if s.degraded {
		log.Printf("store: persistence recovered")
	}
	s.degraded = false
}

// Degraded reports whether changes are currently only held in memory.
func (s *Store) Degraded() bool {
	return s.degraded
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	return len(s.accounts)
}

// Find returns the index of the account with exactly this username.
func (s *Store) Find(username string) (int, bool) {
	for i, a := range s.accounts {
		if a.Username == username {
			return i, true
		}
	}
	return -1, false
}

// Account returns a copy of the account at index.
func (s *Store) Account(index int) (Account, bool) {
	if !s.valid(index) {
		return Account{}, false
	}
	return s.accounts[index].clone(), true
}

// Username returns the name of the account at index without copying
// its records.
func (s *Store) Username(index int) (string, bool) {
	if !s.valid(index) {
		return "", false
	}
	return s.accounts[index].Username, true
}

// IsAdmin reports whether the account at index is an administrator.
func (s *Store) IsAdmin(index int) bool {
	return s.valid(index) && s.accounts[index].IsAdmin
}

// Accounts returns a copy of every account in order.
func (s *Store) Accounts() []Account {
	return cloneAll(s.accounts)
}

// Register appends a new non-admin account and returns its index.
func (s *Store) Register(username, password string) (int, error) {
	if username == "" || password == "" {
		return -1, ErrInvalidCredentials
	}
	if _, ok := s.Find(username); ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateUsername, username)
	}
	if len(s.accounts) >= MaxAccounts {
		return -1, ErrCapacityExceeded
	}
	s.accounts = append(s.accounts, Account{Username: username, Password: password})
	s.save()
	return len(s.accounts) - 1, nil
}

// Authenticate returns the index of the account whose username and
// password both match exactly.
func (s *Store) Authenticate(username, password string) (int, bool) {
	i, ok := s.Find(username)
	if !ok || s.accounts[i].Password != password {
		return -1, false
	}
	return i, true
}

// AddRecord appends a reading to the account's history, evicting the
// oldest record once MaxRecords is reached.
func (s *Store) AddRecord(index int, v logic.Vitals, timestamp uint32) error {
	if !s.valid(index) {
		return fmt.Errorf("%w: index %d", ErrInvalidTarget, index)
	}
	a := &s.accounts[index]
	if len(a.Records) >= MaxRecords {
		copy(a.Records, a.Records[1:])
		a.Records = a.Records[:MaxRecords-1]
	}
	a.Records = append(a.Records, PulseRecord{Timestamp: timestamp, PulseBPM: v.PulseBPM, SpO2: v.SpO2})
	s.save()
	return nil
}

// SetSleepWindow stores w as the account's complete sleep window: a nil
// field leaves that time unset. Callers that update one half merge with
// the current window first (device.SetSleepWindow does).
func (s *Store) SetSleepWindow(index int, w logic.SleepWindow) error {
	if !s.valid(index) {
		return fmt.Errorf("%w: index %d", ErrInvalidTarget, index)
	}
	for _, t := range []*logic.TimeOfDay{w.Bedtime, w.Wakeup} {
		if t != nil && !t.Valid() {
			return fmt.Errorf("%w: %d:%d", logic.ErrInvalidTime, t.Hour, t.Minute)
		}
	}
	a := &s.accounts[index]
	a.Bedtime, a.Wakeup = nil, nil
	if w.Bedtime != nil {
		b := *w.Bedtime
		a.Bedtime = &b
	}
	if w.Wakeup != nil {
		wk := *w.Wakeup
		a.Wakeup = &wk
	}
	s.save()
	return nil
}

// Delete removes the account at index and compacts the collection. The
// active session's own account cannot be deleted. The caller must pass the
// session to AfterDelete so it keeps pointing at the right account.
func (s *Store) Delete(index int, active Session) error {
	if !s.valid(index) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidTarget, index)
	}
	if cur, ok := active.Index(); ok && cur == index {
		return fmt.Errorf("%w: cannot delete the logged-in account", ErrInvalidTarget)
	}
	s.accounts = append(s.accounts[:index], s.accounts[index+1:]...)
	s.save()
	return nil
}

// EnsureAdmin creates the built-in administrator when no admin account
// exists. An existing non-admin "admin" account is promoted instead.
func (s *Store) EnsureAdmin() error {
	for _, a := range s.accounts {
		if a.IsAdmin {
			return nil
		}
	}
	if i, ok := s.Find(AdminUsername); ok {
		s.accounts[i].IsAdmin = true
		log.Printf("store: promoted existing %q account to administrator", AdminUsername)
		s.save()
		return nil
	}
	if len(s.accounts) >= MaxAccounts {
		return fmt.Errorf("create administrator: %w", ErrCapacityExceeded)
	}
	s.accounts = append(s.accounts, Account{
		Username: AdminUsername,
		Password: AdminPassword,
		IsAdmin:  true,
	})
	log.Printf("store: created administrator account %q", AdminUsername)
	s.save()
	return nil
}

func (s *Store) valid(index int) bool {
	return index >= 0 && index < len(s.accounts)
}
