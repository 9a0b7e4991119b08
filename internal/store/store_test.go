package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

func newStore(t *testing.T) (*Store, *MemoryCodec) {
	t.Helper()
	codec := NewMemoryCodec()
	s := New(codec)
	require.NoError(t, s.Load())
	require.NoError(t, s.EnsureAdmin())
	return s, codec
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	s, codec := newStore(t)
	require.Equal(t, 1, s.Len())

	a, ok := s.Account(0)
	require.True(t, ok)
	assert.Equal(t, AdminUsername, a.Username)
	assert.Equal(t, AdminPassword, a.Password)
	assert.True(t, a.IsAdmin)
	assert.Equal(t, 1, codec.Saves)

	require.NoError(t, s.EnsureAdmin())
	assert.Equal(t, 1, s.Len(), "EnsureAdmin must be idempotent")
}

func TestEnsureAdminPromotesExistingAdminName(t *testing.T) {
	codec := NewMemoryCodec(Account{Username: "admin", Password: "secret"})
	s := New(codec)
	require.NoError(t, s.Load())
	require.NoError(t, s.EnsureAdmin())

	require.Equal(t, 1, s.Len())
	a, _ := s.Account(0)
	assert.True(t, a.IsAdmin)
	assert.Equal(t, "secret", a.Password)
}

func TestRegisterDuplicate(t *testing.T) {
	s, _ := newStore(t)

	i, err := s.Register("bob", "pw1")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = s.Register("bob", "other")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, 2, s.Len())
}

func TestRegisterDefaults(t *testing.T) {
	s, codec := newStore(t)
	i, err := s.Register("bob", "pw1")
	require.NoError(t, err)

	a, _ := s.Account(i)
	assert.False(t, a.IsAdmin)
	assert.Nil(t, a.Bedtime)
	assert.Nil(t, a.Wakeup)
	assert.Empty(t, a.Records)
	assert.Len(t, codec.Accounts, 2, "register must persist")
}

func TestRegisterRejectsEmpty(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Register("", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Register("bob", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterCapacity(t *testing.T) {
	s, _ := newStore(t)
	for i := 1; i < MaxAccounts; i++ {
		_, err := s.Register(fmt.Sprintf("user%d", i), "pw")
		require.NoError(t, err)
	}
	require.Equal(t, MaxAccounts, s.Len())

	_, err := s.Register("eleventh", "pw")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, MaxAccounts, s.Len())
}

func TestAuthenticate(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Register("bob", "pw1")
	require.NoError(t, err)

	i, ok := s.Authenticate("bob", "pw1")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = s.Authenticate("bob", "wrong")
	assert.False(t, ok)
	_, ok = s.Authenticate("Bob", "pw1")
	assert.False(t, ok, "usernames are case-sensitive")
	_, ok = s.Authenticate("nobody", "pw1")
	assert.False(t, ok)
}

func TestAddRecordEvictsOldest(t *testing.T) {
	s, codec := newStore(t)
	i, _ := s.Register("bob", "pw")

	for n := 1; n <= MaxRecords+1; n++ {
		require.NoError(t, s.AddRecord(i, logic.Vitals{PulseBPM: uint16(60 + n), SpO2: 95}, uint32(n*1000)))
	}

	a, _ := s.Account(i)
	require.Len(t, a.Records, MaxRecords)
	assert.Equal(t, PulseRecord{Timestamp: 2000, PulseBPM: 62, SpO2: 95}, a.Records[0], "call #2 becomes the oldest")
	assert.Equal(t, uint16(60+MaxRecords+1), a.Records[MaxRecords-1].PulseBPM)
	assert.Len(t, codec.Accounts[i].Records, MaxRecords, "every add persists")
}

func TestAddRecordInvalidIndex(t *testing.T) {
	s, _ := newStore(t)
	assert.ErrorIs(t, s.AddRecord(5, logic.Vitals{}, 0), ErrInvalidTarget)
	assert.ErrorIs(t, s.AddRecord(-1, logic.Vitals{}, 0), ErrInvalidTarget)
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := s.Register(name, "pw")
		require.NoError(t, err)
	}
	var session Session
	session.Begin(0) // admin

	require.NoError(t, s.Delete(2, session)) // bob
	require.Equal(t, 3, s.Len())

	var names []string
	for _, a := range s.Accounts() {
		names = append(names, a.Username)
	}
	assert.Equal(t, []string{"admin", "alice", "carol"}, names)
}

func TestDeleteRejectsSelfAndOutOfRange(t *testing.T) {
	s, _ := newStore(t)
	i, _ := s.Register("bob", "pw")

	var session Session
	session.Begin(i)
	assert.ErrorIs(t, s.Delete(i, session), ErrInvalidTarget)
	assert.ErrorIs(t, s.Delete(7, session), ErrInvalidTarget)
	assert.ErrorIs(t, s.Delete(-1, session), ErrInvalidTarget)
	assert.Equal(t, 2, s.Len())
}

func TestSessionAfterDelete(t *testing.T) {
	var s Session
	s.Begin(3)
	s.AfterDelete(5)
	i, ok := s.Index()
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	s.AfterDelete(1)
	i, _ = s.Index()
	assert.Equal(t, 2, i, "session follows its account down")

	s.AfterDelete(2)
	assert.False(t, s.Active(), "session on a removed account is invalidated")

	s.AfterDelete(0)
	assert.False(t, s.Active())
}

func TestSetSleepWindow(t *testing.T) {
	s, _ := newStore(t)
	i, _ := s.Register("bob", "pw")

	err := s.SetSleepWindow(i, logic.SleepWindow{
		Bedtime: &logic.TimeOfDay{Hour: 22, Minute: 30},
		Wakeup:  &logic.TimeOfDay{Hour: 6, Minute: 45},
	})
	require.NoError(t, err)
	a, _ := s.Account(i)
	require.NotNil(t, a.Bedtime)
	require.NotNil(t, a.Wakeup)
	assert.Equal(t, logic.TimeOfDay{Hour: 22, Minute: 30}, *a.Bedtime)
	assert.Equal(t, logic.TimeOfDay{Hour: 6, Minute: 45}, *a.Wakeup)

	err = s.SetSleepWindow(i, logic.SleepWindow{Bedtime: &logic.TimeOfDay{Hour: 25}})
	assert.ErrorIs(t, err, logic.ErrInvalidTime)
	a, _ = s.Account(i)
	assert.NotNil(t, a.Wakeup, "rejected input leaves settings untouched")
}

func TestSetSleepWindowStoresWholeWindow(t *testing.T) {
	s, _ := newStore(t)
	i, _ := s.Register("bob", "pw")
	require.NoError(t, s.SetSleepWindow(i, logic.SleepWindow{
		Bedtime: &logic.TimeOfDay{Hour: 22, Minute: 0},
		Wakeup:  &logic.TimeOfDay{Hour: 6, Minute: 0},
	}))

	require.NoError(t, s.SetSleepWindow(i, logic.SleepWindow{Bedtime: &logic.TimeOfDay{Hour: 23, Minute: 0}}))
	a, _ := s.Account(i)
	require.NotNil(t, a.Bedtime)
	assert.Equal(t, 23, a.Bedtime.Hour)
	assert.Nil(t, a.Wakeup, "the store does not merge; a nil half is stored unset")
}

func TestAccountCopiesAreIndependent(t *testing.T) {
	s, _ := newStore(t)
	i, _ := s.Register("bob", "pw")
	require.NoError(t, s.AddRecord(i, logic.Vitals{PulseBPM: 70, SpO2: 97}, 1))

	a, _ := s.Account(i)
	a.Records[0].PulseBPM = 1
	a.Username = "mallory"

	b, _ := s.Account(i)
	assert.Equal(t, uint16(70), b.Records[0].PulseBPM)
	assert.Equal(t, "bob", b.Username)
}

func TestLoadFailureLeavesStoreEmpty(t *testing.T) {
	codec := NewMemoryCodec(Account{Username: "bob", Password: "pw"})
	codec.LoadError = errors.New("flash corrupted")
	s := New(codec)

	err := s.Load()
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.EnsureAdmin())
	assert.Equal(t, 1, s.Len())
}

func TestLoadEnforcesInvariants(t *testing.T) {
	var stored []Account
	for i := 0; i < MaxAccounts+2; i++ {
		stored = append(stored, Account{Username: fmt.Sprintf("u%d", i), Password: "pw"})
	}
	stored[1].Username = "u0" // duplicate
	for n := 0; n < MaxRecords+5; n++ {
		stored[0].Records = append(stored[0].Records, PulseRecord{Timestamp: uint32(n)})
	}

	s := New(NewMemoryCodec(stored...))
	require.NoError(t, s.Load())
	assert.Equal(t, MaxAccounts, s.Len())
	_, dup := s.Find("u1")
	assert.False(t, dup)

	a, _ := s.Account(0)
	require.Len(t, a.Records, MaxRecords)
	assert.Equal(t, uint32(5), a.Records[0].Timestamp, "newest records are kept")
}

func TestDegradedPersistence(t *testing.T) {
	s, codec := newStore(t)
	codec.SaveError = errors.New("read-only filesystem")

	_, err := s.Register("bob", "pw")
	require.NoError(t, err, "save failures never fail the caller")
	assert.True(t, s.Degraded())
	_, ok := s.Find("bob")
	assert.True(t, ok, "change kept in memory")

	codec.SaveError = nil
	_, err = s.Register("carol", "pw")
	require.NoError(t, err)
	assert.False(t, s.Degraded())
	assert.Len(t, codec.Accounts, 3)
}

func TestNilCodecIsDegraded(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Load())
	require.NoError(t, s.EnsureAdmin())
	assert.True(t, s.Degraded())
	assert.Equal(t, 1, s.Len())
}
