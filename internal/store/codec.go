package store

// Codec persists the ordered account list. Load returns an empty list and
// no error when nothing has been saved yet.
type Codec interface {
	Load() ([]Account, error)
	Save(accounts []Account) error
}

// MemoryCodec keeps the last saved accounts in memory. It is used when no
// durable storage is configured and as a test double.
type MemoryCodec struct {
	// Accounts holds the last saved (or preloaded) list.
	Accounts []Account

	// LoadError, if set, is returned by Load.
	LoadError error

	// SaveError, if set, is returned by Save.
	SaveError error

	// Saves counts successful Save calls.
	Saves int
}

// NewMemoryCodec returns a codec preloaded with accounts.
func NewMemoryCodec(accounts ...Account) *MemoryCodec {
	return &MemoryCodec{Accounts: cloneAll(accounts)}
}

// Load returns a copy of the stored accounts.
func (m *MemoryCodec) Load() ([]Account, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return cloneAll(m.Accounts), nil
}

// Save stores a copy of accounts.
func (m *MemoryCodec) Save(accounts []Account) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Accounts = cloneAll(accounts)
	m.Saves++
	return nil
}
