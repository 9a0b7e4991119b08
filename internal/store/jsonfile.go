package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweeney/vitals-monitor/internal/logic"
)

// fileJSON is the users.json layout. Unset sleep fields are stored as -1.
type fileJSON struct {
	Count int        `json:"count"`
	Users []userJSON `json:"users"`
}

type userJSON struct {
	Username      string       `json:"username"`
	Password      string       `json:"password"`
	IsAdmin       bool         `json:"isAdmin"`
	BedtimeHour   int          `json:"bedtimeHour"`
	BedtimeMinute int          `json:"bedtimeMinute"`
	WakeupHour    int          `json:"wakeupHour"`
	WakeupMinute  int          `json:"wakeupMinute"`
	RecordCount   int          `json:"recordCount"`
	Records       []recordJSON `json:"records"`
}

type recordJSON struct {
	Timestamp uint32 `json:"timestamp"`
	Pulse     uint16 `json:"pulse"`
	SpO2      uint8  `json:"spo2"`
}

// JSONFile stores accounts in a single JSON document.
type JSONFile struct {
	Path string
}

// NewJSONFile returns a codec for path. The parent directory is created on
// first save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// Load reads the document. A missing file is an empty store.
func (f *JSONFile) Load() ([]Account, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var doc fileJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}

	if doc.Count < 0 {
		return nil, fmt.Errorf("decode %s: negative count %d", f.Path, doc.Count)
	}
	n := min(doc.Count, len(doc.Users))
	accounts := make([]Account, 0, n)
	for _, u := range doc.Users[:n] {
		a := Account{
			Username: u.Username,
			Password: u.Password,
			IsAdmin:  u.IsAdmin,
			Bedtime:  decodeTime(u.BedtimeHour, u.BedtimeMinute),
			Wakeup:   decodeTime(u.WakeupHour, u.WakeupMinute),
		}
		if u.RecordCount < 0 {
			return nil, fmt.Errorf("decode %s: user %q: negative recordCount %d", f.Path, u.Username, u.RecordCount)
		}
		records := u.Records[:min(u.RecordCount, len(u.Records))]
		for _, r := range records {
			a.Records = append(a.Records, PulseRecord{Timestamp: r.Timestamp, PulseBPM: r.Pulse, SpO2: r.SpO2})
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Save writes the document atomically (temp file + rename).
func (f *JSONFile) Save(accounts []Account) error {
	doc := fileJSON{Count: len(accounts), Users: make([]userJSON, 0, len(accounts))}
	for _, a := range accounts {
		u := userJSON{
			Username:    a.Username,
			Password:    a.Password,
			IsAdmin:     a.IsAdmin,
			RecordCount: len(a.Records),
			Records:     make([]recordJSON, 0, len(a.Records)),
		}
		u.BedtimeHour, u.BedtimeMinute = encodeTime(a.Bedtime)
		u.WakeupHour, u.WakeupMinute = encodeTime(a.Wakeup)
		for _, r := range a.Records {
			u.Records = append(u.Records, recordJSON{Timestamp: r.Timestamp, Pulse: r.PulseBPM, SpO2: r.SpO2})
		}
		doc.Users = append(doc.Users, u)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace %s: %w", f.Path, err)
	}
	return nil
}

func decodeTime(h, m int) *logic.TimeOfDay {
	t := logic.TimeOfDay{Hour: h, Minute: m}
	if h < 0 || !t.Valid() {
		return nil
	}
	return &t
}

func encodeTime(t *logic.TimeOfDay) (int, int) {
	if t == nil {
		return -1, -1
	}
	return t.Hour, t.Minute
}
