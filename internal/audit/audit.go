package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	"github.com/PolarWolf314/kaitiaki/internal/utils"
)

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`     // RFC3339 with microseconds.
	Ledger    string `json:"ledger"` // UUID of the ledger.
	User      string `json:"user"`   // Local username running the command.
	Operation string `json:"op"`     // Operation name.

	// Optional fields depending on operation.
	Salt       string `json:"salt,omitempty"`        // For issue/verify/decrypt.
	Signature  string `json:"signature,omitempty"`   // For issue/verify/decrypt.
	Outcome    string `json:"outcome,omitempty"`     // For verify/decrypt/check.
	Height     *int64 `json:"height,omitempty"`      // For issue/verify.
	SKU        string `json:"sku,omitempty"`         // For issue.
	Blocks     int    `json:"blocks,omitempty"`      // For check.
	LedgerName string `json:"ledger_name,omitempty"` // For init.
}

// NewEntry returns an entry for op with the ledger and user fields populated.
func NewEntry(op, ledgerUUID string) Entry {
	entry := Entry{Operation: op, Ledger: ledgerUUID}
	if username, err := utils.GetUsername(); err == nil {
		entry.User = username
	}
	return entry
}

// Log appends an entry to the audit log.
// Failures are ignored; operations never fail because of audit logging.
func Log(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	logPath := LogPath()
	if logPath == "" {
		return
	}

	// #nosec G306 -- audit log should be readable by team members.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the path to the audit log file.
// Returns empty string if project is not initialized.
func LogPath() string {
	if configs.ProjectKaitiakiSettings == nil {
		return ""
	}
	return configs.ProjectKaitiakiSettings.AuditPath
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	logPath := LogPath()
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// ParseTimestamp parses an entry timestamp, accepting plain RFC3339 as well.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err
}
