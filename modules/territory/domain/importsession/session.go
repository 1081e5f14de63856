package importsession

import (
	"errors"
	"time"
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateError      State = "error"
)

var (
	ErrNotFound         = errors.New("import session not found")
	ErrAlreadyFinalized = errors.New("import session already finalized")
	ErrInvalidState     = errors.New("invalid terminal state")
)

// UnresolvedRow is a data row that could not be merged.
type UnresolvedRow struct {
	Table       int      `json:"table" bson:"table"`
	Line        int      `json:"line" bson:"line"`
	Status      string   `json:"status" bson:"status"`
	Code        string   `json:"code" bson:"code"`
	Name        string   `json:"name" bson:"name"`
	Reason      string   `json:"reason" bson:"reason"`
	Suggestions []string `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
}

// Session is the audit record of one import run.
type Session struct {
	ID       string `json:"id" bson:"_id"`
	ImportID string `json:"import_id" bson:"import_id"`

	DocumentName    string `json:"document_name" bson:"document_name"`
	DocumentDate    string `json:"document_date,omitempty" bson:"document_date,omitempty"`
	DocumentDateISO string `json:"document_date_iso,omitempty" bson:"document_date_iso,omitempty"`
	ImportVersion   string `json:"import_version,omitempty" bson:"import_version,omitempty"`
	Description     string `json:"description,omitempty" bson:"description,omitempty"`
	SourcePath      string `json:"source_path,omitempty" bson:"source_path,omitempty"`
	ArchiveKey      string `json:"archive_key,omitempty" bson:"archive_key,omitempty"`

	StartedAt  time.Time  `json:"started_at" bson:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	State      State      `json:"state" bson:"state"`

	TablesCount     int `json:"tables_count" bson:"tables_count"`
	TotalRows       int `json:"total_rows" bson:"total_rows"`
	TotalProcessed  int `json:"total_processed" bson:"total_processed"`
	TotalImported   int `json:"total_imported" bson:"total_imported"`
	TotalDuplicates int `json:"total_duplicates" bson:"total_duplicates"`
	TotalErrors     int `json:"total_errors" bson:"total_errors"`

	Unresolved   []UnresolvedRow `json:"unresolved,omitempty" bson:"unresolved,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty" bson:"error_message,omitempty"`
}

func New(id, importID string, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		ImportID:  importID,
		StartedAt: startedAt.UTC(),
		State:     StateInProgress,
	}
}

func (s *Session) Finalized() bool {
	return s.State != StateInProgress
}

// Finalize moves the session into a terminal state. It succeeds once.
func (s *Session) Finalize(state State, at time.Time, errMsg string) error {
	if s.Finalized() {
		return ErrAlreadyFinalized
	}
	switch state {
	case StateCompleted, StateCancelled, StateError:
	default:
		return ErrInvalidState
	}
	finished := at.UTC()
	s.State = state
	s.FinishedAt = &finished
	s.ErrorMessage = errMsg
	return nil
}

func (s *Session) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
