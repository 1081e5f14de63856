package territory

import (
	"errors"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid status period")

// StatusPeriod is one bounded or open-ended interval of a status.
type StatusPeriod struct {
	Status    Status     `json:"status" bson:"status"`
	StartDate time.Time  `json:"start_date" bson:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" bson:"end_date"`

	SourceDocument  string    `json:"source_document,omitempty" bson:"source_document,omitempty"`
	DocumentDate    string    `json:"document_date,omitempty" bson:"document_date,omitempty"`
	DocumentDateISO string    `json:"document_date_iso,omitempty" bson:"document_date_iso,omitempty"`
	ImportID        string    `json:"import_id,omitempty" bson:"import_id,omitempty"`
	ImportVersion   string    `json:"import_version,omitempty" bson:"import_version,omitempty"`
	TerritoryCode   string    `json:"territory_code,omitempty" bson:"territory_code,omitempty"`
	TableSource     int       `json:"table_source,omitempty" bson:"table_source,omitempty"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// DedupKey identifies a period within one history bucket.
type DedupKey struct {
	Status    Status
	StartDate time.Time
	ImportID  string
}

func (p StatusPeriod) Key() DedupKey {
	return DedupKey{Status: p.Status, StartDate: DateOnly(p.StartDate), ImportID: p.ImportID}
}

// Validate enforces a required start date and end >= start.
func (p StatusPeriod) Validate() error {
	if p.Status == "" {
		return errors.Join(ErrInvalidPeriod, errors.New("status is required"))
	}
	if p.StartDate.IsZero() {
		return errors.Join(ErrInvalidPeriod, errors.New("start_date is required"))
	}
	if p.EndDate != nil && DateOnly(*p.EndDate).Before(DateOnly(p.StartDate)) {
		return errors.Join(ErrInvalidPeriod, errors.New("end_date before start_date"))
	}
	return nil
}

// ActiveOn reports start <= d and (no end or end >= d), compared by calendar day.
func (p StatusPeriod) ActiveOn(d time.Time) bool {
	day := DateOnly(d)
	if DateOnly(p.StartDate).After(day) {
		return false
	}
	return p.EndDate == nil || !DateOnly(*p.EndDate).Before(day)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	u := t.UTC()
	y, m, d := u.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
