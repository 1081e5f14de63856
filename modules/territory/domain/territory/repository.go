package territory

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("territory not found")

// StatusUpdate is the merge-style partial update written by one append:
// the full replacement of one bucket plus the refreshed derived fields.
type StatusUpdate struct {
	Bucket           HistoryBucket
	History          []StatusPeriod
	CurrentStatus    Status
	StatusStartDate  *time.Time
	StatusEndDate    *time.Time
	LastStatusUpdate time.Time
	LastImportID     string
}

// StatusFilter narrows ListWithStatus. Zero value matches every territory
// carrying at least one history bucket.
type StatusFilter struct {
	Status Status
}

type NameRef struct {
	Code      string
	Name      string
	Partition Partition
}

// Registry is the territory store boundary. Implementations address
// territories by partition; GetByCode searches all partitions.
type Registry interface {
	GetByCode(ctx context.Context, code string) (Territory, error)
	FindByName(ctx context.Context, partition Partition, name string) (Territory, error)
	FindByNameFold(ctx context.Context, partition Partition, fragment string) (Territory, error)
	UpdateStatus(ctx context.Context, code string, upd StatusUpdate) error
	ClearStatus(ctx context.Context, partition Partition) (int, error)
	ListWithStatus(ctx context.Context, partition Partition, filter StatusFilter) ([]Territory, error)
	ReplaceHistories(ctx context.Context, t Territory) error
	Count(ctx context.Context, partition Partition) (int, error)
	CountWithStatus(ctx context.Context, partition Partition) (int, error)
	Upsert(ctx context.Context, t Territory) error
	Names(ctx context.Context, partition Partition) ([]NameRef, error)
}

// Matches reports whether t satisfies the filter.
func (f StatusFilter) Matches(t Territory) bool {
	if t.OccupationHistory == nil && t.CombatHistory == nil && t.StatusHistory == nil {
		return false
	}
	if f.Status == "" {
		return true
	}
	for _, b := range Buckets() {
		for _, p := range t.History(b) {
			if p.Status == f.Status {
				return true
			}
		}
	}
	return false
}
