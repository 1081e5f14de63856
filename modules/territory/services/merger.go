package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

type MergeOutcome string

const (
	MergeAppended       MergeOutcome = "appended"
	MergeAlreadyPresent MergeOutcome = "already_present"
)

// Provenance describes where a period came from.
type Provenance struct {
	SourceDocument  string
	DocumentDate    string
	DocumentDateISO string
	ImportID        string
	ImportVersion   string
	TerritoryCode   string
	TableSource     int
}

type MergeInput struct {
	TerritoryCode string
	Status        territory.Status
	Start         time.Time
	End           *time.Time
	Provenance    Provenance
}

// Merger appends status periods to territory history buckets.
//
// Each append is a read-modify-write of one territory and is not safe
// against concurrent writers to the same territory; runs are serialized by
// the run lock.
type Merger struct {
	registry territory.Registry
	now      func() time.Time
}

func NewMerger(registry territory.Registry) *Merger {
	return &Merger{registry: registry, now: time.Now}
}

func (m *Merger) Append(ctx context.Context, in MergeInput) (MergeOutcome, error) {
	period := territory.StatusPeriod{
		Status:          in.Status,
		StartDate:       territory.DateOnly(in.Start),
		SourceDocument:  in.Provenance.SourceDocument,
		DocumentDate:    in.Provenance.DocumentDate,
		DocumentDateISO: in.Provenance.DocumentDateISO,
		ImportID:        in.Provenance.ImportID,
		ImportVersion:   in.Provenance.ImportVersion,
		TerritoryCode:   in.Provenance.TerritoryCode,
		TableSource:     in.Provenance.TableSource,
		UpdatedAt:       m.now().UTC(),
	}
	if in.End != nil {
		end := territory.DateOnly(*in.End)
		period.EndDate = &end
	}
	if err := period.Validate(); err != nil {
		return "", err
	}

	current, err := m.registry.GetByCode(ctx, in.TerritoryCode)
	if err != nil {
		return "", errors.Wrapf(err, "read territory %s", in.TerritoryCode)
	}

	bucket := in.Status.Bucket()
	history := current.History(bucket)
	key := period.Key()
	for _, existing := range history {
		if existing.Key() == key {
			return MergeAlreadyPresent, nil
		}
	}

	next := make([]territory.StatusPeriod, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, period)

	upd := territory.StatusUpdate{
		Bucket:           bucket,
		History:          next,
		CurrentStatus:    period.Status,
		StatusStartDate:  &period.StartDate,
		StatusEndDate:    period.EndDate,
		LastStatusUpdate: period.UpdatedAt,
		LastImportID:     period.ImportID,
	}
	if err := m.registry.UpdateStatus(ctx, current.Code, upd); err != nil {
		return "", errors.Wrapf(err, "write territory %s", current.Code)
	}
	return MergeAppended, nil
}
