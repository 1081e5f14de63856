package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

type BackfillReport struct {
	Territories int `json:"territories"`
	Periods     int `json:"periods"`
	Errors      int `json:"errors"`
}

// BackfillProvenance fills missing source_document and document_date on
// stored periods from profile, then derives a missing document_date_iso from
// the period's own document date. Present values are never overwritten.
// Per-territory write failures are counted and skipped.
func BackfillProvenance(ctx context.Context, registry territory.Registry, profile ImportProfile, logger *logrus.Entry) (BackfillReport, error) {
	if logger == nil {
		logger = logrusNop()
	}
	if err := profile.ValidationError(); err != nil {
		return BackfillReport{}, err
	}

	var report BackfillReport
	for _, p := range territory.Partitions() {
		items, err := registry.ListWithStatus(ctx, p, territory.StatusFilter{})
		if err != nil {
			return report, errors.Wrapf(err, "list %s", p)
		}
		for _, t := range items {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			changed := 0
			t.OccupationHistory, changed = fillProvenance(t.OccupationHistory, profile, changed)
			t.CombatHistory, changed = fillProvenance(t.CombatHistory, profile, changed)
			t.StatusHistory, changed = fillProvenance(t.StatusHistory, profile, changed)
			if changed == 0 {
				continue
			}
			if err := registry.ReplaceHistories(ctx, t); err != nil {
				report.Errors++
				logger.WithError(err).WithField("code", t.Code).Error("provenance backfill failed")
				continue
			}
			report.Territories++
			report.Periods += changed
		}
	}
	return report, nil
}

func fillProvenance(periods []territory.StatusPeriod, profile ImportProfile, changed int) ([]territory.StatusPeriod, int) {
	for i := range periods {
		touched := false
		if periods[i].SourceDocument == "" && profile.DocumentName != "" {
			periods[i].SourceDocument = profile.DocumentName
			touched = true
		}
		if periods[i].DocumentDate == "" && profile.DocumentDate != "" {
			periods[i].DocumentDate = profile.DocumentDate
			touched = true
		}
		if periods[i].DocumentDateISO == "" {
			if iso := isoDocumentDate(periods[i].DocumentDate); iso != "" {
				periods[i].DocumentDateISO = iso
				touched = true
			}
		}
		if touched {
			changed++
		}
	}
	return periods, changed
}

func isoDocumentDate(date string) string {
	t, ok := ParseDate(date)
	if !ok {
		return ""
	}
	return t.Format(time.DateOnly)
}
