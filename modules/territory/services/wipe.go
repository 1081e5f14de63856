package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

var ErrWipeNotConfirmed = errors.New("status wipe requires explicit confirmation")

type WipeReport struct {
	Cleared map[territory.Partition]int `json:"cleared"`
	Total   int                         `json:"total"`
}

// WipeStatuses removes every history bucket and derived status field from
// every territory. Identity fields are untouched. It is irreversible and
// refuses to run unless confirmed is true.
func WipeStatuses(ctx context.Context, registry territory.Registry, confirmed bool, logger *logrus.Entry) (WipeReport, error) {
	if !confirmed {
		return WipeReport{}, ErrWipeNotConfirmed
	}
	if logger == nil {
		logger = logrusNop()
	}

	report := WipeReport{Cleared: map[territory.Partition]int{}}
	for _, p := range territory.Partitions() {
		n, err := registry.ClearStatus(ctx, p)
		if err != nil {
			return report, errors.Wrapf(err, "clear %s", p)
		}
		report.Cleared[p] = n
		report.Total += n
		logger.WithFields(logrus.Fields{"partition": p, "cleared": n}).Info("status fields cleared")
	}
	recordWipe(report.Total)
	return report, nil
}
