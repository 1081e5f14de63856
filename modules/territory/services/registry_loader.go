package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

// Kodifikator column order: four hierarchy levels, the additional
// (city-district) level, category letter, object name.
const (
	kodLevel1 = iota
	kodLevel2
	kodLevel3
	kodLevel4
	kodAdditional
	kodCategory
	kodName
	kodColumns
)

type RegistryLoadReport struct {
	Loaded          map[territory.Partition]int `json:"loaded"`
	Total           int                         `json:"total"`
	SkippedPreamble int                         `json:"skipped_preamble"`
	UnknownCategory int                         `json:"unknown_category"`
	Invalid         int                         `json:"invalid"`
}

// LoadRegistry reads a ';'-separated kodifikator export and upserts identity
// fields of every territory. Status fields of existing territories are kept.
// Preamble lines are skipped until the first row carrying a level-1 code.
func LoadRegistry(ctx context.Context, registry territory.Registry, r io.Reader, logger *logrus.Entry) (RegistryLoadReport, error) {
	if logger == nil {
		logger = logrusNop()
	}
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	report := RegistryLoadReport{Loaded: map[territory.Partition]int{}}
	inBody := false
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return report, errors.Wrapf(err, "line %d", line)
		}
		if !inBody {
			if len(rec) > kodLevel1 && IsValidTerritoryCode(rec[kodLevel1]) {
				inBody = true
			} else {
				report.SkippedPreamble++
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		t, ok := kodifikatorTerritory(rec)
		if !ok {
			report.Invalid++
			logger.WithField("line", line).Debug("kodifikator row skipped")
			continue
		}
		p, known := t.Category.Partition()
		if !known {
			report.UnknownCategory++
			logger.WithFields(logrus.Fields{"line": line, "category": t.Category, "name": t.Name}).Warn("unknown kodifikator category")
			continue
		}
		if err := registry.Upsert(ctx, t); err != nil {
			return report, errors.Wrapf(err, "line %d: upsert %s", line, t.Code)
		}
		report.Loaded[p]++
		report.Total++
		if report.Total%1000 == 0 {
			logger.WithField("total", report.Total).Info("kodifikator rows loaded")
		}
	}
	return report, nil
}

// kodifikatorTerritory takes the deepest non-empty level as the object code
// and the next shallower non-empty level as its parent.
func kodifikatorTerritory(rec []string) (territory.Territory, bool) {
	if len(rec) < kodColumns {
		return territory.Territory{}, false
	}
	category := strings.TrimSpace(rec[kodCategory])
	name := NormalizeName(rec[kodName])
	if category == "" || name == "" {
		return territory.Territory{}, false
	}

	levels := []int{kodAdditional, kodLevel4, kodLevel3, kodLevel2, kodLevel1}
	var code, parent string
	for _, idx := range levels {
		v := strings.TrimSpace(rec[idx])
		switch {
		case v == "":
		case code == "":
			code = v
		case parent == "":
			parent = v
		}
	}
	if !IsValidTerritoryCode(code) {
		return territory.Territory{}, false
	}
	if parent != "" && !IsValidTerritoryCode(parent) {
		parent = ""
	}
	return territory.Territory{
		Code:       code,
		Name:       name,
		Category:   territory.Category(category),
		ParentCode: parent,
	}, true
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
