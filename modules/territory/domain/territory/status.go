package territory

import (
	"fmt"
	"strings"
)

// Status is a status classification label as printed in the source documents.
type Status string

const (
	StatusPossibleCombat            Status = "1. Території можливих бойових дій"
	StatusActiveCombat              Status = "2. Території активних бойових дій"
	StatusActiveCombatWithResources Status = "3. Території активних бойових дій, на яких функціонують державні електронні інформаційні ресурси"
	StatusTemporarilyOccupied       Status = "Тимчасово окуповані території"
)

var statusSlugs = map[string]Status{
	"possible_combat":              StatusPossibleCombat,
	"active_combat":                StatusActiveCombat,
	"active_combat_with_resources": StatusActiveCombatWithResources,
	"temporarily_occupied":         StatusTemporarilyOccupied,
}

// Statuses lists the known classifications.
func Statuses() []Status {
	return []Status{
		StatusPossibleCombat,
		StatusActiveCombat,
		StatusActiveCombatWithResources,
		StatusTemporarilyOccupied,
	}
}

// ParseStatus accepts either a slug (active_combat) or the full label.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	if st, ok := statusSlugs[strings.ToLower(s)]; ok {
		return st, nil
	}
	for _, st := range Statuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Slug() string {
	for slug, st := range statusSlugs {
		if st == s {
			return slug
		}
	}
	return ""
}

// HistoryBucket is one of the three independent status-period sequences.
type HistoryBucket string

const (
	BucketOccupation HistoryBucket = "occupation_history"
	BucketCombat     HistoryBucket = "combat_history"
	BucketGeneral    HistoryBucket = "status_history"
)

func Buckets() []HistoryBucket {
	return []HistoryBucket{BucketOccupation, BucketCombat, BucketGeneral}
}

// Bucket is the fixed status-to-bucket mapping.
func (s Status) Bucket() HistoryBucket {
	switch s {
	case StatusTemporarilyOccupied:
		return BucketOccupation
	case StatusPossibleCombat, StatusActiveCombat, StatusActiveCombatWithResources:
		return BucketCombat
	default:
		return BucketGeneral
	}
}
