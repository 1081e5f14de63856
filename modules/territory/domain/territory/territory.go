package territory

import (
	"time"
)

// Category is the kodifikator object category letter.
type Category string

const (
	CategoryRegion             Category = "O"
	CategoryAutonomousRepublic Category = "K"
	CategoryDistrict           Category = "P"
	CategoryCommunity          Category = "H"
	CategoryCity               Category = "M"
	CategoryUrbanSettlement    Category = "X"
	CategoryVillage            Category = "C"
	CategoryCityDistrict       Category = "B"
)

// Partition names one registry partition (one per administrative level).
type Partition string

const (
	PartitionRegions       Partition = "level1_regions"
	PartitionDistricts     Partition = "level2_raions"
	PartitionCommunities   Partition = "level3_hromadas"
	PartitionSettlements   Partition = "level4_settlements"
	PartitionCityDistricts Partition = "level_additional_city_districts"
)

// Partitions returns partitions in resolution priority order.
func Partitions() []Partition {
	return []Partition{
		PartitionRegions,
		PartitionDistricts,
		PartitionCommunities,
		PartitionSettlements,
		PartitionCityDistricts,
	}
}

var categoryPartitions = map[Category]Partition{
	CategoryRegion:             PartitionRegions,
	CategoryAutonomousRepublic: PartitionRegions,
	CategoryDistrict:           PartitionDistricts,
	CategoryCommunity:          PartitionCommunities,
	CategoryCity:               PartitionSettlements,
	CategoryUrbanSettlement:    PartitionSettlements,
	CategoryVillage:            PartitionSettlements,
	CategoryCityDistrict:       PartitionCityDistricts,
}

func (c Category) Partition() (Partition, bool) {
	p, ok := categoryPartitions[c]
	return p, ok
}

func (p Partition) Valid() bool {
	for _, known := range Partitions() {
		if p == known {
			return true
		}
	}
	return false
}

// Territory is one administrative unit of the registry. Identity fields are
// written by the registry load only; status fields are owned by the merger.
type Territory struct {
	Code       string   `json:"code" bson:"_id"`
	Name       string   `json:"name" bson:"name"`
	Category   Category `json:"category" bson:"category"`
	ParentCode string   `json:"parent_code,omitempty" bson:"parent_code,omitempty"`

	OccupationHistory []StatusPeriod `json:"occupation_history,omitempty" bson:"occupation_history,omitempty"`
	CombatHistory     []StatusPeriod `json:"combat_history,omitempty" bson:"combat_history,omitempty"`
	StatusHistory     []StatusPeriod `json:"status_history,omitempty" bson:"status_history,omitempty"`

	CurrentStatus    Status     `json:"current_status,omitempty" bson:"current_status,omitempty"`
	StatusStartDate  *time.Time `json:"status_start_date,omitempty" bson:"status_start_date,omitempty"`
	StatusEndDate    *time.Time `json:"status_end_date,omitempty" bson:"status_end_date,omitempty"`
	LastStatusUpdate *time.Time `json:"last_status_update,omitempty" bson:"last_status_update,omitempty"`
	LastImportID     string     `json:"last_import_id,omitempty" bson:"last_import_id,omitempty"`
}

// Partition derives the registry partition from the category.
func (t Territory) Partition() Partition {
	p, _ := t.Category.Partition()
	return p
}

func (t Territory) History(b HistoryBucket) []StatusPeriod {
	switch b {
	case BucketOccupation:
		return t.OccupationHistory
	case BucketCombat:
		return t.CombatHistory
	default:
		return t.StatusHistory
	}
}

func (t *Territory) setHistory(b HistoryBucket, periods []StatusPeriod) {
	switch b {
	case BucketOccupation:
		t.OccupationHistory = periods
	case BucketCombat:
		t.CombatHistory = periods
	default:
		t.StatusHistory = periods
	}
}

// HasStatus reports whether any status-related field is present.
func (t Territory) HasStatus() bool {
	return t.OccupationHistory != nil || t.CombatHistory != nil || t.StatusHistory != nil ||
		t.CurrentStatus != "" || t.StatusStartDate != nil || t.StatusEndDate != nil ||
		t.LastStatusUpdate != nil || t.LastImportID != ""
}

// PeriodCount is the number of periods across all buckets.
func (t Territory) PeriodCount() int {
	return len(t.OccupationHistory) + len(t.CombatHistory) + len(t.StatusHistory)
}

// Identity returns a copy stripped of every status field.
func (t Territory) Identity() Territory {
	return Territory{
		Code:       t.Code,
		Name:       t.Name,
		Category:   t.Category,
		ParentCode: t.ParentCode,
	}
}

// Apply writes an update onto the territory in memory. Stores without a
// native partial update use it to implement Registry.UpdateStatus.
func (t *Territory) Apply(upd StatusUpdate) {
	t.setHistory(upd.Bucket, upd.History)
	t.CurrentStatus = upd.CurrentStatus
	t.StatusStartDate = cloneTime(upd.StatusStartDate)
	t.StatusEndDate = cloneTime(upd.StatusEndDate)
	at := upd.LastStatusUpdate
	t.LastStatusUpdate = &at
	t.LastImportID = upd.LastImportID
}

// Clone deep-copies the slices and pointers so callers can mutate freely.
func (t Territory) Clone() Territory {
	out := t
	out.OccupationHistory = clonePeriods(t.OccupationHistory)
	out.CombatHistory = clonePeriods(t.CombatHistory)
	out.StatusHistory = clonePeriods(t.StatusHistory)
	out.StatusStartDate = cloneTime(t.StatusStartDate)
	out.StatusEndDate = cloneTime(t.StatusEndDate)
	out.LastStatusUpdate = cloneTime(t.LastStatusUpdate)
	return out
}

func clonePeriods(in []StatusPeriod) []StatusPeriod {
	if in == nil {
		return nil
	}
	out := make([]StatusPeriod, len(in))
	for i, p := range in {
		out[i] = p
		out[i].EndDate = cloneTime(p.EndDate)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
