package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

// MemoryRegistry is an in-process territory.Registry. Reads return deep
// copies; iteration is in code order so "first match" is deterministic.
type MemoryRegistry struct {
	mu         sync.RWMutex
	partitions map[territory.Partition]map[string]territory.Territory
	fold       cases.Caser
}

func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{
		partitions: map[territory.Partition]map[string]territory.Territory{},
		fold:       cases.Fold(),
	}
	for _, p := range territory.Partitions() {
		r.partitions[p] = map[string]territory.Territory{}
	}
	return r
}

func (r *MemoryRegistry) sortedCodes(p territory.Partition) []string {
	items := r.partitions[p]
	codes := make([]string, 0, len(items))
	for code := range items {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r *MemoryRegistry) locate(code string) (territory.Partition, territory.Territory, bool) {
	for _, p := range territory.Partitions() {
		if t, ok := r.partitions[p][code]; ok {
			return p, t, true
		}
	}
	return "", territory.Territory{}, false
}

func (r *MemoryRegistry) GetByCode(_ context.Context, code string) (territory.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, t, ok := r.locate(code)
	if !ok {
		return territory.Territory{}, territory.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *MemoryRegistry) FindByName(_ context.Context, p territory.Partition, name string) (territory.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, code := range r.sortedCodes(p) {
		if t := r.partitions[p][code]; t.Name == name {
			return t.Clone(), nil
		}
	}
	return territory.Territory{}, territory.ErrNotFound
}

func (r *MemoryRegistry) FindByNameFold(_ context.Context, p territory.Partition, fragment string) (territory.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := r.fold.String(fragment)
	for _, code := range r.sortedCodes(p) {
		t := r.partitions[p][code]
		if strings.Contains(r.fold.String(t.Name), needle) {
			return t.Clone(), nil
		}
	}
	return territory.Territory{}, territory.ErrNotFound
}

func (r *MemoryRegistry) UpdateStatus(_ context.Context, code string, upd territory.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, t, ok := r.locate(code)
	if !ok {
		return territory.ErrNotFound
	}
	t.Apply(upd)
	r.partitions[p][code] = t.Clone()
	return nil
}

func (r *MemoryRegistry) ReplaceHistories(_ context.Context, in territory.Territory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, t, ok := r.locate(in.Code)
	if !ok {
		return territory.ErrNotFound
	}
	src := in.Clone()
	t.OccupationHistory = src.OccupationHistory
	t.CombatHistory = src.CombatHistory
	t.StatusHistory = src.StatusHistory
	r.partitions[p][in.Code] = t
	return nil
}

func (r *MemoryRegistry) ClearStatus(_ context.Context, p territory.Partition) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for code, t := range r.partitions[p] {
		if !t.HasStatus() {
			continue
		}
		r.partitions[p][code] = t.Identity()
		n++
	}
	return n, nil
}

func (r *MemoryRegistry) ListWithStatus(_ context.Context, p territory.Partition, filter territory.StatusFilter) ([]territory.Territory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []territory.Territory
	for _, code := range r.sortedCodes(p) {
		if t := r.partitions[p][code]; filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRegistry) Count(_ context.Context, p territory.Partition) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.partitions[p]), nil
}

func (r *MemoryRegistry) CountWithStatus(ctx context.Context, p territory.Partition) (int, error) {
	items, err := r.ListWithStatus(ctx, p, territory.StatusFilter{})
	return len(items), err
}

// Upsert writes identity fields; status fields of an existing record survive.
func (r *MemoryRegistry) Upsert(_ context.Context, t territory.Territory) error {
	p, ok := t.Category.Partition()
	if !ok {
		return ErrUnknownCategory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := t.Identity()
	if prevPartition, prev, found := r.locate(t.Code); found {
		prev.Name = next.Name
		prev.Category = next.Category
		prev.ParentCode = next.ParentCode
		next = prev
		delete(r.partitions[prevPartition], t.Code)
	}
	r.partitions[p][t.Code] = next
	return nil
}

func (r *MemoryRegistry) Names(_ context.Context, p territory.Partition) ([]territory.NameRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := r.sortedCodes(p)
	out := make([]territory.NameRef, 0, len(codes))
	for _, code := range codes {
		out = append(out, territory.NameRef{Code: code, Name: r.partitions[p][code].Name, Partition: p})
	}
	return out, nil
}
