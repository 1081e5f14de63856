package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

var ErrTerritoryNotFound = errors.New("territory not resolved")

type ResolveMethod string

const (
	ResolvedByCode     ResolveMethod = "code"
	ResolvedByName     ResolveMethod = "name"
	ResolvedByNameFold ResolveMethod = "name_fold"
)

type Resolution struct {
	Territory territory.Territory
	Partition territory.Partition
	Method    ResolveMethod
}

type ResolverOptions struct {
	// CodeOnly disables the name-based fallbacks.
	CodeOnly bool
}

// Resolver maps a (code, name) pair to one registry territory.
//
// Name matching is best-effort: names repeat across regions and the first
// partition hit wins. Only the code lookup is unambiguous.
type Resolver struct {
	registry territory.Registry
	opts     ResolverOptions

	namesOnce sync.Once
	names     []territory.NameRef
	namesErr  error
}

func NewResolver(registry territory.Registry, opts ResolverOptions) *Resolver {
	return &Resolver{registry: registry, opts: opts}
}

// Resolve tries exact code, exact name across partitions, then
// case-insensitive substring across partitions, stopping at the first hit.
func (r *Resolver) Resolve(ctx context.Context, code, name string) (Resolution, error) {
	code = strings.TrimSpace(code)
	if code != "" {
		t, err := r.registry.GetByCode(ctx, code)
		switch {
		case err == nil:
			return Resolution{Territory: t, Partition: t.Partition(), Method: ResolvedByCode}, nil
		case !errors.Is(err, territory.ErrNotFound):
			return Resolution{}, errors.Wrapf(err, "lookup code %s", code)
		}
	}

	name = NormalizeName(name)
	if r.opts.CodeOnly || name == "" {
		return Resolution{}, ErrTerritoryNotFound
	}

	for _, p := range territory.Partitions() {
		t, err := r.registry.FindByName(ctx, p, name)
		if err == nil {
			return Resolution{Territory: t, Partition: p, Method: ResolvedByName}, nil
		}
		if !errors.Is(err, territory.ErrNotFound) {
			return Resolution{}, errors.Wrapf(err, "lookup name in %s", p)
		}
	}
	for _, p := range territory.Partitions() {
		t, err := r.registry.FindByNameFold(ctx, p, name)
		if err == nil {
			return Resolution{Territory: t, Partition: p, Method: ResolvedByNameFold}, nil
		}
		if !errors.Is(err, territory.ErrNotFound) {
			return Resolution{}, errors.Wrapf(err, "lookup name fragment in %s", p)
		}
	}
	return Resolution{}, ErrTerritoryNotFound
}

// Suggest returns up to limit registry names closest to name, for the
// unresolved-rows report. The name index is loaded once per resolver.
func (r *Resolver) Suggest(ctx context.Context, name string, limit int) ([]string, error) {
	name = NormalizeName(name)
	if name == "" || limit <= 0 {
		return nil, nil
	}
	r.namesOnce.Do(func() {
		for _, p := range territory.Partitions() {
			refs, err := r.registry.Names(ctx, p)
			if err != nil {
				r.namesErr = errors.Wrapf(err, "load names of %s", p)
				return
			}
			r.names = append(r.names, refs...)
		}
	})
	if r.namesErr != nil {
		return nil, r.namesErr
	}

	words := make([]string, len(r.names))
	for i, ref := range r.names {
		words[i] = ref.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(name, words)
	sort.Sort(ranks)

	out := make([]string, 0, limit)
	for _, rank := range ranks {
		if len(out) == limit {
			break
		}
		ref := r.names[rank.OriginalIndex]
		out = append(out, ref.Name+" ("+ref.Code+")")
	}
	return out, nil
}
