package federation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	eventbus "github.com/hanpama/subgraph/internal/eventbus"
	events "github.com/hanpama/subgraph/internal/events"
)

// defaultConcurrency bounds the per-batch resolver fan-out.
const defaultConcurrency = 16

// Entity is the tagged value a resolved representation becomes. The tag
// drives _Entity union resolution; the value is what field resolvers see.
type Entity struct {
	TypeName string
	Value    any
}

// Fetcher resolves _entities batches. Immutable after construction, safe for
// concurrent use.
type Fetcher struct {
	keys     map[string][]EntityKey // declaration order preserved per type
	registry *Registry
	limit    int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithConcurrency bounds how many representations resolve at once.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.limit = n
		}
	}
}

func NewFetcher(keys []EntityKey, registry *Registry, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		keys:     make(map[string][]EntityKey),
		registry: registry,
		limit:    defaultConcurrency,
	}
	for _, k := range keys {
		f.keys[k.TypeName] = append(f.keys[k.TypeName], k)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves a batch of representations. The result slice always has
// exactly one slot per representation, in input order; a slot holds either an
// *Entity or nil. Failed positions stay nil and report an EntityError; one
// position's failure never aborts the rest of the batch.
func (f *Fetcher) Fetch(ctx context.Context, representations []any) ([]*Entity, []*EntityError) {
	start := time.Now()
	eventbus.Publish(ctx, events.EntityBatchStart{Size: len(representations)})

	results := make([]*Entity, len(representations))
	slotErrs := make([]*EntityError, len(representations))

	var g errgroup.Group
	g.SetLimit(f.limit)
	for i, raw := range representations {
		i, raw := i, raw
		g.Go(func() error {
			results[i], slotErrs[i] = f.resolveOne(ctx, i, raw)
			return nil
		})
	}
	g.Wait()

	var errs []*EntityError
	resolved, failed := 0, 0
	for i := range representations {
		switch {
		case slotErrs[i] != nil:
			errs = append(errs, slotErrs[i])
			failed++
		case results[i] != nil:
			resolved++
		}
	}
	eventbus.Publish(ctx, events.EntityBatchFinish{
		Size:     len(representations),
		Resolved: resolved,
		NotFound: len(representations) - resolved - failed,
		Failed:   failed,
		Duration: time.Since(start),
	})
	return results, errs
}

// resolveOne runs the per-representation pipeline: decode the type name,
// match a declared key, look up the resolver, invoke it.
func (f *Fetcher) resolveOne(ctx context.Context, index int, raw any) (*Entity, *EntityError) {
	rep, ok := raw.(map[string]any)
	if !ok {
		return nil, &EntityError{
			Kind:    KindMalformedRepresentation,
			Index:   index,
			Message: fmt.Sprintf("representation must be an object, got %T", raw),
		}
	}
	tn, ok := rep["__typename"].(string)
	if !ok || tn == "" {
		return nil, &EntityError{
			Kind:    KindMalformedRepresentation,
			Index:   index,
			Message: "representation is missing a string __typename",
		}
	}

	keys := f.keys[tn]
	if len(keys) == 0 {
		return nil, &EntityError{
			Kind:     KindUnresolvableType,
			Index:    index,
			TypeName: tn,
			Message:  fmt.Sprintf("type %q is not an entity of this subgraph", tn),
		}
	}

	// Declaration order decides precedence when a representation satisfies
	// more than one key.
	matched := false
	for _, k := range keys {
		if k.Matches(rep) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, &EntityError{
			Kind:     KindKeyMismatch,
			Index:    index,
			TypeName: tn,
			Message:  fmt.Sprintf("representation does not satisfy any declared key (%s)", describeKeys(keys)),
		}
	}

	resolve, ok := f.registry.Lookup(tn)
	if !ok {
		return nil, &EntityError{
			Kind:     KindUnresolvableType,
			Index:    index,
			TypeName: tn,
			Message:  fmt.Sprintf("no reference resolver registered for type %q", tn),
		}
	}

	value, err := resolve(ctx, rep)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, &EntityError{
			Kind:     KindResolverFailure,
			Index:    index,
			TypeName: tn,
			Cause:    err,
		}
	}
	if value == nil {
		return nil, nil
	}
	return &Entity{TypeName: tn, Value: value}, nil
}

// EntityTypes returns the distinct entity type names declared by the keys,
// sorted.
func (f *Fetcher) EntityTypes() []string {
	out := make([]string, 0, len(f.keys))
	for name := range f.keys {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func describeKeys(keys []EntityKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q", k.FieldSet)
	}
	return strings.Join(parts, ", ")
}
