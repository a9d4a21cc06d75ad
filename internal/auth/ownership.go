package auth

import (
	"context"
	"fmt"

	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// Chain is a resolved ownership path. BuildingID is empty for tenants.
type Chain struct {
	TenantID   string
	BuildingID string
}

// ChainWalker resolves the chain for one resource kind. A missing row at any
// hop is ErrNotFound.
type ChainWalker func(ctx context.Context, id string) (Chain, error)

// ChainStore provides the upward lookups the default walkers use. found is
// false when the row does not exist.
type ChainStore interface {
	ClientExists(ctx context.Context, clientID string) (bool, error)
	BuildingTenant(ctx context.Context, buildingID string) (tenantID string, found bool, err error)
	ParentBuilding(ctx context.Context, kind resource.Kind, id string) (buildingID string, found bool, err error)
}

// OwnershipResolver checks resources against a caller's tenant scope.
type OwnershipResolver struct {
	walkers map[resource.Kind]ChainWalker
}

// NewOwnershipResolver registers a walker for every resource kind, backed by
// store.
func NewOwnershipResolver(store ChainStore) *OwnershipResolver {
	o := &OwnershipResolver{walkers: make(map[resource.Kind]ChainWalker)}

	o.Register(resource.KindClient, func(ctx context.Context, id string) (Chain, error) {
		ok, err := store.ClientExists(ctx, id)
		if err != nil {
			return Chain{}, fmt.Errorf("looking up client: %w", err)
		}
		if !ok {
			return Chain{}, ErrNotFound
		}
		return Chain{TenantID: id}, nil
	})

	o.Register(resource.KindBuilding, func(ctx context.Context, id string) (Chain, error) {
		return buildingChain(ctx, store, id)
	})

	for _, kind := range []resource.Kind{
		resource.KindBasin,
		resource.KindWarranty,
		resource.KindIntervention,
		resource.KindInterventionFile,
		resource.KindReport,
	} {
		o.Register(kind, func(ctx context.Context, id string) (Chain, error) {
			buildingID, found, err := store.ParentBuilding(ctx, kind, id)
			if err != nil {
				return Chain{}, fmt.Errorf("looking up %s parent: %w", kind, err)
			}
			if !found {
				return Chain{}, ErrNotFound
			}
			return buildingChain(ctx, store, buildingID)
		})
	}

	return o
}

func buildingChain(ctx context.Context, store ChainStore, buildingID string) (Chain, error) {
	tenantID, found, err := store.BuildingTenant(ctx, buildingID)
	if err != nil {
		return Chain{}, fmt.Errorf("looking up building tenant: %w", err)
	}
	if !found {
		return Chain{}, ErrNotFound
	}
	return Chain{TenantID: tenantID, BuildingID: buildingID}, nil
}

// Register sets the walker for kind, replacing any existing one.
func (o *OwnershipResolver) Register(kind resource.Kind, walker ChainWalker) {
	o.walkers[kind] = walker
}

// Resolve walks the ownership chain of the resource.
func (o *OwnershipResolver) Resolve(ctx context.Context, kind resource.Kind, id string) (Chain, error) {
	walk, ok := o.walkers[kind]
	if !ok {
		return Chain{}, fmt.Errorf("no ownership walker for resource kind %q", kind)
	}
	return walk(ctx, id)
}

// Authorize returns nil when the resource's chain resolves inside scope.
// An unresolvable chain is ErrNotFound even for admins; a resolved chain
// outside scope is always ErrNotOwner.
func (o *OwnershipResolver) Authorize(ctx context.Context, scope *TenantScope, kind resource.Kind, id string) error {
	_, err := o.AuthorizeChain(ctx, scope, kind, id)
	return err
}

// AuthorizeChain is Authorize that also returns the resolved chain, for
// callers that need the owning tenant after the check.
func (o *OwnershipResolver) AuthorizeChain(ctx context.Context, scope *TenantScope, kind resource.Kind, id string) (Chain, error) {
	chain, err := o.Resolve(ctx, kind, id)
	if err != nil {
		return Chain{}, err
	}

	if scope.HasTenant(chain.TenantID) || scope.HasBuilding(chain.BuildingID) {
		return chain, nil
	}
	return Chain{}, fmt.Errorf("%w: %s %s", ErrNotOwner, kind, id)
}
