package services

import (
	"context"

	"github.com/yungbote/campus-backend/internal/data/txscope"
	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/domain/validation"
	"github.com/yungbote/campus-backend/internal/platform/dbctx"
)

// validate runs entity's rules and reports any failure as ValidationFailed.
func validate(op string, entity validation.Entity) error {
	if res := validation.Check(entity); !res.OK() {
		return domainerr.ValidationFailed(op, res)
	}
	return nil
}

// commit is the only way a service writes an entity: validate, then save
// through the open scope. A failing rule returns before the engine is touched.
func commit[T validation.Entity](ctx context.Context, op string, entity T, save func(dbctx.Context, T) error) error {
	if err := validate(op, entity); err != nil {
		return err
	}
	scope, err := activeScope(ctx, op)
	if err != nil {
		return err
	}
	if err := save(scope.DBC(ctx), entity); err != nil {
		return txscope.MapError(op, err)
	}
	return nil
}

// remove deletes by key through the open scope.
func remove[K any](ctx context.Context, op string, key K, del func(dbctx.Context, K) error) error {
	scope, err := activeScope(ctx, op)
	if err != nil {
		return err
	}
	if err := del(scope.DBC(ctx), key); err != nil {
		return txscope.MapError(op, err)
	}
	return nil
}

func activeScope(ctx context.Context, op string) (*txscope.Scope, error) {
	scope := txscope.Active(ctx)
	if scope == nil {
		return nil, domainerr.New(domainerr.CodeInternal, op, "write outside of a transaction scope", nil)
	}
	return scope, nil
}
