package ripple

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// ErrNotAttached is returned by Reset when the collection was never given a
// redefinition callback through Attach, or when the callback has already
// been carried forward to a replacement instance.
var ErrNotAttached = errors.New("ripple: collection not attached")

// newContainerID assigns the stable identity a collection keeps across
// Reset replacements. Observability events carry it so a replaced instance
// remains traceable as the same logical container.
func newContainerID() string {
	return uuid.NewString()
}

// emitReset publishes the replacement of a collection instance.
func emitReset(ctx context.Context, kind, id string) {
	capitan.Emit(ctx, CollectionReset,
		KeyKind.Field(kind),
		KeyContainer.Field(id),
	)
}
