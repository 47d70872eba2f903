package flows

import (
	"context"

	"github.com/MrEthical07/authgate/rotation"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Rotation rotation.Store
}

// RunLogout revokes the subject's lineage. Invalidating an already invalidated or
// absent lineage is not an error.
func RunLogout(ctx context.Context, subjectID string, deps LogoutDeps) error {
	return deps.Rotation.InvalidateAll(ctx, subjectID)
}
