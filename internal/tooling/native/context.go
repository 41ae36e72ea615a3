package native

import (
	"context"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// contextWithTimeout derives a bounded context from ectx, falling back
// to context.Background if none was supplied (e.g. in unit tests that
// construct a ToolExecContext by hand).
func contextWithTimeout(ectx models.ToolExecContext, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := ectx.Context
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, timeout)
}
