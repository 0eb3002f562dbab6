// internal/sink/sink.go
package sink

import (
	"context"

	"formsync/internal/common/config"
	"formsync/internal/tabular"
)

// Result describes a completed delivery. ArtifactPath is set by file
// exports only.
type Result struct {
	ArtifactPath string
	Rows         int
}

// Sink delivers a table of new rows for one source. Implementations
// must be safe for concurrent use: cycles for distinct sources run in
// parallel and may share a sink.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, src config.SourceConfig, table tabular.Table) (Result, error)
}
