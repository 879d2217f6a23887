package pdf

import (
	"context"
	"io"
)

// Renderer produces the printable RCTI document.
type Renderer interface {
	RenderRcti(ctx context.Context, doc RctiDocument) (io.Reader, error)
}
