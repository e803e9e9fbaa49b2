package delta

import (
	"context"

	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
)

// Bsdiff is the in-process production encoder. It keeps both byte sequences
// in memory, which is acceptable here because the packager already reads
// whole files to hand them to the capability interface.
type Bsdiff struct{}

func (Bsdiff) Encode(ctx context.Context, old []byte, new []byte) ([]byte, error) {
	if old == nil {
		old = []byte{}
	}
	return bsdiff.Bytes(old, new)
}

func (Bsdiff) Apply(ctx context.Context, old []byte, patch []byte) ([]byte, error) {
	if old == nil {
		old = []byte{}
	}
	return bspatch.Bytes(old, patch)
}
