// Package delta is the binary patch capability. The packager depends only on
// the Encode/Apply round-trip contract, never on a patch format: for any old
// and new byte sequences, Apply(old, Encode(old, new)) == new.
//
// A nil old slice is the explicit "no predecessor" sentinel used for added
// files; implementations must accept it.
package delta

import (
	"context"
	"fmt"

	"github.com/orion-system/patchforge/config"
)

type Encoder interface {
	Encode(ctx context.Context, old []byte, new []byte) ([]byte, error)
	Apply(ctx context.Context, old []byte, patch []byte) ([]byte, error)
}

// Verbatim stores the new file content as the patch itself. It is the
// fallback when no delta tool is available, and what the tests run against.
type Verbatim struct{}

func (Verbatim) Encode(ctx context.Context, old []byte, new []byte) ([]byte, error) {
	out := make([]byte, len(new))
	copy(out, new)
	return out, nil
}

func (Verbatim) Apply(ctx context.Context, old []byte, patch []byte) ([]byte, error) {
	out := make([]byte, len(patch))
	copy(out, patch)
	return out, nil
}

// FromConfig builds the encoder named by the patch settings.
func FromConfig(ps config.PatchSettings) (Encoder, error) {
	switch ps.Encoder {
	case "bsdiff":
		return Bsdiff{}, nil
	case "verbatim":
		return Verbatim{}, nil
	case "exec":
		return NewExecEncoder(ps), nil
	}
	return nil, fmt.Errorf("unknown delta encoder %q", ps.Encoder)
}
