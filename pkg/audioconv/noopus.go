//go:build !opus

package audioconv

import (
	"fmt"
	"io"
)

func decodeOpus(io.ReadSeeker, Options) ([]float32, error) {
	return nil, fmt.Errorf("%w: opus (build with -tags opus)", ErrUnsupported)
}
