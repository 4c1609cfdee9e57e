package postgres

import (
	"fmt"

	"campus-carpool/internal/ports"
)

// storeUnavailable tags a storage-layer failure with the retryable
// ports.ErrStoreUnavailable kind while keeping the driver error in the chain.
func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreUnavailable, err)
}
