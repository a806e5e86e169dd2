package sampler

import "errors"

// ErrEmptyPool is returned by Next when the pool has no cards.
var ErrEmptyPool = errors.New("empty pool")
