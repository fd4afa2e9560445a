package ledger

import "errors"

// ErrNoKey is returned by Reserve when no active key has remaining credit.
var ErrNoKey = errors.New("ledger: no active key with remaining credit")
