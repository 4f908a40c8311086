package update

import "github.com/gofrs/flock"

const lockSuffix = ".update.lock"

// ProcessLock serialises updates between processes that share an
// executable. *flock.Flock satisfies it.
type ProcessLock interface {
	TryLock() (bool, error)
	Unlock() error
}

// NewFileLock returns an advisory lock next to the executable being replaced.
func NewFileLock(executable string) ProcessLock {
	return flock.New(executable + lockSuffix)
}
