// internal/service/lock.go
package service

import "sync"

// AccountLocker serializes engine operations per account within this process.
// The database row lock is the authoritative guard; this keeps concurrent
// local callers from burning their retry budget against each other.
type AccountLocker struct {
	locks sync.Map // int64 -> *sync.Mutex
}

// NewAccountLocker creates an AccountLocker.
func NewAccountLocker() *AccountLocker {
	return &AccountLocker{}
}

// Lock acquires the account's mutex and returns the unlock function.
func (l *AccountLocker) Lock(accountID int64) func() {
	v, _ := l.locks.LoadOrStore(accountID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
