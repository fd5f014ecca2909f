package service

import (
	"errors"
	"fmt"

	"campus-feedback/internal/domain"
)

var (
	ErrUserNotFound = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError 底层持久化失败，不在本层重试
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// LedgerError 批量准入（账本侧）失败，此时没有任何用户被标记
type LedgerError struct {
	Size int
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger: admit batch of %d: %v", e.Size, e.Err)
}
func (e *LedgerError) Unwrap() error { return e.Err }
