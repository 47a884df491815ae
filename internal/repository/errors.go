package repository

import "errors"

var (
	ErrNotFound         = errors.New("entity not found")
	ErrCorruptData      = errors.New("stored data is corrupt")
	ErrSaveFailed       = errors.New("save failed")
	ErrDeleteFailed     = errors.New("delete failed")
	ErrConnectionFailed = errors.New("store connection failed")
)
