package model

import "errors"

var (
	// ErrNotFound は参照先のユーザー・店舗・予約・参加者が存在しないことを表します
	ErrNotFound = errors.New("not found")
	// ErrInvariantViolation は書き込み前に検出された不変条件違反を表します
	ErrInvariantViolation = errors.New("invariant violation")
)
