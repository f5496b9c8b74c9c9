// Package reportstore defines the per-user credit report store.
//
// A store keeps exactly one report per user. UpsertLatest replaces the whole
// document atomically; there is no partial-update API.
package reportstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dvloznov/credit-report/internal/domain"
)

var (
	// ErrNotFound is returned by GetLatest when the user has no report.
	ErrNotFound = errors.New("report not found")
	// ErrEmptyUserID is returned when an operation is called without a user id.
	ErrEmptyUserID = errors.New("user id is required")
	// ErrNilReport is returned when UpsertLatest is called without a report.
	ErrNilReport = errors.New("report is nil")
)

// Store is implemented by every report backend.
type Store interface {
	// UpsertLatest stores report as the user's only report and returns the
	// stored copy with timestamps filled. CreatedAt survives replacement.
	UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error)
	// GetLatest returns the user's report or ErrNotFound.
	GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error)
}

// ValidateUserID checks the only constraint placed on user identities.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return nil
}
