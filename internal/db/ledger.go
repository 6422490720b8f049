package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

// Ledger is the append-only record of submission attempts.
type Ledger struct {
	db *gorm.DB
}

// NewLedger wraps an opened and migrated database.
func NewLedger(d *gorm.DB) *Ledger {
	return &Ledger{db: d}
}

// Append inserts rec and returns its assigned ID. The row is committed
// before Append returns.
func (l *Ledger) Append(ctx context.Context, rec Submission) (uint, error) {
	rec.ID = 0
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("%w: %w", nomination.ErrStorage, err)
	}
	return rec.ID, nil
}

// ListAll returns every row, most recent first.
func (l *Ledger) ListAll(ctx context.Context) ([]Submission, error) {
	var subs []Submission
	if err := l.db.WithContext(ctx).Order("submitted_at DESC").Order("id DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("%w: list submissions: %w", nomination.ErrStorage, err)
	}
	return subs, nil
}

// Count returns the number of rows.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&Submission{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count submissions: %w", nomination.ErrStorage, err)
	}
	return n, nil
}
