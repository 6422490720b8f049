package db

import (
	"time"

	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

// Submission is one ledger row: the nomination as sent plus the token used.
type Submission struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	NominatorFirst string `json:"nominator_first"`
	NominatorLast  string `json:"nominator_last"`
	NominatorPhone string `json:"nominator_phone"`
	NominatorEmail string `json:"nominator_email"`

	Category string `json:"category" gorm:"index"`

	NomineeFirst     string `json:"nominee_first"`
	NomineeLast      string `json:"nominee_last"`
	NomineeInstagram string `json:"nominee_instagram"`
	NomineeLinkedIn  string `json:"nominee_linkedin" gorm:"column:nominee_linkedin"`
	Reason           string `json:"reason" gorm:"type:text"`
	NomineeEmail     string `json:"nominee_email"`
	NomineePhone     string `json:"nominee_phone"`
	NomineeWebsite   string `json:"nominee_website"`

	Token       string    `json:"token" gorm:"not null"`
	SubmittedAt time.Time `json:"timestamp" gorm:"column:submitted_at;index;not null"`
}

// NewSubmission snapshots req with the token that was sent. at is stored in
// UTC so rows sort by time regardless of the host zone.
func NewSubmission(req nomination.Request, token string, at time.Time) Submission {
	return Submission{
		NominatorFirst:   req.NominatorFirst,
		NominatorLast:    req.NominatorLast,
		NominatorPhone:   req.NominatorPhone,
		NominatorEmail:   req.NominatorEmail,
		Category:         req.Category,
		NomineeFirst:     req.NomineeFirst,
		NomineeLast:      req.NomineeLast,
		NomineeInstagram: req.NomineeInstagram,
		NomineeLinkedIn:  req.NomineeLinkedIn,
		Reason:           req.Reason,
		NomineeEmail:     req.NomineeEmail,
		NomineePhone:     req.NomineePhone,
		NomineeWebsite:   req.NomineeWebsite,
		Token:            token,
		SubmittedAt:      at.UTC(),
	}
}
