// Package nomination holds the request, outcome and failure types shared by
// the submission pipeline and its callers.
package nomination

import "errors"

var (
	// ErrExtraction is returned when the form page could not be fetched or parsed.
	ErrExtraction = errors.New("form state extraction failed")
	// ErrTransport is returned when the submission POST did not complete.
	ErrTransport = errors.New("submission transport failed")
	// ErrStorage is returned when the ledger could not record an attempt.
	ErrStorage = errors.New("submission ledger write failed")
)

// Request is the caller-supplied nomination. Every field is passed through
// to the remote form verbatim; blank optional fields stay blank.
type Request struct {
	NominatorFirst string `json:"nominator_first"`
	NominatorLast  string `json:"nominator_last"`
	NominatorPhone string `json:"nominator_phone"`
	NominatorEmail string `json:"nominator_email"`

	Category string `json:"category"`

	NomineeFirst     string `json:"nominee_first"`
	NomineeLast      string `json:"nominee_last"`
	NomineeEmail     string `json:"nominee_email"`
	NomineePhone     string `json:"nominee_phone"`
	NomineeWebsite   string `json:"nominee_website"`
	NomineeInstagram string `json:"nominee_instagram"`
	NomineeLinkedIn  string `json:"nominee_linkedin"`

	Reason string `json:"reason"`
}

// FailureKind classifies why a submission did not fully succeed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureExtraction FailureKind = "extraction"
	FailureTransport  FailureKind = "transport"
	FailureStorage    FailureKind = "storage"
)

// Outcome is the verdict handed back for every submission attempt.
//
// Sent reports whether the POST reached the remote endpoint, so a storage
// failure (Sent=true, Success=false) is distinguishable from "not sent".
type Outcome struct {
	Success  bool        `json:"success"`
	Sent     bool        `json:"sent"`
	Detail   string      `json:"message"`
	Failure  FailureKind `json:"failure,omitempty"`
	RecordID uint        `json:"record_id,omitempty"`
	Token    string      `json:"-"`
}
