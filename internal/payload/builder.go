// Package payload maps a nomination and a scraped form state onto the exact
// WPForms field set the remote AJAX endpoint accepts.
package payload

import (
	"math/rand/v2"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tejzpr/eloy-nominator/internal/form"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

// Remote field identifiers.
const (
	KeyNominatorFirst   = "wpforms[fields][1][first]"
	KeyNominatorLast    = "wpforms[fields][1][last]"
	KeyNominatorPhone   = "wpforms[fields][2]"
	KeyNominatorEmail   = "wpforms[fields][7]"
	KeyCategory         = "wpforms[fields][12]"
	KeyNomineeFirst     = "wpforms[fields][4][first]"
	KeyNomineeLast      = "wpforms[fields][4][last]"
	KeyNomineeInstagram = "wpforms[fields][11]"
	KeyNomineeLinkedIn  = "wpforms[fields][16]"
	KeyReason           = "wpforms[fields][8]"
	KeyNomineeEmail     = "wpforms[fields][17]"
	KeyNomineePhone     = "wpforms[fields][18]"
	KeyNomineeWebsite   = "wpforms[fields][19]"
	KeyConsent          = "wpforms[fields][15][]"
	KeyFormID           = "wpforms[id]"
	KeyToken            = "wpforms[token]"
	KeyPostID           = "wpforms[post_id]"
	KeySubmit           = "wpforms[submit]"
	KeyPageTitle        = "page_title"
	KeyPageURL          = "page_url"
	KeyURLReferer       = "url_referer"
	KeyPageID           = "page_id"
	KeyAction           = "action"
	KeyStart            = "start_timestamp"
	KeyEnd              = "end_timestamp"
)

// Constants from the remote form schema.
const (
	ConsentYes  = "YES"
	PageTitle   = "Nominate 2025"
	PageID      = "4042"
	SubmitValue = "wpforms-submit"
	AjaxAction  = "wpforms_submit"
)

// Bounds of the simulated fill-in interval, in seconds.
const (
	MinFillSeconds = 30
	MaxFillSeconds = 180
)

// FieldMap is the flat key/value body posted to the remote endpoint.
type FieldMap map[string]string

// Values converts the map for form encoding.
func (f FieldMap) Values() url.Values {
	v := make(url.Values, len(f))
	for k, val := range f {
		v.Set(k, val)
	}
	return v
}

// Keys returns the field keys sorted, for stable display.
func (f FieldMap) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Builder produces payloads. The zero value is not usable; use NewBuilder.
type Builder struct {
	now        func() time.Time
	fillWindow func() int
}

// NewBuilder returns a Builder on the wall clock with a uniform fill window.
func NewBuilder() *Builder {
	return &Builder{
		now: time.Now,
		fillWindow: func() int {
			return MinFillSeconds + rand.IntN(MaxFillSeconds-MinFillSeconds+1)
		},
	}
}

// Build uses a default Builder.
func Build(req nomination.Request, state *form.FormState) FieldMap {
	return NewBuilder().Build(req, state)
}

// Build maps req and state onto the remote field set. It has no side
// effects; only start_timestamp and end_timestamp vary between calls.
func (b *Builder) Build(req nomination.Request, state *form.FormState) FieldMap {
	start := b.now().Unix()
	end := start + int64(b.fillWindow())

	return FieldMap{
		KeyNominatorFirst:   req.NominatorFirst,
		KeyNominatorLast:    req.NominatorLast,
		KeyNominatorPhone:   req.NominatorPhone,
		KeyNominatorEmail:   req.NominatorEmail,
		KeyCategory:         req.Category,
		KeyNomineeFirst:     req.NomineeFirst,
		KeyNomineeLast:      req.NomineeLast,
		KeyNomineeInstagram: req.NomineeInstagram,
		KeyNomineeLinkedIn:  req.NomineeLinkedIn,
		KeyReason:           req.Reason,
		KeyNomineeEmail:     req.NomineeEmail,
		KeyNomineePhone:     req.NomineePhone,
		KeyNomineeWebsite:   req.NomineeWebsite,
		KeyConsent:          ConsentYes,
		KeyFormID:           state.FormID,
		KeyToken:            state.Token,
		KeyPageTitle:        PageTitle,
		KeyPageURL:          state.PageURL,
		KeyURLReferer:       "",
		KeyPageID:           PageID,
		KeyPostID:           PageID,
		KeySubmit:           SubmitValue,
		KeyAction:           AjaxAction,
		KeyStart:            strconv.FormatInt(start, 10),
		KeyEnd:              strconv.FormatInt(end, 10),
	}
}
