package form

import (
	"math/rand/v2"
)

// Named fallbacks used when the live page omits a value.
const (
	// DefaultFormID is the WPForms id of the nomination form.
	DefaultFormID = "4045"
	// TokenLength is the length of a locally generated substitute token.
	TokenLength = 32
)

const (
	tokenAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	fbclidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	fbclidPrefix   = "PAb21jcAMytnBleHRuA2FlbQIxMQABp9NuyaLOWCC_p3W-ICC0wjBUq764njoUqqLlV90CDdro2IiD0H8kuhgGtYnL_aem_"
	fbclidSuffix   = 22
)

// Category is one option of the category selector.
type Category struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormState is a single scrape of the form page. It is fetched fresh for
// every submission and never reused.
type FormState struct {
	FormID     string
	Token      string
	TokenTime  int64
	PageURL    string
	Categories []Category
}

// CategoryValues returns the submission value of every category, in page order.
func (s *FormState) CategoryValues() []string {
	values := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		values = append(values, c.Value)
	}
	return values
}

// GenerateToken returns a random lowercase alphanumeric token of TokenLength.
func GenerateToken() string {
	return randomString(tokenAlphabet, TokenLength)
}

func trackingID() string {
	return fbclidPrefix + randomString(fbclidAlphabet, fbclidSuffix)
}

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
