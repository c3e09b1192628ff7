// Package crn generates human-facing Complaint Reference Numbers.
package crn

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

// New returns a reference number of the form PREFIX-TIMESTAMP-RANDOM, where
// the prefix encodes the complaint area, TIMESTAMP is the 5-char base36 tail
// of the current unix-millis clock and RANDOM is a 4-char base36 token.
// Uniqueness is probabilistic; there is no collision retry.
func New(area domain.Area) string {
	return Prefix(area) + "-" + timestampTail(time.Now()) + "-" + randomToken()
}

// Prefix maps a complaint area to its reference-number prefix.
func Prefix(area domain.Area) string {
	switch strings.ToUpper(string(area)) {
	case "SUGGESTIONS", "SUGGESTION":
		return "SUG"
	case "RAIL_ANUBHAV", "EXPERIENCE":
		return "EXP"
	case "ENQUIRY":
		return "ENQ"
	default:
		return "CMP"
	}
}

func timestampTail(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 5 {
		ts = ts[len(ts)-5:]
	}
	for len(ts) < 5 {
		ts = "0" + ts
	}
	return strings.ToUpper(ts)
}

func randomToken() string {
	const size = 4
	tok := strconv.FormatUint(rand.Uint64(), 36)
	for len(tok) < size {
		tok = "0" + tok
	}
	return strings.ToUpper(tok[:size])
}
