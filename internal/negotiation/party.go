package negotiation

import (
	"fmt"
	"strings"
)

// Party identifies who authored a change to an article.
type Party int

const (
	Union Party = iota
	University
	TentativeAgreement
)

// Parties lists every party in display order.
var Parties = []Party{Union, University, TentativeAgreement}

func (p Party) String() string {
	switch p {
	case Union:
		return "Union"
	case University:
		return "University"
	case TentativeAgreement:
		return "Tentative Agreement"
	default:
		return fmt.Sprintf("Party(%d)", int(p))
	}
}

// Valid reports whether p is one of the known parties.
func (p Party) Valid() bool {
	switch p {
	case Union, University, TentativeAgreement:
		return true
	default:
		return false
	}
}

// ParseParty maps a log value to a Party. Matching ignores case and
// surrounding whitespace; "TA" and "Tentative" are accepted as shorthands.
func ParseParty(s string) (Party, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "union":
		return Union, nil
	case "university":
		return University, nil
	case "tentative agreement", "tentative", "ta":
		return TentativeAgreement, nil
	default:
		return 0, fmt.Errorf("unknown party %q", s)
	}
}

// MarshalText encodes the display name, so JSON output reads "Union" rather than 0.
func (p Party) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid party %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (p *Party) UnmarshalText(b []byte) error {
	parsed, err := ParseParty(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
