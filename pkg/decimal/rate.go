// Package decimal implements the 18-decimal fixed-point arithmetic used
// to represent oracle exchange rates.
package decimal

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Places is the number of fractional digits every on-wire rate string
// carries, sign included when negative.
const Places = 18

// AbstainString is the sentinel wire value meaning "no vote for this denom".
const AbstainString = "-1.000000000000000000"

// ParseError reports a malformed rate string.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decimal: cannot parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Rate is an 18-decimal signed fixed-point number, or the Abstain sentinel.
type Rate struct {
	dec     sdk.Dec
	abstain bool
}

// Abstain is the sentinel rate meaning "no price was committed".
var Abstain = Rate{abstain: true}

// Zero is the additive identity.
var Zero = Rate{dec: sdk.ZeroDec()}

// NewFromInt builds a Rate from an integer, e.g. NewFromInt(250) == 250.0.
func NewFromInt(i int64) Rate {
	return Rate{dec: sdk.NewDec(i)}
}

// Parse decodes an 18dp rate string, including the Abstain sentinel.
func Parse(s string) (Rate, error) {
	if s == AbstainString {
		return Abstain, nil
	}
	d, err := sdk.NewDecFromStr(s)
	if err != nil {
		return Rate{}, &ParseError{Input: s, Err: err}
	}
	return Rate{dec: d}, nil
}

// IsAbstain reports whether r is the abstain sentinel.
func (r Rate) IsAbstain() bool { return r.abstain }

// Add returns r + other. Panics if either operand is the abstain sentinel.
func (r Rate) Add(other Rate) Rate {
	r.mustConcrete()
	other.mustConcrete()
	return Rate{dec: r.dec.Add(other.dec)}
}

// MulInt returns r * n.
func (r Rate) MulInt(n int64) Rate {
	r.mustConcrete()
	return Rate{dec: r.dec.MulInt64(n)}
}

// QuoInt returns r / n rounded to 18 places with half-up rounding
// (ties away from zero).
func (r Rate) QuoInt(n int64) Rate {
	r.mustConcrete()
	if n == 0 {
		panic("decimal: division by zero")
	}
	// QuoInt64 truncates toward zero; round the discarded remainder half-up.
	q := r.dec.QuoInt64(n)
	rem := r.dec.Sub(q.MulInt64(n)).Abs()
	absN := n
	if absN < 0 {
		absN = -absN
	}
	if rem.MulInt64(2).GTE(sdk.NewDecWithPrec(absN, Places)) {
		if r.dec.IsNegative() != (n < 0) {
			q = q.Sub(sdk.SmallestDec())
		} else {
			q = q.Add(sdk.SmallestDec())
		}
	}
	return Rate{dec: q}
}

// Quantize returns r at exactly 18 fractional places. sdk.Dec always
// holds exactly 18 fractional digits, so the string round-trip leaves the
// value unchanged; the half-up rounding to 18 places happens in QuoInt,
// the only operation here that can produce more digits.
func (r Rate) Quantize() Rate {
	r.mustConcrete()
	s := r.dec.String()
	d, err := sdk.NewDecFromStr(s)
	if err != nil {
		// r.dec.String() is always a valid decimal string; this cannot fail.
		panic(err)
	}
	return Rate{dec: d}
}

// String18 renders r with exactly 18 fractional digits, leading sign if
// negative, matching the on-wire rate format.
func (r Rate) String18() string {
	if r.abstain {
		return AbstainString
	}
	return r.dec.String()
}

// Dec exposes the underlying sdk.Dec for callers that need Cosmos SDK
// decimal interop (e.g. message construction).
func (r Rate) Dec() sdk.Dec {
	r.mustConcrete()
	return r.dec
}

func (r Rate) mustConcrete() {
	if r.abstain {
		panic("decimal: operation not defined on the abstain sentinel")
	}
}
