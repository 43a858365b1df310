// Package reference encodes and decodes the purchase reference carried in the
// gateway's buy_order field. The reference is the only link between a gateway
// transaction and the local purchase intent, so decoding is strict.
package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"webpay-checkout/internal/domain"
)

// MaxLength is the gateway's limit for buy_order.
const MaxLength = 26

type Kind byte

const (
	KindPlan Kind = 'P'
	KindCart Kind = 'C'
)

func (k Kind) String() string {
	switch k {
	case KindPlan:
		return "plan"
	case KindCart:
		return "cart"
	default:
		return "unknown"
	}
}

// PurchaseReference is either a PlanPurchase or a CartPurchase.
type PurchaseReference interface {
	Kind() Kind
	Owner() int64
	String() string
	sealed()
}

// PlanPurchase encodes as P<plan>U<user>T<nonce>.
type PlanPurchase struct {
	PlanID int64
	UserID int64
	Nonce  int64
}

func (PlanPurchase) Kind() Kind       { return KindPlan }
func (p PlanPurchase) Owner() int64   { return p.UserID }
func (PlanPurchase) sealed()          {}
func (p PlanPurchase) String() string { return fmt.Sprintf("P%dU%dT%d", p.PlanID, p.UserID, p.Nonce) }

// CartPurchase encodes as C<user>T<nonce>.
type CartPurchase struct {
	UserID int64
	Nonce  int64
}

func (CartPurchase) Kind() Kind       { return KindCart }
func (c CartPurchase) Owner() int64   { return c.UserID }
func (CartPurchase) sealed()          {}
func (c CartPurchase) String() string { return fmt.Sprintf("C%dT%d", c.UserID, c.Nonce) }

// DecodeError is returned for any string that is not a canonical reference.
type DecodeError struct {
	Input  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode purchase reference %q: %s", e.Input, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == domain.ErrDecode }

// Numeric fields are positive and carry no leading zeros, so every accepted
// string has exactly one encoding.
var (
	planPattern = regexp.MustCompile(`^P([1-9][0-9]*)U([1-9][0-9]*)T([1-9][0-9]*)$`)
	cartPattern = regexp.MustCompile(`^C([1-9][0-9]*)T([1-9][0-9]*)$`)
)

// Decode parses s into a PlanPurchase or CartPurchase.
func Decode(s string) (PurchaseReference, error) {
	if s == "" {
		return nil, &DecodeError{Input: s, Reason: "empty"}
	}
	if len(s) > MaxLength {
		return nil, &DecodeError{Input: s, Reason: fmt.Sprintf("longer than %d characters", MaxLength)}
	}
	switch Kind(s[0]) {
	case KindPlan:
		m := planPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, &DecodeError{Input: s, Reason: "does not match P<plan>U<user>T<nonce>"}
		}
		nums, err := parseFields(s, m[1:])
		if err != nil {
			return nil, err
		}
		return PlanPurchase{PlanID: nums[0], UserID: nums[1], Nonce: nums[2]}, nil
	case KindCart:
		m := cartPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, &DecodeError{Input: s, Reason: "does not match C<user>T<nonce>"}
		}
		nums, err := parseFields(s, m[1:])
		if err != nil {
			return nil, err
		}
		return CartPurchase{UserID: nums[0], Nonce: nums[1]}, nil
	default:
		return nil, &DecodeError{Input: s, Reason: fmt.Sprintf("unknown discriminator %q", s[0])}
	}
}

func parseFields(s string, fields []string) ([]int64, error) {
	out := make([]int64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, &DecodeError{Input: s, Reason: "numeric field out of range"}
		}
		out[i] = n
	}
	return out, nil
}

// Codec mints references with a per-process monotonic nonce derived from the
// wall clock in milliseconds.
type Codec struct {
	now func() time.Time

	mu   sync.Mutex
	last int64
}

func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecWithClock is used by tests to pin the nonce source.
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

func (c *Codec) nextNonce() int64 {
	n := c.now().UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return n
}

// EncodePlan returns a fresh P<plan>U<user>T<nonce> reference.
func (c *Codec) EncodePlan(planID, userID int64) (string, error) {
	if planID <= 0 || userID <= 0 {
		return "", fmt.Errorf("encode plan reference: %w", domain.ErrInvalidArgument)
	}
	return checkLength(PlanPurchase{PlanID: planID, UserID: userID, Nonce: c.nextNonce()}.String())
}

// EncodeCart returns a fresh C<user>T<nonce> reference.
func (c *Codec) EncodeCart(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("encode cart reference: %w", domain.ErrInvalidArgument)
	}
	return checkLength(CartPurchase{UserID: userID, Nonce: c.nextNonce()}.String())
}

func checkLength(s string) (string, error) {
	if len(s) > MaxLength {
		return "", fmt.Errorf("reference %q exceeds %d characters: %w", s, MaxLength, domain.ErrInvalidArgument)
	}
	return s, nil
}
