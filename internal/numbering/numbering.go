// Package numbering derives invoice numbers. A number is the class prefix,
// the four digit year and a zero padded sequence of the class's width, e.g.
// 2026001 for standard billers and 20260001 for retainers. Classes are kept
// apart by shape, so the latest-number lookup of one class never sees the
// other's numbers.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
)

type Class string

const (
	ClassStandard Class = "standard"
	ClassRetainer Class = "retainer"
)

var (
	ErrUnknownClass      = errors.New("unknown billing class")
	ErrSequenceExhausted = errors.New("invoice sequence exhausted for year")
	ErrMalformedNumber   = errors.New("malformed invoice number")
)

func ParseClass(s string) (Class, error) {
	switch Class(strings.ToLower(strings.TrimSpace(s))) {
	case ClassStandard:
		return ClassStandard, nil
	case ClassRetainer:
		return ClassRetainer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

func (c Class) Valid() bool {
	return c == ClassStandard || c == ClassRetainer
}

// Policy holds everything that differs between billing classes.
type Policy struct {
	Class   Class
	Prefix  string
	Width   int
	DueDays int
}

// Policies is the lookup table keyed by billing class.
type Policies map[Class]Policy

func DefaultPolicies() Policies {
	return Policies{
		ClassStandard: {Class: ClassStandard, Width: 3, DueDays: 21},
		ClassRetainer: {Class: ClassRetainer, Width: 4, DueDays: 7},
	}
}

func (p Policies) For(c Class) (Policy, error) {
	pol, ok := p[c]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownClass, c)
	}
	return pol, nil
}

// Validate rejects tables where two classes could produce the same number.
func (p Policies) Validate() error {
	seen := make(map[string]Class, len(p))
	for c, pol := range p {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownClass, c)
		}
		if pol.Width < 1 || pol.Width > 9 {
			return fmt.Errorf("class %s: width must be between 1 and 9", c)
		}
		if pol.DueDays < 0 {
			return fmt.Errorf("class %s: due days must not be negative", c)
		}
		shape := pol.Prefix + "|" + strconv.Itoa(pol.Width)
		if other, dup := seen[shape]; dup {
			return fmt.Errorf("classes %s and %s share the number shape %q/%d", other, c, pol.Prefix, pol.Width)
		}
		seen[shape] = c
	}
	return nil
}

// LikePattern matches exactly the numbers of this policy for year: the
// escaped prefix, the year and one underscore per sequence digit.
func (p Policy) LikePattern(year int) string {
	return escapeLike(p.Prefix) + fmt.Sprintf("%04d", year) + strings.Repeat("_", p.Width)
}

func (p Policy) Format(year, seq int) string {
	return fmt.Sprintf("%s%04d%0*d", p.Prefix, year, p.Width, seq)
}

// Sequence extracts the trailing sequence from a number of this policy.
func (p Policy) Sequence(number string, year int) (int, error) {
	head := p.Prefix + fmt.Sprintf("%04d", year)
	if len(number) != len(head)+p.Width || !strings.HasPrefix(number, head) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	tail := number[len(head):]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
		}
	}
	return strconv.Atoi(tail)
}

func (p Policy) Max() int {
	max := 1
	for i := 0; i < p.Width; i++ {
		max *= 10
	}
	return max - 1
}

// DueDate is the issue date plus the class offset, in calendar days.
func (p Policy) DueDate(issue time.Time) time.Time {
	return calendar.AddDays(issue, p.DueDays)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Scope is one independent number space.
type Scope struct {
	BillerID int64
	Year     int
}

// Store returns the highest live (non-void, non-deleted) invoice number of
// the biller matching pattern, or "" when there is none.
type Store interface {
	LatestNumber(ctx context.Context, billerID int64, pattern string) (string, error)
}

type Allocator struct {
	store    Store
	policies Policies
}

func NewAllocator(store Store, policies Policies) *Allocator {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Allocator{store: store, policies: policies}
}

func (a *Allocator) Policies() Policies {
	return a.policies
}

// Next derives the next number for scope. It is a read: two callers racing
// on the same scope get the same answer, and the insert that loses must be
// retried against a unique index.
func (a *Allocator) Next(ctx context.Context, scope Scope, class Class) (string, error) {
	pol, err := a.policies.For(class)
	if err != nil {
		return "", err
	}

	latest, err := a.store.LatestNumber(ctx, scope.BillerID, pol.LikePattern(scope.Year))
	if err != nil {
		return "", fmt.Errorf("query latest invoice number: %w", err)
	}

	next := 1
	if latest != "" {
		seq, err := pol.Sequence(latest, scope.Year)
		if err != nil {
			return "", err
		}
		next = seq + 1
	}
	if next > pol.Max() {
		return "", fmt.Errorf("%w: %d/%s", ErrSequenceExhausted, scope.Year, class)
	}

	return pol.Format(scope.Year, next), nil
}

// Rules is the legacy display-name classification, used only for billers
// without a stored class.
type Rules struct {
	RetainerNames []string
}

// Classify resolves the billing class once per invocation. The stored
// attribute wins; the display-name rule is a fallback.
func Classify(stored, displayName string, rules Rules) Class {
	if c, err := ParseClass(stored); err == nil {
		return c
	}
	name := strings.ToLower(strings.TrimSpace(displayName))
	if name == "" {
		return ClassStandard
	}
	for _, n := range rules.RetainerNames {
		if strings.ToLower(strings.TrimSpace(n)) == name {
			return ClassRetainer
		}
	}
	return ClassStandard
}
