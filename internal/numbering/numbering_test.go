package numbering_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
)

func TestNumbering(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Numbering Suite")
}

// memoryStore keeps numbers per biller and answers LIKE patterns made of
// literal characters, escaped characters and single-character wildcards.
type memoryStore struct {
	mu      sync.Mutex
	numbers map[int64][]string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{numbers: make(map[int64][]string)}
}

func (m *memoryStore) add(billerID int64, number string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.numbers[billerID] = append(m.numbers[billerID], number)
}

func (m *memoryStore) LatestNumber(_ context.Context, billerID int64, pattern string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []string
	for _, n := range m.numbers[billerID] {
		if like(n, pattern) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func like(s, pattern string) bool {
	i := 0
	for p := 0; p < len(pattern); p++ {
		if i >= len(s) {
			return false
		}
		switch c := pattern[p]; c {
		case '_':
		case '\\':
			p++
			if s[i] != pattern[p] {
				return false
			}
		default:
			if s[i] != c {
				return false
			}
		}
		i++
	}
	return i == len(s)
}

var _ = Describe("Allocator", func() {
	var (
		ctx       context.Context
		store     *memoryStore
		allocator *numbering.Allocator
		scope     numbering.Scope
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMemoryStore()
		allocator = numbering.NewAllocator(store, nil)
		scope = numbering.Scope{BillerID: 7, Year: 2026}
	})

	It("starts a fresh standard sequence at 2026001", func() {
		n, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("2026001"))
	})

	It("increments after a persisted number", func() {
		store.add(7, "2026001")

		n, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("2026002"))
	})

	It("produces strictly increasing numbers for serialized generations", func() {
		var got []string
		for i := 0; i < 12; i++ {
			n, err := allocator.Next(ctx, scope, numbering.ClassStandard)
			Expect(err).NotTo(HaveOccurred())
			store.add(7, n)
			got = append(got, n)
		}
		Expect(got[0]).To(Equal("2026001"))
		Expect(got[11]).To(Equal("2026012"))
		for i := 1; i < len(got); i++ {
			Expect(got[i] > got[i-1]).To(BeTrue())
		}
	})

	It("keeps retainer numbers out of the standard sequence", func() {
		store.add(7, "20260009")
		store.add(7, "2026004")

		standard, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(err).NotTo(HaveOccurred())
		Expect(standard).To(Equal("2026005"))

		retainer, err := allocator.Next(ctx, scope, numbering.ClassRetainer)
		Expect(err).NotTo(HaveOccurred())
		Expect(retainer).To(Equal("20260010"))
	})

	It("starts a fresh retainer sequence at 20260001", func() {
		store.add(7, "2026001")

		n, err := allocator.Next(ctx, scope, numbering.ClassRetainer)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("20260001"))
	})

	It("scopes sequences by biller and year", func() {
		store.add(8, "2026041")
		store.add(7, "2025017")

		n, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("2026001"))
	})

	It("refuses to overflow into another class's shape", func() {
		store.add(7, "2026999")

		_, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(errors.Is(err, numbering.ErrSequenceExhausted)).To(BeTrue())
	})

	It("honours a configured prefix", func() {
		policies := numbering.DefaultPolicies()
		policies[numbering.ClassRetainer] = numbering.Policy{Class: numbering.ClassRetainer, Prefix: "R_", Width: 3, DueDays: 7}
		allocator = numbering.NewAllocator(store, policies)
		store.add(7, "R_2026003")
		store.add(7, "RX2026009")

		n, err := allocator.Next(ctx, scope, numbering.ClassRetainer)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("R_2026004"))
	})

	It("surfaces store errors", func() {
		store.err = errors.New("connection reset")

		_, err := allocator.Next(ctx, scope, numbering.ClassStandard)
		Expect(err).To(MatchError(ContainSubstring("connection reset")))
	})

	It("rejects unknown classes", func() {
		_, err := allocator.Next(ctx, scope, numbering.Class("gold"))
		Expect(errors.Is(err, numbering.ErrUnknownClass)).To(BeTrue())
	})

	// Derivation is a plain read. Concurrent callers on one scope derive the
	// same number; the unique index on invoices decides who wins.
	It("derives the same number for concurrent callers", func() {
		store.add(7, "2026002")

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				n, err := allocator.Next(ctx, scope, numbering.ClassStandard)
				Expect(err).NotTo(HaveOccurred())
				results[i] = n
			}(i)
		}
		wg.Wait()

		for _, n := range results {
			Expect(n).To(Equal("2026003"))
		}
	})
})

var _ = Describe("Policies", func() {
	It("computes due dates from the class offset", func() {
		issue := calendar.MustParseLocalDate("2026-03-28")
		policies := numbering.DefaultPolicies()

		standard, _ := policies.For(numbering.ClassStandard)
		retainer, _ := policies.For(numbering.ClassRetainer)

		Expect(calendar.FormatDateString(standard.DueDate(issue))).To(Equal("2026-04-18"))
		Expect(calendar.FormatDateString(retainer.DueDate(issue))).To(Equal("2026-04-04"))
	})

	It("rejects classes that share a number shape", func() {
		policies := numbering.DefaultPolicies()
		policies[numbering.ClassRetainer] = numbering.Policy{Class: numbering.ClassRetainer, Width: 3, DueDays: 7}

		Expect(policies.Validate()).To(MatchError(ContainSubstring("share the number shape")))
		Expect(numbering.DefaultPolicies().Validate()).To(Succeed())
	})

	It("escapes LIKE wildcards in prefixes", func() {
		pol := numbering.Policy{Prefix: "A%_", Width: 2}
		Expect(pol.LikePattern(2026)).To(Equal(`A\%\_2026__`))
	})
})

var _ = Describe("Classify", func() {
	rules := numbering.Rules{RetainerNames: []string{"Jana Retainer"}}

	It("prefers the stored class", func() {
		Expect(numbering.Classify("standard", "Jana Retainer", rules)).To(Equal(numbering.ClassStandard))
		Expect(numbering.Classify("retainer", "Someone", rules)).To(Equal(numbering.ClassRetainer))
	})

	It("falls back to the display-name rule", func() {
		Expect(numbering.Classify("", "  jana retainer ", rules)).To(Equal(numbering.ClassRetainer))
		Expect(numbering.Classify("", "Someone", rules)).To(Equal(numbering.ClassStandard))
		Expect(numbering.Classify("", "", rules)).To(Equal(numbering.ClassStandard))
	})
})
