package workperiod_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	workperiodDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/workperiod"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/testdb"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
	workperiodPostgres "github.com/frahmantamala/timesheet-invoicing/internal/workperiod/postgres"
)

func TestWorkperiod(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workperiod Suite")
}

var _ = Describe("Closing service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *workperiod.Service
		admin   *internal.Identity
		worker  *internal.Identity
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = workperiod.NewService(workperiodPostgres.NewClosingRepository(db), lg)
		admin = &internal.Identity{UserID: 1, Role: internal.RoleAdmin}
		worker = &internal.Identity{UserID: 2, Role: internal.RoleWorker}
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	open := func() *workperiod.Closing {
		c, err := service.Open(ctx, worker.UserID, workperiod.OpenClosingDTO{CalendarWeek: 13, Year: 2026})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	It("opens one closing per worker and week", func() {
		first := open()
		second := open()

		Expect(first.Status).To(Equal(workperiod.StatusOpen))
		Expect(second.ID).To(Equal(first.ID))
	})

	It("rejects weeks the year does not have", func() {
		_, err := service.Open(ctx, worker.UserID, workperiod.OpenClosingDTO{CalendarWeek: 53, Year: 2025})
		Expect(err).To(HaveOccurred())
	})

	It("walks open, submitted, approved", func() {
		c := open()

		c, err := service.Submit(ctx, c.ID, worker)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Status).To(Equal(workperiod.StatusSubmitted))
		Expect(c.SubmittedAt).NotTo(BeNil())

		c, err = service.Approve(ctx, c.ID, admin)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Status).To(Equal(workperiod.StatusApproved))
		Expect(*c.ApprovedBy).To(Equal(admin.UserID))

		stored, err := service.GetByID(ctx, c.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.IsApproved()).To(BeTrue())
	})

	It("lets a returned closing be reopened and nothing else go backwards", func() {
		c := open()
		_, err := service.Submit(ctx, c.ID, worker)
		Expect(err).NotTo(HaveOccurred())

		c, err = service.Return(ctx, c.ID, "missing Friday", admin)
		Expect(err).NotTo(HaveOccurred())
		Expect(*c.ReturnReason).To(Equal("missing Friday"))

		_, err = service.Approve(ctx, c.ID, admin)
		Expect(err).To(MatchError(workperiod.ErrInvalidStatus))

		c, err = service.Reopen(ctx, c.ID, worker)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Status).To(Equal(workperiod.StatusOpen))

		_, err = service.Reopen(ctx, c.ID, worker)
		Expect(err).To(MatchError(workperiod.ErrInvalidStatus))
	})

	It("keeps approval with administrators", func() {
		c := open()
		_, err := service.Submit(ctx, c.ID, worker)
		Expect(err).NotTo(HaveOccurred())

		_, err = service.Approve(ctx, c.ID, worker)
		Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
	})

	It("stops workers touching other workers' closings", func() {
		c := open()
		other := &internal.Identity{UserID: 3, Role: internal.RoleWorker}

		_, err := service.Submit(ctx, c.ID, other)
		Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
	})

	It("reports unknown closings", func() {
		_, err := service.Submit(ctx, 999, admin)
		Expect(err).To(MatchError(workperiod.ErrClosingNotFound))
	})

	Describe("EnsureApproved", func() {
		It("creates an approved closing when none exists", func() {
			c, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsApproved()).To(BeTrue())
			Expect(c.ApprovedAt).NotTo(BeNil())
		})

		It("reuses an approved closing", func() {
			first, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())

			again, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(first.ID))
		})

		It("approves a submitted closing", func() {
			existing := open()
			_, err := service.Submit(ctx, existing.ID, worker)
			Expect(err).NotTo(HaveOccurred())

			c, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal(existing.ID))
			Expect(c.IsApproved()).To(BeTrue())
			Expect(*c.ApprovedBy).To(Equal(admin.UserID))
		})

		It("refuses an open closing", func() {
			existing := open()

			_, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).To(MatchError(workperiod.ErrNotApproved))

			stored, err := service.GetByID(ctx, existing.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(workperiod.StatusOpen))
		})

		It("refuses a returned closing", func() {
			existing := open()
			_, err := service.Submit(ctx, existing.ID, worker)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Return(ctx, existing.ID, "hours wrong", admin)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).To(MatchError(workperiod.ErrNotApproved))

			stored, err := service.GetByID(ctx, existing.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(workperiod.StatusReturned))
		})

		It("ends with one closing under concurrent calls", func() {
			var wg sync.WaitGroup
			ids := make([]int64, 6)
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					c, err := service.EnsureApproved(ctx, worker.UserID, 20, 2026, admin.UserID)
					Expect(err).NotTo(HaveOccurred())
					ids[i] = c.ID
				}(i)
			}
			wg.Wait()

			for _, id := range ids {
				Expect(id).To(Equal(ids[0]))
			}
			var count int64
			Expect(db.Model(&workperiodDatamodel.Closing{}).Where("calendar_week = ?", 20).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("allows a new closing after the old one is deleted", func() {
			first, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Delete(&workperiodDatamodel.Closing{}, first.ID).Error).To(Succeed())

			second, err := service.EnsureApproved(ctx, worker.UserID, 13, 2026, admin.UserID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).NotTo(Equal(first.ID))
		})
	})
})
