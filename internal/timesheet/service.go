package timesheet

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
)

type Repository interface {
	Create(ctx context.Context, r *WorkRecord) error
	ListByUserBetween(ctx context.Context, userID int64, from, to string) ([]*WorkRecord, error)
	GetAccommodations(ctx context.Context, ids []int64) (map[int64]*Accommodation, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateRecord(ctx context.Context, userID int64, dto CreateWorkRecordDTO) (*WorkRecord, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	net, err := NetHours(dto.StartTime, dto.EndTime, dto.Break1Start, dto.Break1End, dto.Break2Start, dto.Break2End)
	if err != nil {
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = StatusDraft
	}

	rec := &WorkRecord{
		UserID:          userID,
		WorkDate:        calendar.NormalizeDate(dto.WorkDate),
		StartTime:       dto.StartTime,
		EndTime:         dto.EndTime,
		Break1Start:     dto.Break1Start,
		Break1End:       dto.Break1End,
		Break2Start:     dto.Break2Start,
		Break2End:       dto.Break2End,
		NetHours:        net,
		ProjectID:       dto.ProjectID,
		AccommodationID: dto.AccommodationID,
		Status:          status,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("failed to create work record", "error", err, "user_id", userID)
		return nil, err
	}
	return rec, nil
}

// RecordsForWeek returns the live records of userID attributed to the ISO
// week, sorted by date. The store filters by date range; attribution is
// re-checked from each record's own date string.
func (s *Service) RecordsForWeek(ctx context.Context, userID int64, week, year int) ([]*WorkRecord, error) {
	from := calendar.FormatDateString(calendar.WeekStart(week, year))
	to := calendar.FormatDateString(calendar.WeekEnd(week, year))

	records, err := s.repo.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to list work records", "error", err, "user_id", userID, "week", week, "year", year)
		return nil, err
	}

	out := records[:0]
	for _, r := range records {
		if calendar.IsDateInWeek(r.WorkDate, week, year) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WorkDate < out[j].WorkDate })
	return out, nil
}

// NetHoursForWeek sums net hours over the week's records.
func (s *Service) NetHoursForWeek(ctx context.Context, userID int64, week, year int) (decimal.Decimal, error) {
	records, err := s.RecordsForWeek(ctx, userID, week, year)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.NetHours)
	}
	return total, nil
}

// LodgingDeductionForWeek charges one night per distinct work date spent
// at an accommodation, at that accommodation's nightly price.
func (s *Service) LodgingDeductionForWeek(ctx context.Context, userID int64, week, year int) (decimal.Decimal, error) {
	records, err := s.RecordsForWeek(ctx, userID, week, year)
	if err != nil {
		return decimal.Zero, err
	}

	nights := make(map[int64]map[string]struct{})
	var ids []int64
	for _, r := range records {
		if r.AccommodationID == nil {
			continue
		}
		id := *r.AccommodationID
		if _, ok := nights[id]; !ok {
			nights[id] = make(map[string]struct{})
			ids = append(ids, id)
		}
		nights[id][r.WorkDate] = struct{}{}
	}
	if len(ids) == 0 {
		return decimal.Zero, nil
	}

	accommodations, err := s.repo.GetAccommodations(ctx, ids)
	if err != nil {
		s.logger.Error("failed to load accommodations", "error", err, "user_id", userID)
		return decimal.Zero, err
	}

	total := decimal.Zero
	for id, dates := range nights {
		acc, ok := accommodations[id]
		if !ok {
			s.logger.Warn("work record references unknown accommodation", "accommodation_id", id, "user_id", userID)
			continue
		}
		total = total.Add(acc.PricePerNight.Mul(decimal.NewFromInt(int64(len(dates)))))
	}
	return total, nil
}
