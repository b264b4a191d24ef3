package invoice

import (
	"context"
	"log/slog"
)

// ActiveFinder looks up the live (non-void, non-deleted) invoice of a
// biller for a closing, returning nil when there is none.
type ActiveFinder interface {
	FindActiveForClosing(ctx context.Context, billerID, closingID int64) (*Invoice, error)
}

// Guard is the fast path of the one-active-invoice-per-closing rule. The
// partial unique index on (user_id, week_closing_id) is the backstop.
type Guard struct {
	finder ActiveFinder
	logger *slog.Logger
}

func NewGuard(finder ActiveFinder, logger *slog.Logger) *Guard {
	return &Guard{finder: finder, logger: logger}
}

func (g *Guard) Check(ctx context.Context, billerID, closingID int64) error {
	existing, err := g.finder.FindActiveForClosing(ctx, billerID, closingID)
	if err != nil {
		g.logger.Error("failed to check for existing invoice", "error", err, "user_id", billerID, "week_closing_id", closingID)
		return ErrPersistFailed.Wrap(err)
	}
	if existing != nil {
		g.logger.Warn("invoice already generated for closing",
			"user_id", billerID,
			"week_closing_id", closingID,
			"invoice_id", existing.ID,
			"invoice_number", existing.InvoiceNumber)
		return ErrAlreadyGenerated
	}
	return nil
}
