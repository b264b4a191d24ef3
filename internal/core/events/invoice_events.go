package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvoiceGenerated        = "invoice.generated"
	EventTypeInvoiceGenerationFailed = "invoice.generation_failed"
	EventTypeInvoiceDocumentFailed   = "invoice.document_failed"
)

// InvoiceEventTypes lists every invoice notification.
var InvoiceEventTypes = []string{
	EventTypeInvoiceGenerated,
	EventTypeInvoiceGenerationFailed,
	EventTypeInvoiceDocumentFailed,
}

type InvoiceGeneratedEvent struct {
	BaseEvent
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	UserID        int64  `json:"user_id"`
	BillingClass  string `json:"billing_class"`
	TotalAmount   string `json:"total_amount"`
}

func NewInvoiceGeneratedEvent(invoiceID int64, invoiceNumber string, userID int64, billingClass, totalAmount string) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoiceGenerated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":     invoiceID,
				"invoice_number": invoiceNumber,
				"user_id":        userID,
				"billing_class":  billingClass,
				"total_amount":   totalAmount,
			},
		},
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		UserID:        userID,
		BillingClass:  billingClass,
		TotalAmount:   totalAmount,
	}
}

type InvoiceGenerationFailedEvent struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	WeekClosingID *int64 `json:"week_closing_id,omitempty"`
	ErrorCode     string `json:"error_code"`
	Reason        string `json:"reason"`
}

func NewInvoiceGenerationFailedEvent(userID int64, weekClosingID *int64, errorCode, reason string) *InvoiceGenerationFailedEvent {
	data := map[string]interface{}{
		"user_id":    userID,
		"error_code": errorCode,
		"reason":     reason,
	}
	if weekClosingID != nil {
		data["week_closing_id"] = *weekClosingID
	}
	return &InvoiceGenerationFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoiceGenerationFailed,
			Timestamp: time.Now(),
			Data:      data,
		},
		UserID:        userID,
		WeekClosingID: weekClosingID,
		ErrorCode:     errorCode,
		Reason:        reason,
	}
}

// InvoiceDocumentFailedEvent means the invoice is saved but has no document
// yet; it can be regenerated.
type InvoiceDocumentFailedEvent struct {
	BaseEvent
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	UserID        int64  `json:"user_id"`
	Reason        string `json:"reason"`
}

func NewInvoiceDocumentFailedEvent(invoiceID int64, invoiceNumber string, userID int64, reason string) *InvoiceDocumentFailedEvent {
	return &InvoiceDocumentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoiceDocumentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":     invoiceID,
				"invoice_number": invoiceNumber,
				"user_id":        userID,
				"reason":         reason,
			},
		},
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		UserID:        userID,
		Reason:        reason,
	}
}
