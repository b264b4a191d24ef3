package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

// Customer is the party billed by every worker invoice. It is printed as the
// recipient in the document header.
type Customer struct {
	Name     string
	Address  string
	Currency string
}

// Lines lays out the text of an invoice document, one entry per line.
func Lines(inv *invoice.Invoice, billerName string, customer Customer) []string {
	cur := customer.Currency
	if cur == "" {
		cur = "EUR"
	}
	amount := func(label string, v interface{ StringFixed(int32) string }) string {
		return fmt.Sprintf("%-28s %12s %s", label, v.StringFixed(2), cur)
	}

	lines := []string{fmt.Sprintf("INVOICE %s", inv.InvoiceNumber)}
	if customer.Name != "" {
		lines = append(lines, "Recipient: "+customer.Name)
	}
	if customer.Address != "" {
		lines = append(lines, customer.Address)
	}
	lines = append(lines,
		"",
		"Supplier: "+billerName,
		"",
		"Issue date:    "+inv.IssueDate,
		"Delivery date: "+inv.DeliveryDate,
		"Due date:      "+inv.DueDate,
		"",
		fmt.Sprintf("%-28s %12s", "Hours", inv.TotalHours.StringFixed(2)),
		amount("Hourly rate", inv.HourlyRate),
		amount("Subtotal", inv.Subtotal),
		amount("VAT", inv.VATAmount),
	)
	if !inv.AdvanceDeduction.IsZero() {
		lines = append(lines, amount("Advance deduction", inv.AdvanceDeduction.Neg()))
	}
	if !inv.AccommodationDeduction.IsZero() {
		lines = append(lines, amount("Accommodation deduction", inv.AccommodationDeduction.Neg()))
	}
	lines = append(lines,
		amount("Total", inv.TotalAmount),
		"",
		fmt.Sprintf("Transaction tax %s%%: %s %s", inv.TransactionTaxRate.String(), inv.TransactionTaxAmount.StringFixed(2), cur),
	)
	if inv.IsReverseCharge {
		lines = append(lines, "Reverse charge: VAT to be accounted for by the recipient.")
	}
	return lines
}

// RenderPDF writes lines into a single-page PDF set in the built-in
// Courier font.
func RenderPDF(lines []string) []byte {
	if len(lines) == 0 {
		lines = []string{"Invoice"}
	}

	var content strings.Builder
	content.WriteString("BT\n/F1 11 Tf\n14 TL\n50 800 Td\n")
	for i, line := range lines {
		if i == 0 {
			content.WriteString(fmt.Sprintf("(%s) Tj\n", pdfEscape(line)))
			continue
		}
		content.WriteString(fmt.Sprintf("T* (%s) Tj\n", pdfEscape(line)))
	}
	content.WriteString("ET")

	stream := content.String()
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n",
		"4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Courier >>\nendobj\n",
		fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objects)+1)
	offsets = append(offsets, 0)
	for _, obj := range objects {
		offsets = append(offsets, out.Len())
		out.WriteString(obj)
	}

	xrefStart := out.Len()
	out.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)))
	out.WriteString("0000000000 65535 f \n")
	for i := 1; i < len(offsets); i++ {
		out.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	out.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(offsets), xrefStart))

	return out.Bytes()
}

// pdfEscape escapes string delimiters and drops non-ASCII runes, which the
// built-in fonts cannot show.
func pdfEscape(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
