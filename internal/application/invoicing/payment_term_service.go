package invoicing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/erp/vendor-invoice/internal/domain/invoicing"
)

// PaymentTermService serves the payment-term catalogue and due-date previews
type PaymentTermService struct {
	termRepo invoicing.PaymentTermRepository
}

// NewPaymentTermService creates a new PaymentTermService
func NewPaymentTermService(termRepo invoicing.PaymentTermRepository) *PaymentTermService {
	return &PaymentTermService{termRepo: termRepo}
}

// List returns the catalogue with derived day counts, sorted by day count
// then name so the wizard dropdown reads shortest-term first
func (s *PaymentTermService) List(ctx context.Context) ([]PaymentTermResponse, error) {
	terms, err := s.termRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentTermResponse, 0, len(terms))
	for _, term := range terms {
		responses = append(responses, PaymentTermResponse{
			ID:          term.ID,
			Name:        term.Name,
			Description: term.Description,
			Days:        term.Days(),
		})
	}
	sort.Slice(responses, func(i, j int) bool {
		if responses[i].Days != responses[j].Days {
			return responses[i].Days < responses[j].Days
		}
		return responses[i].Name < responses[j].Name
	})
	return responses, nil
}

// PreviewDueDate parses a payment-term label against an invoice date
func (s *PaymentTermService) PreviewDueDate(name string, invoiceDate time.Time, description string) DueDatePreviewResponse {
	due := invoicing.CalculateDueDate(name, invoiceDate, description)
	return DueDatePreviewResponse{
		DueDate:     due.Date,
		Category:    string(due.Category),
		Explanation: due.Explanation,
		NeedsReview: due.NeedsReview,
	}
}

// PreviewDueDateByID parses a catalogued term against an invoice date
func (s *PaymentTermService) PreviewDueDateByID(ctx context.Context, termID uuid.UUID, invoiceDate time.Time) (*DueDatePreviewResponse, error) {
	term, err := s.termRepo.FindByID(ctx, termID)
	if err != nil {
		return nil, err
	}
	preview := s.PreviewDueDate(term.Name, invoiceDate, term.Description)
	return &preview, nil
}
