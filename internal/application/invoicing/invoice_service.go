package invoicing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/invoicing"
	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// creationState tracks where the invoice-creation transaction currently is.
// Each state past pending has one compensation action, so a failure anywhere
// leaves no orphaned database reference to a missing object.
type creationState string

const (
	statePending              creationState = "PENDING"
	stateUploadingAttachments creationState = "UPLOADING_ATTACHMENTS"
	stateLinkingMedia         creationState = "LINKING_MEDIA"
	statePersisting           creationState = "PERSISTING"
	stateCommitted            creationState = "COMMITTED"
	stateFailed               creationState = "FAILED"
)

// InvoiceServiceConfig holds the tunable limits of the invoice service
type InvoiceServiceConfig struct {
	// AttachmentPolicy bounds attachment batches
	AttachmentPolicy AttachmentPolicy
	// CreationGuardTTL bounds how long a wizard session holds the in-flight flag
	CreationGuardTTL time.Duration
	// DownloadURLExpiry is the lifetime of presigned attachment URLs
	DownloadURLExpiry time.Duration
	// RecentLimit is the default size of the recent-invoices listing
	RecentLimit int
}

// DefaultInvoiceServiceConfig returns the default configuration
func DefaultInvoiceServiceConfig() InvoiceServiceConfig {
	return InvoiceServiceConfig{
		AttachmentPolicy:  DefaultAttachmentPolicy(),
		CreationGuardTTL:  5 * time.Minute,
		DownloadURLExpiry: time.Hour,
		RecentLimit:       50,
	}
}

// InvoiceService orchestrates invoice creation and management
type InvoiceService struct {
	invoiceRepo invoicing.InvoiceRepository
	arrivalRepo invoicing.ArrivalLineRepository
	poLineRepo  invoicing.POLineRepository
	mediaRepo   invoicing.MediaRepository
	termRepo    invoicing.PaymentTermRepository
	storage     ObjectStorage
	guard       shared.CreationGuard
	resolver    *currency.Resolver
	config      InvoiceServiceConfig
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	arrivalRepo invoicing.ArrivalLineRepository,
	poLineRepo invoicing.POLineRepository,
	mediaRepo invoicing.MediaRepository,
	termRepo invoicing.PaymentTermRepository,
	storage ObjectStorage,
	guard shared.CreationGuard,
	resolver *currency.Resolver,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		arrivalRepo: arrivalRepo,
		poLineRepo:  poLineRepo,
		mediaRepo:   mediaRepo,
		termRepo:    termRepo,
		storage:     storage,
		guard:       guard,
		resolver:    resolver,
		config:      DefaultInvoiceServiceConfig(),
		logger:      logger,
	}
}

// SetConfig sets the service configuration
func (s *InvoiceService) SetConfig(config InvoiceServiceConfig) {
	if config.CreationGuardTTL <= 0 {
		config.CreationGuardTTL = 5 * time.Minute
	}
	if config.DownloadURLExpiry <= 0 {
		config.DownloadURLExpiry = time.Hour
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = 50
	}
	s.config = config
}

// invoiceDraft carries the validated inputs across creation states
type invoiceDraft struct {
	input      CreateInvoiceInput
	invoicedAt time.Time
	lines      []*invoicing.ArrivalLine
	candidates []invoicing.ArrivalLineStatus
	poLines    map[uuid.UUID]*invoicing.POLine
	rates      currency.RateSet
	fxRate     *decimal.Decimal
	totals     invoicing.InvoiceTotals
	termID     *uuid.UUID
	termName   string
	dueAt      *time.Time
	warnings   []string
}

// CreateInvoice runs the creation transaction: validate, upload attachments,
// create media records, persist everything in one database transaction.
// Client-submitted totals are never trusted; amounts are recomputed from line
// data and the per-line VAT rate is re-fetched from the PO line.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*CreateInvoiceResult, error) {
	if input.SessionKey != "" && s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, input.SessionKey, s.config.CreationGuardTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check in-flight creation: %w", err)
		}
		if !acquired {
			return nil, shared.ErrCreationInFlight
		}
		defer func() {
			if err := s.guard.Release(ctx, input.SessionKey); err != nil {
				s.logger.Warn("failed to release creation guard",
					zap.String("session_key", input.SessionKey), zap.Error(err))
			}
		}()
	}

	state := statePending
	draft, err := s.prepareDraft(ctx, input)
	if err != nil {
		return nil, err
	}

	state = stateUploadingAttachments
	uploadedKeys, err := s.uploadAttachments(ctx, input.Attachments)
	if err != nil {
		s.fail(ctx, state, uploadedKeys, nil)
		return nil, err
	}

	state = stateLinkingMedia
	mediaIDs, err := s.createMediaRecords(ctx, input, uploadedKeys)
	if err != nil {
		s.fail(ctx, state, uploadedKeys, mediaIDs)
		return nil, err
	}

	state = statePersisting
	inv, detailLines, err := s.buildInvoice(ctx, draft)
	if err != nil {
		s.fail(ctx, state, uploadedKeys, mediaIDs)
		return nil, err
	}
	if err := s.invoiceRepo.CreateWithLines(ctx, inv, detailLines, mediaIDs); err != nil {
		s.fail(ctx, state, uploadedKeys, mediaIDs)
		s.logger.Error("invoice persistence failed",
			zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("PERSISTENCE_FAILURE", "Failed to save the invoice")
	}

	state = stateCommitted
	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("state", string(state)),
		zap.Int("lines", len(detailLines)),
		zap.Int("attachments", len(mediaIDs)),
	)
	return &CreateInvoiceResult{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Warnings:      draft.warnings,
	}, nil
}

// prepareDraft runs every check that needs no side effects: input shape,
// attachment batch limits, selection consistency, PO reconciliation and rate
// resolution. Nothing is uploaded or written until this passes.
func (s *InvoiceService) prepareDraft(ctx context.Context, input CreateInvoiceInput) (*invoiceDraft, error) {
	if !input.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid invoice type: %s", input.Type))
	}
	if !input.Currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid invoice currency: %s", input.Currency))
	}
	if input.ActingUser == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Acting user is required")
	}
	if len(input.ArrivalLineIDs) == 0 {
		return nil, shared.NewDomainError("EMPTY_SELECTION", "No arrival lines selected")
	}
	invoicedAt := input.InvoicedAt
	if invoicedAt.IsZero() {
		invoicedAt = time.Now()
	}
	if invoicedAt.After(time.Now()) {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date cannot be in the future")
	}
	if err := s.config.AttachmentPolicy.ValidateBatch(input.Attachments); err != nil {
		return nil, err
	}

	lines, err := s.arrivalRepo.FindByIDs(ctx, input.ArrivalLineIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) != len(input.ArrivalLineIDs) {
		return nil, shared.NewDomainError("ARRIVAL_NOT_FOUND", "Some selected arrival lines were not found")
	}

	validation := invoicing.ValidateSelection(lines)
	if !validation.IsValid() {
		return nil, validation.BlockingError
	}
	warnings := validation.Warnings

	statuses, poLines, err := s.reconcile(ctx, lines)
	if err != nil {
		return nil, err
	}
	poCheck := invoicing.ValidateSelectionAgainstPO(statuses)
	if !poCheck.IsValid() {
		return nil, poCheck.BlockingError
	}
	warnings = append(warnings, poCheck.Warnings...)

	candidates := make([]invoicing.ArrivalLineStatus, 0, len(statuses))
	for _, st := range statuses {
		if st.TrueRemainingQty.IsPositive() {
			candidates = append(candidates, st)
		}
	}
	if len(candidates) == 0 {
		return nil, shared.NewDomainError("NOTHING_TO_INVOICE",
			"All selected lines have been fully invoiced against their purchase orders")
	}

	draft := &invoiceDraft{
		input:      input,
		invoicedAt: invoicedAt,
		lines:      lines,
		candidates: candidates,
		poLines:    poLines,
		warnings:   warnings,
	}

	if err := s.resolveTerm(ctx, draft); err != nil {
		return nil, err
	}
	if err := s.resolveRatesAndTotals(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// reconcile loads the PO lines and invoice history behind the selection and
// computes the true remaining quantity per arrival line
func (s *InvoiceService) reconcile(ctx context.Context, lines []*invoicing.ArrivalLine) ([]invoicing.ArrivalLineStatus, map[uuid.UUID]*invoicing.POLine, error) {
	poLineIDs := distinctPOLineIDs(lines)
	poLines, err := s.poLineRepo.FindByIDs(ctx, poLineIDs)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.poLineRepo.InvoiceHistory(ctx, poLineIDs)
	if err != nil {
		return nil, nil, err
	}
	poStatuses := invoicing.ReconcilePOLines(poLines, history)
	statuses := invoicing.ReconcileArrivals(lines, poStatuses)

	byID := make(map[uuid.UUID]*invoicing.POLine, len(poLines))
	for _, pl := range poLines {
		byID[pl.ID] = pl
	}
	return statuses, byID, nil
}

// resolveTerm picks the invoice payment term: the explicit one when given,
// the majority term of the selected lines otherwise. The derived due date is
// advisory and lands on the header only when a date could be computed.
func (s *InvoiceService) resolveTerm(ctx context.Context, draft *invoiceDraft) error {
	description := ""
	if draft.input.PaymentTermID != nil {
		term, err := s.termRepo.FindByID(ctx, *draft.input.PaymentTermID)
		if err != nil {
			return shared.NewDomainError("PAYMENT_TERM_NOT_FOUND", "Payment term not found")
		}
		draft.termID = &term.ID
		draft.termName = term.Name
		description = term.Description
	} else {
		draft.termName, _ = invoicing.MajorityPaymentTerm(draft.lines)
	}
	if draft.termName == "" {
		return nil
	}
	due := invoicing.CalculateDueDate(draft.termName, draft.invoicedAt, description)
	draft.dueAt = due.Date
	if due.NeedsReview {
		draft.warnings = append(draft.warnings, fmt.Sprintf(
			"Derived due date needs review: %s", due.Explanation))
	}
	return nil
}

// resolveRatesAndTotals resolves the PO→invoice and USD reporting rates and
// recomputes the invoice totals server-side. A missing conversion rate on a
// cross-currency invoice blocks creation; it is never silently treated as 1.0.
func (s *InvoiceService) resolveRatesAndTotals(ctx context.Context, draft *invoiceDraft) error {
	poCurrency := draft.lines[0].UnitCostCurrency
	if poLine, ok := draft.poLines[draft.lines[0].POLineID]; ok && poLine.Currency != "" {
		poCurrency = poLine.Currency
	}

	draft.rates = s.resolver.CalculateRates(ctx, poCurrency, draft.input.Currency)
	valid, rateWarnings := currency.ValidateRates(draft.rates, poCurrency, draft.input.Currency)
	if !valid {
		return shared.NewDomainError("RATE_UNAVAILABLE", rateWarnings[0])
	}
	draft.warnings = append(draft.warnings, rateWarnings...)

	if poCurrency != draft.input.Currency {
		rate := draft.rates.POToInvoice.Rate
		draft.fxRate = &rate
	}

	totalsLines := make([]invoicing.TotalsLine, 0, len(draft.candidates))
	for _, st := range draft.candidates {
		vat := st.Line.VATPercent
		if poLine, ok := draft.poLines[st.Line.POLineID]; ok {
			vat = poLine.VATPercent
		}
		totalsLines = append(totalsLines, invoicing.TotalsLine{
			UnitCost:   st.Line.UnitCost(),
			Quantity:   st.TrueRemainingQty,
			VATPercent: vat,
		})
	}
	draft.totals = invoicing.CalculateTotals(totalsLines, draft.fxRate, draft.input.Currency)
	return nil
}

// uploadAttachments uploads the whole batch to object storage. Any single
// failure aborts the batch; already-uploaded objects are removed by fail().
func (s *InvoiceService) uploadAttachments(ctx context.Context, files []AttachmentUpload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	now := time.Now()
	keys := make([]string, 0, len(files))
	for i, file := range files {
		key := BuildStorageKey(now, i, file.FileName)
		if err := s.storage.Upload(ctx, key, file.Data, ContentTypeFor(file.FileName)); err != nil {
			s.logger.Error("attachment upload failed",
				zap.String("file_name", file.FileName),
				zap.String("storage_key", key),
				zap.Error(err),
			)
			return keys, shared.NewDomainError("UPLOAD_FAILURE",
				fmt.Sprintf("Failed to upload attachment %s", file.FileName))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// createMediaRecords persists one media row per uploaded object, attributed
// to the acting user. Rows stay unlinked until CreateWithLines attaches them
// to the invoice inside the database transaction.
func (s *InvoiceService) createMediaRecords(ctx context.Context, input CreateInvoiceInput, keys []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(keys))
	now := time.Now()
	for i, key := range keys {
		file := input.Attachments[i]
		media := &invoicing.MediaFile{
			ID:          uuid.New(),
			FileName:    file.FileName,
			ObjectKey:   key,
			ContentType: ContentTypeFor(file.FileName),
			SizeBytes:   int64(len(file.Data)),
			UploadedBy:  input.ActingUser,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.mediaRepo.Create(ctx, media); err != nil {
			s.logger.Error("media record creation failed",
				zap.String("file_name", file.FileName), zap.Error(err))
			return ids, shared.NewDomainError("PERSISTENCE_FAILURE",
				fmt.Sprintf("Failed to register attachment %s", file.FileName))
		}
		ids = append(ids, media.ID)
	}
	return ids, nil
}

// buildInvoice assembles the header and detail rows from the draft
func (s *InvoiceService) buildInvoice(ctx context.Context, draft *invoiceDraft) (*invoicing.PurchaseInvoice, []invoicing.PurchaseInvoiceLine, error) {
	number := invoicing.BuildInvoiceNumber(
		draft.invoicedAt,
		draft.lines[0].VendorCode,
		draft.lines[0].EntityCode,
		s.nextSequence(ctx),
		draft.input.Type,
	)

	exchangeRate := decimal.NewFromInt(1)
	if draft.rates.POToInvoice != nil {
		exchangeRate = draft.rates.POToInvoice.Rate
	}
	usdRate := decimal.Zero
	if draft.rates.USDRate != nil {
		usdRate = draft.rates.USDRate.Rate
	}

	inv, err := invoicing.NewPurchaseInvoice(
		number,
		draft.input.Type,
		draft.lines[0].VendorCode,
		draft.lines[0].VendorName,
		draft.lines[0].EntityCode,
		draft.input.Currency,
		exchangeRate,
		usdRate,
		draft.totals,
		draft.invoicedAt,
		draft.input.ActingUser,
	)
	if err != nil {
		return nil, nil, err
	}
	inv.CommercialInvoiceNumber = draft.input.CommercialInvoiceNumber
	inv.EmailToAccountant = draft.input.EmailToAccountant
	inv.PaymentTermID = draft.termID
	inv.PaymentTermName = draft.termName
	inv.DueAt = draft.dueAt

	now := time.Now()
	detailLines := make([]invoicing.PurchaseInvoiceLine, 0, len(draft.candidates))
	for _, st := range draft.candidates {
		line := st.Line
		vat := line.VATPercent
		if poLine, ok := draft.poLines[line.POLineID]; ok {
			vat = poLine.VATPercent
		}
		excl, incl := invoicing.LineAmounts(line.UnitCost(), st.TrueRemainingQty, vat, draft.fxRate)
		detailLines = append(detailLines, invoicing.PurchaseInvoiceLine{
			ID:               uuid.New(),
			InvoiceID:        inv.ID,
			ArrivalLineID:    line.ID,
			POLineID:         line.POLineID,
			PONumber:         line.PONumber,
			SKU:              line.SKU,
			Quantity:         st.TrueRemainingQty,
			UnitCostAmount:   line.UnitCostAmount,
			UnitCostCurrency: line.UnitCostCurrency,
			VATPercent:       vat,
			AmountExclVAT:    excl,
			AmountInclVAT:    incl,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return inv, detailLines, nil
}

// nextSequence asks the repository for max id + 1 and falls back to an
// HHMMSS timestamp so a sequence-lookup failure never blocks creation
func (s *InvoiceService) nextSequence(ctx context.Context) int {
	seq, err := s.invoiceRepo.NextSequence(ctx)
	if err != nil {
		s.logger.Warn("invoice sequence lookup failed, using timestamp fallback", zap.Error(err))
		fallback, _ := strconv.Atoi(time.Now().Format("150405"))
		return fallback
	}
	return seq
}

// fail runs the compensation for the state the transaction failed in:
// uploaded objects are deleted and unlinked media rows soft-deleted. Cleanup
// is best effort; an orphaned object is acceptable, an orphaned database
// reference to a missing object is not.
func (s *InvoiceService) fail(ctx context.Context, state creationState, uploadedKeys []string, mediaIDs []uuid.UUID) {
	s.logger.Warn("invoice creation failed, compensating",
		zap.String("state", string(state)),
		zap.Int("uploaded_objects", len(uploadedKeys)),
		zap.Int("media_records", len(mediaIDs)),
	)
	for _, id := range mediaIDs {
		if err := s.mediaRepo.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to remove media record during compensation",
				zap.String("media_id", id.String()), zap.Error(err))
		}
	}
	for _, key := range uploadedKeys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove uploaded object during compensation",
				zap.String("storage_key", key), zap.Error(err))
		}
	}
}

// distinctPOLineIDs collects the distinct PO line IDs behind a selection
func distinctPOLineIDs(lines []*invoicing.ArrivalLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.POLineID]; ok {
			continue
		}
		seen[line.POLineID] = struct{}{}
		ids = append(ids, line.POLineID)
	}
	return ids
}

// ============================================================================
// Queries and post-creation management
// ============================================================================

// GetInvoice returns a full invoice with lines and attachment download URLs
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	for i := range inv.Attachments {
		url, _, err := s.storage.GenerateDownloadURL(ctx, inv.Attachments[i].ObjectKey, s.config.DownloadURLExpiry)
		if err == nil {
			response.Attachments[i].DownloadURL = url
		}
	}
	return &response, nil
}

// ListRecent lists the most recently created invoices
func (s *InvoiceService) ListRecent(ctx context.Context, limit int) ([]InvoiceListItem, error) {
	if limit <= 0 || limit > s.config.RecentLimit {
		limit = s.config.RecentLimit
	}
	invoices, err := s.invoiceRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]InvoiceListItem, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, ToInvoiceListItem(inv))
	}
	return items, nil
}

// UpdateMetadata applies a metadata-only change to an invoice. Financial
// fields never change after creation.
func (s *InvoiceService) UpdateMetadata(ctx context.Context, id uuid.UUID, input UpdateInvoiceMetadataInput) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	update := invoicing.InvoiceMetadataUpdate{
		CommercialInvoiceNumber: input.CommercialInvoiceNumber,
		InvoicedAt:              input.InvoicedAt,
		DueAt:                   input.DueAt,
		EmailToAccountant:       input.EmailToAccountant,
	}
	if err := inv.UpdateMetadata(update, time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// VoidInvoice voids an invoice by soft delete. Voiding is the only way to
// retire an invoice once detail rows exist.
func (s *InvoiceService) VoidInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := inv.Void(time.Now()); err != nil {
		return err
	}
	return s.invoiceRepo.Delete(ctx, id)
}

// HardDeleteInvoice physically removes an invoice. Refused once detail rows
// exist; those invoices can only be voided.
func (s *InvoiceService) HardDeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !inv.CanHardDelete() {
		return shared.NewDomainError("INVOICE_HAS_LINES",
			"Invoices with detail rows cannot be hard-deleted; void them instead")
	}
	return s.invoiceRepo.HardDelete(ctx, id)
}

// ListAttachments lists the non-deleted attachments of an invoice with
// download URLs
func (s *InvoiceService) ListAttachments(ctx context.Context, invoiceID uuid.UUID) ([]MediaFileResponse, error) {
	files, err := s.mediaRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]MediaFileResponse, 0, len(files))
	for _, file := range files {
		response := ToMediaFileResponse(file)
		url, _, err := s.storage.GenerateDownloadURL(ctx, file.ObjectKey, s.config.DownloadURLExpiry)
		if err == nil {
			response.DownloadURL = url
		}
		responses = append(responses, response)
	}
	return responses, nil
}

// DeleteAttachment soft-deletes an attachment link. The stored object stays
// in place so voided invoices keep their audit trail.
func (s *InvoiceService) DeleteAttachment(ctx context.Context, mediaID uuid.UUID) error {
	if _, err := s.mediaRepo.FindByID(ctx, mediaID); err != nil {
		return err
	}
	return s.mediaRepo.Delete(ctx, mediaID)
}
