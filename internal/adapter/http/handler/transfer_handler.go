package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/escrowledger/internal/adapter/http/dto"
	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

// TransferService is the part of the transfer use case served over HTTP.
type TransferService interface {
	SetTransfer(ctx context.Context, transfer *domain.Transfer, identity *domain.Identity) (*usecase.SetTransferResult, error)
	FulfillTransfer(ctx context.Context, transferID string, fulfillment domain.Fulfillment) (*usecase.FulfillResult, error)
	GetTransfer(ctx context.Context, id string) (*domain.Transfer, error)
	GetFulfillment(ctx context.Context, transferID string, identity *domain.Identity) (*domain.Fulfillment, error)
	GetStateReceipt(ctx context.Context, transferID, receiptType string, conditionState domain.TransferState) (*domain.Receipt, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transfers TransferService
	baseURI   string
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers TransferService, baseURI string) *TransferHandler {
	return &TransferHandler{transfers: transfers, baseURI: baseURI}
}

// Put proposes, prepares, executes or updates a transfer.
func (h *TransferHandler) Put(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, asInvalidBody(err))
		return
	}

	transfer, err := dto.ParseTransfer(body, chi.URLParam(r, "id"), h.baseURI)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, _ := domain.IdentityFromContext(r.Context())

	result, err := h.transfers.SetTransfer(r.Context(), transfer, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, createdOrOK(result.Existed), result.Transfer)
}

// Get retrieves a transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.transfers.GetTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transfer)
}

// PutFulfillment submits a fulfillment of the execution or cancellation
// condition.
func (h *TransferHandler) PutFulfillment(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, asInvalidBody(err))
		return
	}

	fulfillment, err := dto.ParseFulfillment(body)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.transfers.FulfillTransfer(r.Context(), chi.URLParam(r, "id"), fulfillment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, createdOrOK(result.Existed), result.Fulfillment)
}

// GetFulfillment returns the stored fulfillment to authenticated callers.
func (h *TransferHandler) GetFulfillment(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	fulfillment, err := h.transfers.GetFulfillment(r.Context(), chi.URLParam(r, "id"), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fulfillment)
}

// GetState returns a signed or digested receipt of the transfer state.
func (h *TransferHandler) GetState(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	receiptType := query.Get("type")
	if receiptType == "" {
		receiptType = domain.ReceiptTypeEd25519
	}

	receipt, err := h.transfers.GetStateReceipt(
		r.Context(),
		chi.URLParam(r, "id"),
		receiptType,
		domain.TransferState(query.Get("condition_state")),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

func asInvalidBody(err error) error {
	if errors.Is(err, domain.ErrInvalidBody) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
}
