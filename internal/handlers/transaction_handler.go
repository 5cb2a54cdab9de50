package handlers

import (
	"context"
	"net/http"

	"github.com/campusledger/backend/internal/middleware"
	"github.com/campusledger/backend/internal/models"
	"github.com/campusledger/backend/internal/services"
)

// LedgerService is the posting API the transaction handler drives.
type LedgerService interface {
	CreateTransaction(ctx context.Context, in services.TransactionInput, actor, idempotencyKey string) (*models.Transaction, bool, error)
	UpdateTransaction(ctx context.Context, in services.TransactionInput, actor string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64, actor string) error
	GetAllTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*models.Transaction, error)
}

type TransactionHandler struct {
	service     LedgerService
	systemActor string
}

func NewTransactionHandler(service LedgerService, systemActor string) *TransactionHandler {
	return &TransactionHandler{service: service, systemActor: systemActor}
}

// AddTransaction posts a new balanced transaction
// @Summary Add Transaction
// @Description Create a transaction header with its debit and credit lines. Total debits must equal total credits.
// @Tags Transaction
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the original result when repeated with the same body"
// @Param request body services.TransactionInput true "Transaction with detail lines"
// @Success 201 {object} services.Envelope{data=models.Transaction}
// @Success 200 {object} services.Envelope{data=models.Transaction} "Replayed idempotent request"
// @Failure 400 {object} services.Envelope
// @Failure 409 {object} services.Envelope "Idempotency key in flight or reused with a different body"
// @Failure 422 {object} services.Envelope
// @Router /Transaction/AddTransaction [post]
func (h *TransactionHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := middleware.ActorFromContext(r.Context(), h.systemActor)
	tx, replayed, err := h.service.CreateTransaction(r.Context(), req, actor, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if replayed {
		services.SendResponse(w, http.StatusOK, "Transaction already posted", tx)
		return
	}
	services.SendResponse(w, http.StatusCreated, "Transaction created successfully", tx)
}

// UpdateTransaction replaces a transaction's header and detail lines
// @Summary Update Transaction
// @Description Overwrite the header and replace every detail line atomically
// @Tags Transaction
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.TransactionInput true "Transaction with id and the full new set of lines"
// @Success 200 {object} services.Envelope{data=models.Transaction}
// @Failure 400 {object} services.Envelope
// @Failure 404 {object} services.Envelope
// @Failure 422 {object} services.Envelope
// @Router /Transaction/UpdateTransaction [put]
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := middleware.ActorFromContext(r.Context(), h.systemActor)
	tx, err := h.service.UpdateTransaction(r.Context(), req, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	services.SendResponse(w, http.StatusOK, "Transaction updated successfully", tx)
}

// DeleteTransaction soft-deletes a transaction
// @Summary Delete Transaction
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param transactionId query int true "Transaction id"
// @Success 200 {object} services.Envelope
// @Failure 404 {object} services.Envelope
// @Router /Transaction/DeleteTransaction [delete]
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "transactionId")
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(r.Context(), h.systemActor)
	if err := h.service.DeleteTransaction(r.Context(), id, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}

	services.SendResponse(w, http.StatusOK, "Transaction deleted successfully", nil)
}

// GetAllTransactions lists active transactions
// @Summary List Transactions
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Envelope{data=[]models.Transaction}
// @Router /Transaction/GetAllTransactions [get]
func (h *TransactionHandler) GetAllTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.GetAllTransactions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	services.SendResponse(w, http.StatusOK, "Transactions retrieved successfully", txs)
}

// GetTransactionById returns one active transaction
// @Summary Get Transaction
// @Tags Transaction
// @Produce json
// @Security BearerAuth
// @Param id query int true "Transaction id"
// @Success 200 {object} services.Envelope{data=models.Transaction}
// @Failure 404 {object} services.Envelope
// @Router /Transaction/GetTransactionById [get]
func (h *TransactionHandler) GetTransactionById(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	tx, err := h.service.GetTransactionByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	services.SendResponse(w, http.StatusOK, "Transaction retrieved successfully", tx)
}
