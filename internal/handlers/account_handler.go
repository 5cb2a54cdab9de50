package handlers

import (
	"context"
	"net/http"

	"github.com/campusledger/backend/internal/middleware"
	"github.com/campusledger/backend/internal/models"
	"github.com/campusledger/backend/internal/services"
)

// AccountService is the chart-of-accounts API the account handler drives.
type AccountService interface {
	AddAccountGroup(ctx context.Context, in services.AccountGroupInput, actor string) (*models.AccountGroup, error)
	UpdateAccountGroup(ctx context.Context, in services.AccountGroupInput, actor string) (*models.AccountGroup, error)
	DeleteAccountGroup(ctx context.Context, id int64, actor string) error
	GetAllAccountGroups(ctx context.Context, includeChildren bool) ([]models.AccountGroup, error)
	GetAccountGroupByID(ctx context.Context, id int64) (*models.AccountGroup, error)

	AddParentAccount(ctx context.Context, in services.ParentAccountInput, actor string) (*models.ParentAccount, error)
	UpdateParentAccount(ctx context.Context, in services.ParentAccountInput, actor string) (*models.ParentAccount, error)
	DeleteParentAccount(ctx context.Context, id int64, actor string) error
	GetAllParentAccounts(ctx context.Context) ([]models.ParentAccount, error)
	GetParentAccountByID(ctx context.Context, id int64) (*models.ParentAccount, error)

	AddAccount(ctx context.Context, in services.AccountInput, actor string) (*models.Account, error)
	UpdateAccount(ctx context.Context, in services.AccountInput, actor string) (*models.Account, error)
	DeleteAccount(ctx context.Context, id int64, actor string) error
	GetAllAccounts(ctx context.Context) ([]models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
}

type AccountHandler struct {
	service     AccountService
	systemActor string
}

func NewAccountHandler(service AccountService, systemActor string) *AccountHandler {
	return &AccountHandler{service: service, systemActor: systemActor}
}

func (h *AccountHandler) actor(r *http.Request) string {
	return middleware.ActorFromContext(r.Context(), h.systemActor)
}

// AddAccountGroup creates an account group
// @Summary Add Account Group
// @Tags AccountGroup
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AccountGroupInput true "Account group"
// @Success 201 {object} services.Envelope{data=models.AccountGroup}
// @Failure 400 {object} services.Envelope
// @Router /AccountGroup/AddAccountGroup [post]
func (h *AccountHandler) AddAccountGroup(w http.ResponseWriter, r *http.Request) {
	var req services.AccountGroupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.service.AddAccountGroup(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusCreated, "Account group created successfully", g)
}

// UpdateAccountGroup updates an account group
// @Summary Update Account Group
// @Tags AccountGroup
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AccountGroupInput true "Account group with id"
// @Success 200 {object} services.Envelope{data=models.AccountGroup}
// @Failure 404 {object} services.Envelope
// @Router /AccountGroup/UpdateAccountGroup [put]
func (h *AccountHandler) UpdateAccountGroup(w http.ResponseWriter, r *http.Request) {
	var req services.AccountGroupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.service.UpdateAccountGroup(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account group updated successfully", g)
}

// DeleteAccountGroup soft-deletes an account group without active parent accounts
// @Summary Delete Account Group
// @Tags AccountGroup
// @Produce json
// @Security BearerAuth
// @Param accountGroupId query int true "Account group id"
// @Success 200 {object} services.Envelope
// @Failure 404 {object} services.Envelope
// @Failure 409 {object} services.Envelope
// @Router /AccountGroup/DeleteAccountGroup [delete]
func (h *AccountHandler) DeleteAccountGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "accountGroupId")
	if !ok {
		return
	}

	if err := h.service.DeleteAccountGroup(r.Context(), id, h.actor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account group deleted successfully", nil)
}

// GetAllAccountGroups lists active account groups
// @Summary List Account Groups
// @Tags AccountGroup
// @Produce json
// @Security BearerAuth
// @Param include query string false "Set to children to embed parent accounts and accounts"
// @Success 200 {object} services.Envelope{data=[]models.AccountGroup}
// @Router /AccountGroup/GetAllAccountGroups [get]
func (h *AccountHandler) GetAllAccountGroups(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("include") == "children"

	groups, err := h.service.GetAllAccountGroups(r.Context(), include)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account groups retrieved successfully", groups)
}

// GetAccountGroupById returns one active account group
// @Summary Get Account Group
// @Tags AccountGroup
// @Produce json
// @Security BearerAuth
// @Param id query int true "Account group id"
// @Success 200 {object} services.Envelope{data=models.AccountGroup}
// @Failure 404 {object} services.Envelope
// @Router /AccountGroup/GetAccountGroupById [get]
func (h *AccountHandler) GetAccountGroupById(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	g, err := h.service.GetAccountGroupByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account group retrieved successfully", g)
}

// AddParentAccount creates a parent account under an active group
// @Summary Add Parent Account
// @Tags ParentAccount
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ParentAccountInput true "Parent account"
// @Success 201 {object} services.Envelope{data=models.ParentAccount}
// @Failure 404 {object} services.Envelope
// @Router /ParentAccount/AddParentAccount [post]
func (h *AccountHandler) AddParentAccount(w http.ResponseWriter, r *http.Request) {
	var req services.ParentAccountInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.AddParentAccount(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusCreated, "Parent account created successfully", p)
}

// UpdateParentAccount updates a parent account
// @Summary Update Parent Account
// @Tags ParentAccount
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ParentAccountInput true "Parent account with id"
// @Success 200 {object} services.Envelope{data=models.ParentAccount}
// @Failure 404 {object} services.Envelope
// @Router /ParentAccount/UpdateParentAccount [put]
func (h *AccountHandler) UpdateParentAccount(w http.ResponseWriter, r *http.Request) {
	var req services.ParentAccountInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateParentAccount(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Parent account updated successfully", p)
}

// DeleteParentAccount soft-deletes a parent account without active accounts
// @Summary Delete Parent Account
// @Tags ParentAccount
// @Produce json
// @Security BearerAuth
// @Param parentAccountId query int true "Parent account id"
// @Success 200 {object} services.Envelope
// @Failure 409 {object} services.Envelope
// @Router /ParentAccount/DeleteParentAccount [delete]
func (h *AccountHandler) DeleteParentAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "parentAccountId")
	if !ok {
		return
	}

	if err := h.service.DeleteParentAccount(r.Context(), id, h.actor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Parent account deleted successfully", nil)
}

// GetAllParentAccounts lists active parent accounts
// @Summary List Parent Accounts
// @Tags ParentAccount
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Envelope{data=[]models.ParentAccount}
// @Router /ParentAccount/GetAllParentAccounts [get]
func (h *AccountHandler) GetAllParentAccounts(w http.ResponseWriter, r *http.Request) {
	parents, err := h.service.GetAllParentAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Parent accounts retrieved successfully", parents)
}

// GetParentAccountById returns one active parent account
// @Summary Get Parent Account
// @Tags ParentAccount
// @Produce json
// @Security BearerAuth
// @Param id query int true "Parent account id"
// @Success 200 {object} services.Envelope{data=models.ParentAccount}
// @Failure 404 {object} services.Envelope
// @Router /ParentAccount/GetParentAccountById [get]
func (h *AccountHandler) GetParentAccountById(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetParentAccountByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Parent account retrieved successfully", p)
}

// AddAccount creates a controlling account
// @Summary Add Account
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AccountInput true "Account"
// @Success 201 {object} services.Envelope{data=models.Account}
// @Failure 404 {object} services.Envelope
// @Router /Account/AddAccount [post]
func (h *AccountHandler) AddAccount(w http.ResponseWriter, r *http.Request) {
	var req services.AccountInput
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.AddAccount(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusCreated, "Account created successfully", a)
}

// UpdateAccount updates a controlling account
// @Summary Update Account
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.AccountInput true "Account with id"
// @Success 200 {object} services.Envelope{data=models.Account}
// @Failure 404 {object} services.Envelope
// @Router /Account/UpdateAccount [put]
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req services.AccountInput
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.UpdateAccount(r.Context(), req, h.actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account updated successfully", a)
}

// DeleteAccount soft-deletes an account no active ledger line posts against
// @Summary Delete Account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param accountId query int true "Account id"
// @Success 200 {object} services.Envelope
// @Failure 409 {object} services.Envelope
// @Router /Account/DeleteAccount [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "accountId")
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), id, h.actor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account deleted successfully", nil)
}

// GetAllAccounts lists active accounts
// @Summary List Accounts
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Envelope{data=[]models.Account}
// @Router /Account/GetAllAccounts [get]
func (h *AccountHandler) GetAllAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.GetAllAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Accounts retrieved successfully", accounts)
}

// GetAccountById returns one active account
// @Summary Get Account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param id query int true "Account id"
// @Success 200 {object} services.Envelope{data=models.Account}
// @Failure 404 {object} services.Envelope
// @Router /Account/GetAccountById [get]
func (h *AccountHandler) GetAccountById(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.service.GetAccountByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	services.SendResponse(w, http.StatusOK, "Account retrieved successfully", a)
}
