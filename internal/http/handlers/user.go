package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/http/response"
	"github.com/yungbote/ledger-backend/internal/services"
)

type UserHandler struct {
	balances services.BalanceService
}

func NewUserHandler(balances services.BalanceService) *UserHandler {
	return &UserHandler{balances: balances}
}

type userView struct {
	ID      int64 `json:"id"`
	Balance int64 `json:"balance"`
}

func viewOf(u *user.User) userView {
	return userView{ID: int64(u.ID()), Balance: u.Balance()}
}

type createUserRequest struct {
	Balance int64 `json:"balance"`
}

// POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	u, err := h.balances.CreateUser(c.Request.Context(), req.Balance)
	if err != nil {
		response.RespondMappedError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": viewOf(u)})
}

// GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	u, err := h.balances.GetUser(c.Request.Context(), id)
	if err != nil {
		response.RespondMappedError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": viewOf(u)})
}

// PUT /users/:id/balance?amount=<delta>
func (h *UserHandler) UpdateBalance(c *gin.Context) {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	rawAmount := strings.TrimSpace(c.Query("amount"))
	if rawAmount == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("amount is required"))
		return
	}
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("amount must be an integer"))
		return
	}
	u, err := h.balances.UpdateBalance(c.Request.Context(), id, amount)
	if err != nil {
		response.RespondMappedError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": viewOf(u)})
}

func parseUserID(raw string) (user.ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", user.ErrInvalidID, raw)
	}
	return user.ID(n), nil
}
