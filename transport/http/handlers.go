package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lunark-labs/drip/core"
	"github.com/lunark-labs/drip/service"
)

// Handlers contains the HTTP handlers for the auth and rewards endpoints.
type Handlers struct {
	auth   *service.AuthService
	claims *service.ClaimService
	log    *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(auth *service.AuthService, claims *service.ClaimService, log *zap.Logger) *Handlers {
	return &Handlers{auth: auth, claims: claims, log: log}
}

type accountResponse struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	Contact     string `json:"contact,omitempty"`
	TotalEarned string `json:"totalEarned"`
	TotalClaims int64  `json:"totalClaims"`
}

func toAccountResponse(a *core.Account) accountResponse {
	return accountResponse{
		Address:     a.Address,
		DisplayName: a.DisplayName,
		Contact:     a.Contact,
		TotalEarned: a.TotalEarned.StringFixed(2),
		TotalClaims: a.TotalClaims,
	}
}

type transactionResponse struct {
	TransactionID string    `json:"transactionId"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	SettlementRef string    `json:"settlementReference,omitempty"`
	ClaimedAt     time.Time `json:"claimedAt,omitempty"`
}

func toTransactionResponse(t *core.ClaimTransaction) transactionResponse {
	return transactionResponse{
		TransactionID: t.ID,
		Amount:        t.Amount.StringFixed(2),
		Status:        string(t.Status),
		SettlementRef: t.SettlementRef,
		ClaimedAt:     t.ClaimedAt,
	}
}

// Nonce handles GET /auth/nonce.
func (h *Handlers) Nonce(c *gin.Context) {
	challenge, err := h.auth.CreateChallenge(c.Query("address"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   challenge.Message(),
		"nonce":     challenge.Nonce,
		"timestamp": challenge.IssuedAt.UnixMilli(),
	})
}

// Connect handles POST /auth/connect.
func (h *Handlers) Connect(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, core.ErrInvalidMessageFormat)
		return
	}

	token, account, err := h.auth.Authenticate(c.Request.Context(), req.Address, req.Message, req.Signature)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionToken": token,
		"account":      toAccountResponse(account),
	})
}

// Disconnect handles POST /auth/disconnect.
func (h *Handlers) Disconnect(c *gin.Context) {
	address := c.GetString(ctxUserAddress)
	if err := h.auth.Disconnect(c.Request.Context(), address); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

// Refresh handles POST /auth/refresh. It takes the bearer token directly
// (not through the auth middleware) because the semantics differ: the token
// must resolve to an active session, but no account context is needed first.
func (h *Handlers) Refresh(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		h.writeError(c, core.ErrMissingToken)
		return
	}

	newToken, account, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionToken": newToken,
		"account":      toAccountResponse(account),
	})
}

// Me handles GET /api/me.
func (h *Handlers) Me(c *gin.Context) {
	account := c.MustGet(ctxAccount).(*core.Account)
	c.JSON(http.StatusOK, toAccountResponse(account))
}

// UpdateMe handles PUT /api/me.
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req struct {
		DisplayName string `json:"displayName"`
		Contact     string `json:"contact"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, core.ErrInvalidMessageFormat)
		return
	}

	account, err := h.auth.UpdateProfile(c.Request.Context(), c.GetString(ctxUserAddress), req.DisplayName, req.Contact)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

// Available handles GET /rewards/available.
func (h *Handlers) Available(c *gin.Context) {
	result, err := h.claims.Available(c.Request.Context(), c.GetString(ctxUserAddress))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":              result.Amount.StringFixed(2),
		"hoursSinceLastClaim": result.HoursElapsed,
		"nextEligibleInHours": result.NextEligibleInHours,
		"canClaim":            result.CanClaim,
	})
}

// Claim handles POST /rewards/claim.
func (h *Handlers) Claim(c *gin.Context) {
	var req struct {
		ExpectedAmount string `json:"expectedAmount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, core.ErrInvalidAmount)
		return
	}

	expected, err := decimal.NewFromString(req.ExpectedAmount)
	if err != nil {
		h.writeError(c, core.ErrInvalidAmount)
		return
	}

	claim, err := h.claims.Open(c.Request.Context(), c.GetString(ctxUserAddress), expected)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactionId": claim.ID,
		"amount":        claim.Amount.StringFixed(2),
		"expiresAt":     claim.ExpiresAt,
	})
}

// Confirm handles POST /rewards/confirm.
func (h *Handlers) Confirm(c *gin.Context) {
	var req struct {
		TransactionID string `json:"transactionId" binding:"required"`
		SettlementRef string `json:"settlementReference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, core.ErrTransactionNotFound)
		return
	}

	claim, err := h.claims.Confirm(c.Request.Context(), req.TransactionID, c.GetString(ctxUserAddress), req.SettlementRef)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(claim))
}

// Pool handles GET /rewards/pool.
func (h *Handlers) Pool(c *gin.Context) {
	pool, err := h.claims.Pool(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratePerHour":      pool.RatePerHour.StringFixed(2),
		"minIntervalHours": pool.MinIntervalHours,
		"capPerWindow":     pool.CapPerWindow.StringFixed(2),
		"active":           pool.Active,
		"totalDistributed": pool.TotalDistributed.StringFixed(2),
		"participantCount": pool.ParticipantCount,
	})
}

// writeError maps a coded domain error to its HTTP status and stable code.
func (h *Handlers) writeError(c *gin.Context, err error) {
	coded := core.CodedError(err)
	if coded == nil {
		h.log.Error("unclassified error", zap.Error(err))
		coded = core.ErrDatabase
	}

	c.JSON(statusFor(coded.Kind), gin.H{
		"error": coded.Message,
		"code":  coded.Code,
	})
}

func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
