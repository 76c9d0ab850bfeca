// Package httpapi exposes the public verification surface: share links of
// the form /verify/<token> resolve into redacted verification views and
// degrade into not-found/expired/revoked states instead of raw errors.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/privycredit/privycredit/share"
	"github.com/privycredit/privycredit/store"
	"github.com/privycredit/privycredit/types"
)

type Server struct {
	r        *gin.Engine
	resolver *share.Resolver
	store    *store.Store // optional; reminders and user endpoints need it
	logger   zerolog.Logger
}

func NewServer(resolver *share.Resolver, st *store.Store, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		r:        r,
		resolver: resolver,
		store:    st,
		logger:   logger.With().Str("module", "httpapi").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("verification api listening")
	return s.r.Run(addr)
}

// Handler exposes the underlying engine for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.r.GET("/verify/:token", s.handleVerify)
	s.r.POST("/shares", s.handleCreateShare)

	if s.store != nil {
		s.r.POST("/reminders", s.handleCreateReminder)
		s.r.GET("/reminders", s.handleListReminders)
	}
}

func (s *Server) handleVerify(c *gin.Context) {
	token := c.Param("token")
	verifier := c.Query("verifier")

	view, err := s.resolver.Resolve(c.Request.Context(), token, verifier)
	if err != nil {
		s.writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// writeResolveError renders the terminal verification states. Each carries
// status no-apto and a machine-readable code; nothing about the underlying
// proof leaks, not even through the error path.
func (s *Server) writeResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": types.StatusNoApto, "code": "NOT_FOUND"})
	case errors.Is(err, types.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"status": types.StatusNoApto, "code": "EXPIRED"})
	case errors.Is(err, types.ErrRevoked):
		c.JSON(http.StatusGone, gin.H{"status": types.StatusNoApto, "code": "REVOKED"})
	default:
		s.logger.Warn().Err(err).Msg("verification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": types.StatusNoApto, "code": "UNAVAILABLE"})
	}
}

func (s *Server) handleCreateShare(c *gin.Context) {
	var req struct {
		ProofID string `json:"proof_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_JSON"})
		return
	}
	if req.ProofID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "proof_id is required"})
		return
	}
	proofID := common.HexToHash(req.ProofID)

	// grants are only minted for proofs the store actually holds
	if s.store != nil {
		if _, err := s.store.GetProof(c.Request.Context(), proofID); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
			return
		}
	}

	grant, url, err := s.resolver.CreateShareLink(c.Request.Context(), proofID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("share link creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      grant.Token,
		"url":        url,
		"expires_at": grant.ExpiresAt,
	})
}

func (s *Server) handleCreateReminder(c *gin.Context) {
	var req struct {
		WalletAddress string    `json:"wallet_address"`
		RemindAt      time.Time `json:"remind_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_JSON"})
		return
	}
	if !common.IsHexAddress(req.WalletAddress) || req.RemindAt.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "wallet_address and remind_at are required"})
		return
	}

	user, err := s.store.UpsertUser(c.Request.Context(), common.HexToAddress(req.WalletAddress))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
		return
	}
	reminder, err := s.store.CreateReminder(c.Request.Context(), user.ID, req.RemindAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        reminder.ID,
		"remind_at": reminder.RemindAt,
		"status":    reminder.Status,
	})
}

func (s *Server) handleListReminders(c *gin.Context) {
	walletHex := c.Query("wallet")
	if !common.IsHexAddress(walletHex) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "wallet is required"})
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), common.HexToAddress(walletHex))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"items": []any{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
		return
	}

	reminders, err := s.store.ListReminders(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "UNAVAILABLE"})
		return
	}
	items := make([]gin.H, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, gin.H{
			"id":        r.ID,
			"remind_at": r.RemindAt,
			"status":    r.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
