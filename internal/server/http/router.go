package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gpgvault/internal/logging"
	"github.com/dmitrijs2005/gpgvault/internal/server/admin"
	"github.com/dmitrijs2005/gpgvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/gpgvault/internal/server/services"
)

// Rate budgets per client IP. Auth endpoints are tighter because they are the
// brute-force surface.
const (
	authRateLimit = 5
	apiRateLimit  = 30
	rateWindow    = time.Minute
)

// Handler holds the services the REST surface dispatches to.
type Handler struct {
	users  *services.UserService
	gpg    *services.GPGService
	admin  *admin.Engine
	logger logging.Logger
}

// NewHandler wires the REST surface to its services.
func NewHandler(users *services.UserService, gpg *services.GPGService, adm *admin.Engine, logger logging.Logger) *Handler {
	return &Handler{users: users, gpg: gpg, admin: adm, logger: logger.With("module", "http")}
}

// Router builds the gin engine with all routes, auth middleware, and rate
// limits attached.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	authLimiter := ratelimit.NewMemoryLimiter(authRateLimit, rateWindow)
	apiLimiter := ratelimit.NewMemoryLimiter(apiRateLimit, rateWindow)

	users := r.Group("/users")
	{
		users.POST("/register", rateLimit(authLimiter), h.register)
		users.POST("/login", rateLimit(authLimiter), h.login)
		users.GET("/profile", rateLimit(apiLimiter), h.sessionAuth(), h.profile)
	}

	gpg := r.Group("/gpg", rateLimit(apiLimiter), h.sessionAuth())
	{
		gpg.POST("/sign", h.sign)
		gpg.POST("/verify", h.verify)
		gpg.POST("/encrypt", h.encrypt)
		gpg.POST("/decrypt", h.decrypt)
	}

	adminAuth := r.Group("/admin/auth")
	{
		adminAuth.POST("/challenge", rateLimit(authLimiter), h.adminChallenge)
		adminAuth.POST("/verify", rateLimit(authLimiter), h.adminVerify)
		adminAuth.GET("/info", rateLimit(apiLimiter), h.adminAuth(), h.adminInfo)
	}

	return r
}
