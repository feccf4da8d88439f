package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/caregiver-api/internal/handler"
	"github.com/jwalitptl/caregiver-api/internal/middleware"
	"github.com/jwalitptl/caregiver-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	authH   Handler
	certH   Handler
	rulesH  Handler
	healthH *handler.HealthHandler
}

func New(
	auth *middleware.AuthMiddleware,
	authH Handler,
	certH Handler,
	rulesH Handler,
	healthH *handler.HealthHandler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	registerValidations()

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   config.RateLimitRPS,
		Burst: config.RateLimitBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:  engine,
		auth:    auth,
		authH:   authH,
		certH:   certH,
		rulesH:  rulesH,
		healthH: healthH,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health/live", r.healthH.Live)
	r.engine.GET("/health/ready", r.healthH.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.authH.RegisterRoutes(api)

	authed := api.Group("")
	authed.Use(r.auth.Authenticate())
	r.certH.RegisterRoutes(authed)
	r.rulesH.RegisterRoutes(authed)
}

func (r *Router) Run(port int) error {
	return r.engine.Run(fmt.Sprintf(":%d", port))
}

// registerValidations wires struct-level checks the tag grammar cannot
// express: a certification names its type XOR carries a custom name.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(model.CreateCertificationRequest)
		hasType := req.TypeID != nil
		hasName := req.CustomName != nil && *req.CustomName != ""
		if hasType == hasName {
			sl.ReportError(req.CustomName, "custom_name", "CustomName", "type_or_custom_name", "")
		}
	}, model.CreateCertificationRequest{})
}
