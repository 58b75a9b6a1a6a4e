package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
)

var iataRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

// RegisterValidators installs the custom binding tags. Call once before
// building the router.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iata", func(fl validator.FieldLevel) bool {
			return iataRe.MatchString(fl.Field().String())
		})
	}
}

func NewRouter(cfg config.HTTPConfig, flights *FlightHandler, bookings *BookingHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	flights.Register(v1.Group("/flights"), RateLimit(cfg.SearchRPS, cfg.SearchBurst))
	bookings.Register(v1.Group("/bookings"))

	return router
}
