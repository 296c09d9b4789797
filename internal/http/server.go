package http

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/auth"
	"github.com/example/itamdash/internal/clock"
	"github.com/example/itamdash/internal/export"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/service"
)

// Server wraps the gin engine and collaborators needed to handle API requests.
type Server struct {
	Engine *gin.Engine
	svc    *service.DashboardService
	clock  clock.Clock
	log    zerolog.Logger
}

// NewServer constructs a new API server and registers routes.
func NewServer(svc *service.DashboardService, jwtSecret string, clk clock.Clock, log zerolog.Logger) *Server {
	if clk == nil {
		clk = clock.Real()
	}
	router := gin.New()
	router.Use(RequestLogger(log), Recoverer(log))
	srv := &Server{Engine: router, svc: svc, clock: clk, log: log}
	srv.registerRoutes(jwtSecret)
	return srv
}

func (s *Server) registerRoutes(secret string) {
	s.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.Engine.Group("/api", auth.Middleware(secret))
	admin := auth.RequireAdmin()

	api.GET("/tickets", s.listTickets)
	api.GET("/tickets/stats", s.ticketStats)
	api.GET("/tickets/export", s.exportTickets)
	api.POST("/tickets", s.createTicket)
	api.PATCH("/tickets/:id", admin, s.updateTicket)

	api.GET("/hardware", s.listHardware)
	api.GET("/hardware/stats", s.hardwareStats)
	api.GET("/hardware/export", s.exportHardware)
	api.GET("/software", s.listSoftware)

	api.GET("/users", admin, s.listUsers)
	api.GET("/assets/mine", s.myAssets)
	api.GET("/assignments/stats", admin, s.assignmentStats)
	api.GET("/assignments/unassigned", admin, s.unassignedAssets)
	api.POST("/assignments", admin, s.assign)
	api.DELETE("/assignments", admin, s.removeAssignment)
	api.POST("/assignments/bulk", admin, s.bulkAssign)

	api.GET("/alerts/warranty", s.warrantyAlerts)
	api.GET("/alerts/warranty/export", s.exportWarranty)
	api.GET("/telemetry/:mac", s.telemetry)
}

// fail maps service and upstream errors onto HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *service.ValidationError
	var apiErr *itam.APIError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, service.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer request"})
	case errors.Is(err, export.ErrNoRows):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"warning": "no data to export"})
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	case errors.Is(err, itam.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// respond writes a service result, flagging stale data in the headers.
func respond[T any](c *gin.Context, res service.Result[T], body any) {
	if res.Stale {
		c.Header("X-Data-Stale", "true")
		c.Header("X-Data-Stored-At", res.StoredAt.UTC().Format(http.TimeFormat))
	}
	c.JSON(http.StatusOK, body)
}

// sendCSV renders the export before writing headers so an empty export can
// still be reported as an error.
func (s *Server) sendCSV(c *gin.Context, stale bool, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		s.fail(c, err)
		return
	}
	if stale {
		c.Header("X-Data-Stale", "true")
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
