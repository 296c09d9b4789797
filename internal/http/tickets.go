package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/itamdash/internal/auth"
	"github.com/example/itamdash/internal/export"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

func bindTicketFilter(c *gin.Context) (pipeline.TicketFilter, bool) {
	var f pipeline.TicketFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f, true
}

func (s *Server) listTickets(c *gin.Context) {
	f, valid := bindTicketFilter(c)
	if !valid {
		return
	}
	q := pipeline.TicketQuery{
		Filter:  f,
		Page:    queryInt(c, "page", 0),
		PerPage: queryInt(c, "perPage", pipeline.DefaultPerPage),
	}
	res, err := s.svc.TicketView(c.Request.Context(), auth.ViewerFrom(c), c.Query("view"), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

func (s *Server) ticketStats(c *gin.Context) {
	f, valid := bindTicketFilter(c)
	if !valid {
		return
	}
	res, err := s.svc.TicketStats(c.Request.Context(), auth.ViewerFrom(c), c.Query("view"), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

func (s *Server) exportTickets(c *gin.Context) {
	f, valid := bindTicketFilter(c)
	if !valid {
		return
	}
	res, err := s.svc.ExportTickets(c.Request.Context(), auth.ViewerFrom(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	now := s.clock.Now()
	switch c.DefaultQuery("format", "tickets") {
	case "tickets":
		s.sendCSV(c, res.Stale, export.TicketFilename("tickets", f, now), func(w io.Writer) error {
			return export.WriteTickets(w, res.Data, now)
		})
	case "stats":
		s.sendCSV(c, res.Stale, export.Filename("ticket_statistics", now), func(w io.Writer) error {
			return export.WriteStats(w, res.Data, now)
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be tickets or stats"})
	}
}

func (s *Server) createTicket(c *gin.Context) {
	var in models.TicketInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ticket, err := s.svc.CreateTicket(c.Request.Context(), auth.ViewerFrom(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (s *Server) updateTicket(c *gin.Context) {
	var upd models.TicketUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ticket, err := s.svc.UpdateTicket(c.Request.Context(), auth.ViewerFrom(c), c.Param("id"), upd)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
