package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/itamdash/internal/auth"
	"github.com/example/itamdash/internal/export"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

func assetQuery(c *gin.Context) pipeline.AssetQuery {
	return pipeline.AssetQuery{
		Filter:  pipeline.AssetFilter{Search: c.Query("search"), Filter: c.DefaultQuery("filter", pipeline.All)},
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "perPage", pipeline.DefaultPerPage),
	}
}

func (s *Server) listHardware(c *gin.Context) {
	res, err := s.svc.HardwareView(c.Request.Context(), auth.ViewerFrom(c), assetQuery(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

func (s *Server) hardwareStats(c *gin.Context) {
	res, err := s.svc.InventoryStats(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

func (s *Server) exportHardware(c *gin.Context) {
	f := assetQuery(c).Filter
	res, idx, err := s.svc.ExportHardware(c.Request.Context(), auth.ViewerFrom(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	var tokens []string
	if !pipeline.IsAll(f.Filter) {
		tokens = append(tokens, f.Filter)
	}
	s.sendCSV(c, res.Stale, export.Filename("hardware", s.clock.Now(), tokens...), func(w io.Writer) error {
		return export.WriteHardware(w, res.Data, idx)
	})
}

func (s *Server) listSoftware(c *gin.Context) {
	res, err := s.svc.SoftwareView(c.Request.Context(), auth.ViewerFrom(c), assetQuery(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

func (s *Server) listUsers(c *gin.Context) {
	res, err := s.svc.Users(c.Request.Context(), auth.ViewerFrom(c), c.Query("search"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, gin.H{"users": res.Data})
}

func (s *Server) myAssets(c *gin.Context) {
	res, err := s.svc.UserAssets(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, gin.H{"assets": res.Data})
}

func (s *Server) unassignedAssets(c *gin.Context) {
	res, err := s.svc.UnassignedAssets(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, gin.H{"assets": res.Data})
}

func (s *Server) assignmentStats(c *gin.Context) {
	res, err := s.svc.AssignmentStats(c.Request.Context(), auth.ViewerFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, res, res.Data)
}

type assignmentBody struct {
	UserID       string   `json:"userId"`
	MACAddress   string   `json:"macAddress"`
	MACAddresses []string `json:"macAddresses"`
}

func (b assignmentBody) macs() []string {
	macs := append([]string(nil), b.MACAddresses...)
	if b.MACAddress != "" {
		macs = append(macs, b.MACAddress)
	}
	return macs
}

func (s *Server) assign(c *gin.Context) {
	var body assignmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.svc.Assign(c.Request.Context(), auth.ViewerFrom(c), body.UserID, body.macs()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeAssignment(c *gin.Context) {
	var body assignmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.svc.Remove(c.Request.Context(), auth.ViewerFrom(c), body.UserID, body.MACAddress); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) bulkAssign(c *gin.Context) {
	var body struct {
		Assignments []models.Assignment `json:"assignments"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.svc.BulkAssign(c.Request.Context(), auth.ViewerFrom(c), body.Assignments); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func alertParams(c *gin.Context) itam.AlertParams {
	return itam.AlertParams{
		Days:     queryInt(c, "days", 30),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", pipeline.DefaultPerPage),
		Severity: c.DefaultQuery("severity", pipeline.All),
	}
}

func (s *Server) warrantyAlerts(c *gin.Context) {
	res, err := s.svc.WarrantyAlerts(c.Request.Context(), auth.ViewerFrom(c), alertParams(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	body := gin.H{"alerts": res.Data.Alerts, "summary": res.Data.Summary}
	if res.Data.Pagination != nil {
		body["pagination"] = res.Data.Pagination
	}
	respond(c, res, body)
}

func (s *Server) exportWarranty(c *gin.Context) {
	p := alertParams(c)
	p.Page, p.Limit = 1, itam.FullFetchLimit
	res, err := s.svc.WarrantyAlerts(c.Request.Context(), auth.ViewerFrom(c), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	var tokens []string
	if !pipeline.IsAll(p.Severity) {
		tokens = append(tokens, p.Severity)
	}
	s.sendCSV(c, res.Stale, export.Filename("warranty_alerts", s.clock.Now(), tokens...), func(w io.Writer) error {
		return export.WriteWarranty(w, res.Data.Alerts)
	})
}

func (s *Server) telemetry(c *gin.Context) {
	mac := c.Param("mac")
	res, err := s.svc.Telemetry(c.Request.Context(), auth.ViewerFrom(c), mac)
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.Data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry reported for " + mac})
		return
	}
	respond(c, res, res.Data)
}
