package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/hydrahost/internal/api/models"
	"github.com/jroosing/hydrahost/internal/errs"
)

func (h *Handler) requireDNS(c *gin.Context) (RecordManager, bool) {
	dns := h.GetDNS()
	if dns == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "dns server not configured"})
		return nil, false
	}
	return dns, true
}

// ListDNSRecords godoc
// @Summary List DNS records
// @Description Returns the zones and address records the DNS server answers from
// @Tags dns
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.DNSRecordsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dns/records [get]
func (h *Handler) ListDNSRecords(c *gin.Context) {
	dns, ok := h.requireDNS(c)
	if !ok {
		return
	}
	store := dns.Store()
	resp := models.DNSRecordsResponse{
		Server:  dns.Name(),
		Mode:    string(store.Mode()),
		Zones:   []models.DNSZone{},
		Records: []models.DNSRecord{},
	}
	for _, z := range store.Zones() {
		resp.Zones = append(resp.Zones, models.DNSZone{Name: z.Name, Authoritative: z.Authoritative})
	}
	for _, r := range store.Records() {
		resp.Records = append(resp.Records, models.DNSRecord{Name: r.Name, Type: r.Type.String(), Address: r.Address.String()})
	}
	resp.Count = len(resp.Records)
	c.JSON(http.StatusOK, resp)
}

// AddDNSRecord godoc
// @Summary Add a DNS record
// @Description Adds or replaces an A or AAAA record; the type follows the address family
// @Tags dns
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param record body models.AddDNSRecordRequest true "Record to add"
// @Success 201 {object} models.DNSRecordOperationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dns/records [post]
func (h *Handler) AddDNSRecord(c *gin.Context) {
	dns, ok := h.requireDNS(c)
	if !ok {
		return
	}
	var req models.AddDNSRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := dns.AddRecord(name, req.Address); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		c.JSON(status, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, models.DNSRecordOperationResponse{
		Message: "DNS record added successfully",
		Name:    name,
		Address: strings.TrimSpace(req.Address),
	})
}

// DeleteDNSRecord godoc
// @Summary Delete DNS records
// @Description Removes every record of a name
// @Tags dns
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "Record name"
// @Success 200 {object} models.DNSRecordOperationResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dns/records/{name} [delete]
func (h *Handler) DeleteDNSRecord(c *gin.Context) {
	dns, ok := h.requireDNS(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if !dns.RemoveRecord(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "DNS record not found: " + name})
		return
	}
	c.JSON(http.StatusOK, models.DNSRecordOperationResponse{Message: "DNS record removed successfully", Name: name})
}
