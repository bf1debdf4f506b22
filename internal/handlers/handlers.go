package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"stockfolio/internal/database"
	"stockfolio/internal/models"
	"stockfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	store     database.Store
	portfolio *service.PortfolioService
	quotes    *service.QuoteService
	log       *logrus.Logger
}

func NewHandler(s database.Store, p *service.PortfolioService, q *service.QuoteService, log *logrus.Logger) *Handler {
	return &Handler{store: s, portfolio: p, quotes: q, log: log}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// respond maps err onto the envelope. Unexpected errors are logged and
// answered with failMsg only.
func (h *Handler) respond(c *gin.Context, err error, failMsg string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, database.ErrNotFound):
		fail(c, http.StatusNotFound, "Holding not found")
	default:
		h.log.WithField("request_id", c.GetString("request_id")).Errorf("%s: %v", failMsg, err)
		fail(c, http.StatusInternalServerError, failMsg)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	view, err := h.portfolio.View(c.Request.Context())
	if err != nil {
		h.respond(c, err, "Failed to fetch portfolio data")
		return
	}
	ok(c, view)
}

func (h *Handler) CreateHolding(c *gin.Context) {
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid holding body: %v", err)
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := req.toNewHolding()
	if err != nil {
		h.respond(c, err, "Failed to create portfolio holding")
		return
	}
	holding, err := h.store.CreateHolding(c.Request.Context(), in)
	if err != nil {
		h.respond(c, err, "Failed to create portfolio holding")
		return
	}
	ok(c, holding)
}

func (h *Handler) GetHolding(c *gin.Context) {
	id, good := holdingID(c)
	if !good {
		return
	}
	holding, err := h.store.GetHolding(c.Request.Context(), id)
	if err != nil {
		h.respond(c, err, "Failed to fetch portfolio holding")
		return
	}
	ok(c, holding)
}

func (h *Handler) UpdateHolding(c *gin.Context) {
	id, good := holdingID(c)
	if !good {
		return
	}
	var req holdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid holding patch: %v", err)
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.respond(c, err, "Failed to update portfolio holding")
		return
	}
	holding, err := h.store.UpdateHolding(c.Request.Context(), id, patch)
	if err != nil {
		h.respond(c, err, "Failed to update portfolio holding")
		return
	}
	ok(c, holding)
}

func (h *Handler) DeleteHolding(c *gin.Context) {
	id, good := holdingID(c)
	if !good {
		return
	}
	if err := h.store.DeleteHolding(c.Request.Context(), id); err != nil {
		h.respond(c, err, "Failed to delete portfolio holding")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Holding deleted successfully"})
}

// ImportHoldings bulk-creates holdings from an uploaded CSV file.
func (h *Handler) ImportHoldings(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	rows, skipped, err := ParseHoldingsCSV(file)
	if err != nil {
		h.log.Warnf("csv import rejected: %v", err)
		fail(c, http.StatusBadRequest, "Failed to parse CSV: "+err.Error())
		return
	}
	if len(rows) == 0 {
		fail(c, http.StatusBadRequest, "No valid portfolio data found in the file")
		return
	}

	created, err := h.store.CreateHoldings(c.Request.Context(), rows)
	if err != nil {
		h.respond(c, err, "Failed to import portfolio holdings")
		return
	}
	h.log.Infof("imported %d holdings, skipped %d rows", len(created), skipped)
	ok(c, gin.H{"imported": len(created), "skipped": skipped, "holdings": created})
}

// UpdateStocks refreshes quotes for the symbols in the request body.
func (h *Handler) UpdateStocks(c *gin.Context) {
	var req updateStocksRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbols == nil {
		fail(c, http.StatusBadRequest, "Symbols array is required")
		return
	}
	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		symbols = append(symbols, normalizeSymbol(s))
	}
	res, err := h.quotes.Refresh(c.Request.Context(), symbols)
	if err != nil {
		h.respond(c, err, "Failed to update stock data")
		return
	}
	ok(c, res)
}

// AutoUpdateStocks refreshes quotes for every held symbol.
func (h *Handler) AutoUpdateStocks(c *gin.Context) {
	holdings, err := h.store.ListHoldings(c.Request.Context())
	if err != nil {
		h.respond(c, err, "Failed to auto-update stock data")
		return
	}
	if len(holdings) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "No stocks to update",
			"data":    service.RefreshResult{Stocks: []models.Quote{}},
		})
		return
	}
	res, err := h.quotes.RefreshHeld(c.Request.Context())
	if err != nil {
		h.respond(c, err, "Failed to auto-update stock data")
		return
	}
	ok(c, res)
}

func holdingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid holding ID")
		return 0, false
	}
	return id, true
}
