package api

import (
	"strings"
	"time"

	models "DashPull/internal/domain/models"
	"DashPull/internal/usecase"
	xhttp "DashPull/pkg/http"
	xlogger "DashPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler exposes the data manager over HTTP. Degraded upstream
// data never turns into a non-200 response: the QueryResult envelope carries
// the source tier and failure reason instead.
type MarketEchoHandler struct {
	logger  *xlogger.Logger
	manager *usecase.DataManager
	started time.Time
}

func NewMarketEchoHandler(logger *xlogger.Logger, manager *usecase.DataManager) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, manager: manager, started: time.Now()}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/balance", h.Balance)
	g.GET("/positions", h.Positions)
	g.GET("/market-data", h.MarketData)
	g.GET("/market-data/multi", h.MultiSymbol)
	g.GET("/history", h.History)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/trading/statistics", h.TradingStats)
	g.GET("/status", h.Status)
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]any{
		"status":    "ok",
		"uptime_s":  int(time.Since(h.started).Seconds()),
		"timestamp": time.Now(),
	})
}

func (h *MarketEchoHandler) Balance(c echo.Context) error {
	res := h.manager.AccountBalance(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Positions(c echo.Context) error {
	res := h.manager.Positions(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) MarketData(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.manager.MarketData(c.Request().Context(), strings.ToUpper(req.Symbol))
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) MultiSymbol(c echo.Context) error {
	req := &models.MultiSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := make([]string, 0, 8)
	for _, s := range strings.Split(req.Symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return xhttp.BadRequestResponse(c, "symbols cannot be empty")
	}
	res := h.manager.MultiSymbolData(c.Request().Context(), symbols)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.manager.HistoricalData(c.Request().Context(), strings.ToUpper(req.Symbol), req.Interval, req.Limit)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Portfolio(c echo.Context) error {
	res := h.manager.PortfolioData(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) TradingStats(c echo.Context) error {
	res := h.manager.TradingStats(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.manager.Status())
}
