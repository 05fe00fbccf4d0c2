package api

import (
	"time"

	models "FeatCast/internal/domain/models"
	domrepo "FeatCast/internal/domain/repository"
	"FeatCast/internal/usecase"
	xhttp "FeatCast/pkg/http"
	xlogger "FeatCast/pkg/logger"
	"FeatCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// FeaturesEchoHandler exposes the feature engine over Echo.
type FeaturesEchoHandler struct {
	logger   *xlogger.Logger
	features *usecase.FeaturesUseCase
	bars     *usecase.BarsUseCase
}

func NewFeaturesEchoHandler(logger *xlogger.Logger, features *usecase.FeaturesUseCase, bars *usecase.BarsUseCase) *FeaturesEchoHandler {
	return &FeaturesEchoHandler{logger: logger, features: features, bars: bars}
}

func (h *FeaturesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/features", h.Features)
	g.GET("/series", h.Series)
	g.GET("/bars", h.Bars)
}

func (h *FeaturesEchoHandler) Features(c echo.Context) error {
	req := &models.FeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	res, err := h.features.GetFeatures(c.Request().Context(), usecase.GetFeaturesParams{
		Symbol:    util.NormalizeSymbol(req.Symbol),
		N:         req.N,
		Timeframe: tf,
	})
	if err != nil {
		h.logger.Error("features usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("not enough bars for symbol"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *FeaturesEchoHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	res, err := h.features.GetSeries(c.Request().Context(), usecase.GetSeriesParams{
		Symbol:    util.NormalizeSymbol(req.Symbol),
		Path:      req.Path,
		N:         req.N,
		Tail:      req.Tail,
		Timeframe: tf,
	})
	if err != nil {
		h.logger.Error("series usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("not enough bars for symbol"))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *FeaturesEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	now := time.Now().UTC()
	from := util.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, now)

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:    util.NormalizeSymbol(req.Symbol),
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("bars usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
