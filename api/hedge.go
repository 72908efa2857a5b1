package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banachtech/pathpricer/data"
	"github.com/banachtech/pathpricer/db"
	"github.com/banachtech/pathpricer/hedging"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/gin-gonic/gin"
)

type marketDataPoint struct {
	Id    string  `json:"id" binding:"required"`
	Date  string  `json:"date" binding:"required"`
	Value float64 `json:"value" binding:"required,gt=0"`
}

type hedgeRequest struct {
	MarketData []marketDataPoint `json:"market_data" binding:"required,min=1,dive"`
}

type hedgeResponse struct {
	RunID   uint            `json:"run_id,omitempty"`
	States  []hedging.State `json:"states"`
	Summary hedging.Summary `json:"summary"`
}

func (req hedgeRequest) feeds() ([]data.Feed, error) {
	values := make([]data.ShareValue, len(req.MarketData))
	for i, p := range req.MarketData {
		date, err := data.ParseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("market data %d: %w", i, err)
		}
		values[i] = data.ShareValue{Id: p.Id, DateOfPrice: date, Value: p.Value}
	}
	return data.Feeds(values), nil
}

// hedge backtests the configured option against the posted market data. Each run
// uses a fresh pricer so results do not depend on earlier requests.
func (server *Server) hedge(c *gin.Context) {
	var req hedgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	feeds, err := req.feeds()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	params, err := server.config.HedgingParams(data.Underlyings(feeds))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	p, err := pricer.New(server.params, pricer.WithLogger(server.logger))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	sim, err := hedging.New(params, p, hedging.WithLogger(server.logger))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	start := time.Now()
	states, err := sim.Run(c.Request.Context(), feeds)
	server.metrics.observe("hedge", start)
	if err != nil {
		status := pricingStatus(err)
		if errors.Is(err, data.ErrMissingSpot) {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, errorResponse(err))
		return
	}

	resp := hedgeResponse{States: states, Summary: hedging.Summarize(states)}
	if server.store != nil {
		run := db.NewRun(server.pricer.Info().Payoff, params.Underlyings, server.params.Samples, states, resp.Summary)
		if err := server.store.CreateRun(c, run); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
			return
		}
		resp.RunID = run.ID
	}
	c.JSON(http.StatusOK, resp)
}

type getHedgeRequest struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

func (server *Server) getHedge(c *gin.Context) {
	if server.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse(errors.New("persistence is not configured")))
		return
	}
	var req getHedgeRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	run, err := server.store.GetRun(c, req.ID)
	if err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	states := run.HedgingStates()
	c.JSON(http.StatusOK, hedgeResponse{RunID: run.ID, States: states, Summary: hedging.Summarize(states)})
}
