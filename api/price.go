package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banachtech/pathpricer/pricer"
	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/mat"
)

type priceRequest struct {
	Past                  [][]float64 `json:"past" binding:"required,min=1"`
	Time                  *float64    `json:"time" binding:"required,gte=0"`
	MonitoringDateReached bool        `json:"monitoring_date_reached"`
}

// pastMatrix stacks the rows of a JSON history, which must all have the same length.
func pastMatrix(rows [][]float64) (*mat.Dense, error) {
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%w: empty row", pricer.ErrInvalidHistory)
	}
	m := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d prices, want %d", pricer.ErrInvalidHistory, i, len(r), cols)
		}
		m.SetRow(i, r)
	}
	return m, nil
}

// pricingStatus maps pricing errors to HTTP status codes.
func pricingStatus(err error) int {
	switch {
	case errors.Is(err, pricer.ErrInvalidHistory):
		return http.StatusBadRequest
	case errors.Is(err, pricer.ErrNonPositiveSpot):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (server *Server) price(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	past, err := pastMatrix(req.Past)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	start := time.Now()
	res, err := server.pricer.PriceAndDeltas(past, *req.Time, req.MonitoringDateReached)
	server.metrics.observe("price", start)
	if err != nil {
		c.AbortWithStatusJSON(pricingStatus(err), errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (server *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, server.pricer.Info())
}
