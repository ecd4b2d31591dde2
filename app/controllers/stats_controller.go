package controllers

import (
	"net/http"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/pkg/response"
	"github.com/sesamoshop/tienda/pkg/ws"
)

// activityLimit caps the activity endpoint at the last 20 entries.
const activityLimit = 20

type StatsController struct {
	catalog *services.CatalogService
	feed    *ws.Hub
}

func NewStatsController(catalog *services.CatalogService, feed *ws.Hub) *StatsController {
	return &StatsController{catalog: catalog, feed: feed}
}

// Stats returns the dashboard aggregates.
func (c *StatsController) Stats(w http.ResponseWriter, r *http.Request) {
	response.Success(w, c.catalog.Stats())
}

// Activity returns the recent activity log, newest first.
func (c *StatsController) Activity(w http.ResponseWriter, r *http.Request) {
	response.Success(w, c.catalog.Activity(activityLimit))
}

// Popular returns the top products panel.
func (c *StatsController) Popular(w http.ResponseWriter, r *http.Request) {
	response.Success(w, c.catalog.PopularProducts())
}

// Feed upgrades the connection to the live activity WebSocket.
func (c *StatsController) Feed(w http.ResponseWriter, r *http.Request) {
	ws.Upgrade(w, r, c.feed)
}
