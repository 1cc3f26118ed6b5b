package endpoints

import (
	"github.com/munashe04/buyza/pkg/server"
)

// RegisterAll registers all endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterMetricsEndpoint(srv)
	RegisterWebhookEndpoints(srv)
	RegisterAdminEndpoints(srv)
}
