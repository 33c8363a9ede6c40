package analytics

import (
	"net/http"

	"github.com/angelmondragon/vistore-backend/api/responses"
	"github.com/angelmondragon/vistore-backend/internal/analytics"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

// AdminDashboard serves the admin overview computed from one read of each collection.
func AdminDashboard(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := service.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
