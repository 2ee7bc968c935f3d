package api

import (
	"net/http"

	"github.com/rohanthewiz/rweb"
)

// APIResponse provides a consistent JSON response structure for all API
// endpoints. Success responses include data, error responses an error
// message.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeSuccess sends a successful JSON response with data.
func writeSuccess(ctx rweb.Context, status int, data interface{}) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: true, Data: data})
}

// writeError sends an error JSON response.
func writeError(ctx rweb.Context, status int, message string) error {
	ctx.SetStatus(status)
	return ctx.WriteJSON(APIResponse{Success: false, Error: message})
}

// GetCurrentUserGUID returns the authenticated user's GUID from the request
// context, or "" when unauthenticated.
func GetCurrentUserGUID(ctx rweb.Context) string {
	guid, _ := ctx.Get("user_guid").(string)
	return guid
}

// Health handles GET /api/v1/health. The device sync client pings it before
// doing real work.
func Health(ctx rweb.Context) error {
	return writeSuccess(ctx, http.StatusOK, map[string]string{"status": "ok"})
}
