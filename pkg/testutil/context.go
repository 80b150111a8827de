package testutil

import (
	"net/http"

	id "organlink/pkg/domain"
	"organlink/pkg/requestcontext"
)

// WithHospital adds an acting hospital to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithHospital(req *http.Request, hospitalID id.HospitalID) *http.Request {
	ctx := requestcontext.WithHospitalID(req.Context(), hospitalID)
	return req.WithContext(ctx)
}
