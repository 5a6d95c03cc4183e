package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/isdelr/quill-be/internal/apperr"
	"github.com/isdelr/quill-be/internal/auth"
	"github.com/isdelr/quill-be/internal/models"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody     = apperr.New(apperr.ErrValidation, "Invalid request body")
	errMissingIdentity = apperr.New(apperr.ErrAuthentication, "Authentication required")
)

// decodeJSON reads a JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.New(apperr.ErrValidation, "Request body too large")
		}
		return errInvalidBody
	}
	return nil
}

// identityFrom returns the identity attached by auth.JWTMiddleware.
func identityFrom(r *http.Request) (models.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return models.Identity{}, errMissingIdentity
	}
	return id, nil
}

// parsePage reads limit, offset and order query parameters. Absent values
// are left zero for the service to default.
func parsePage(r *http.Request) (models.Page, error) {
	q := r.URL.Query()
	page := models.Page{Order: models.Order(q.Get("order"))}
	verr := &apperr.ValidationError{}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			verr.Add("limit", "limit must be a positive integer")
		}
		page.Limit = limit
	}
	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			verr.Add("offset", "offset must be a non-negative integer")
		}
		page.Offset = offset
	}
	return page, verr.OrNil()
}
