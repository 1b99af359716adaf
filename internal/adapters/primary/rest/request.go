package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/validation"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// pathID reads a numeric mux path variable. Routes only match digits, so a
// failure here means the value overflows int64 and cannot name a record.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewError(domain.CodeReferenceNotFound, "ID %s doesn't exist", raw)
	}

	return id, nil
}

// decodePayload reads the request body and checks it against spec.
func decodePayload(w http.ResponseWriter, r *http.Request, spec validation.Spec) (validation.Payload, error) {
	payload, err := validation.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if err := validation.Validate(payload, spec); err != nil {
		return nil, err
	}

	return payload, nil
}

// checkIdentifier requires the payload id to equal the path id.
func checkIdentifier(pathID int64, payload validation.Payload) error {
	if bodyID := payload.Int("id"); bodyID != pathID {
		return domain.NewError(domain.CodeIdentifierMismatch,
			"Path id %d does not match payload id %d", pathID, bodyID)
	}

	return nil
}

// requireEmptyBody rejects DELETE requests that carry any body bytes.
func requireEmptyBody(r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	n, err := io.Copy(io.Discard, io.LimitReader(r.Body, 1))
	if err != nil {
		return domain.NewError(domain.CodeMalformedPayload, "Failed to read request body").WithCause(err)
	}

	if n > 0 {
		return domain.NewError(domain.CodeBodyNotAllowed, "DELETE requests must not carry a body")
	}

	return nil
}
