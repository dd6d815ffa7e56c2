package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"
)

type errorBody struct {
	Code    apperr.Kind    `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err as {"code","message","data":{...,"status"}}.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data["status"] = e.Status
	writeJSON(w, e.Status, errorBody{Code: e.Kind, Message: e.Message, Data: data})
}

// decodeError turns body decoding and validation failures into invalid_request errors.
func decodeError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.TrimPrefix(fe.Namespace(), "quoteRequest."))
		}
		return apperr.InvalidRequest("Invalid request body").With("fields", fields).Wrap(err)
	}
	if errors.Is(err, io.EOF) {
		return apperr.InvalidRequest("Request body is empty").Wrap(err)
	}
	return apperr.InvalidRequest("Malformed JSON body").Wrap(err)
}
