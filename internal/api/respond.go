package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errMalformedBody はリクエストボディがJSONとして解釈できないことを表します
var errMalformedBody = errors.New("malformed request body")

type errorResponse struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError はエラーの種類をHTTPステータスに対応付けて返します
// 500の場合は内部のエラー内容をクライアントに返しません
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors

	status := http.StatusInternalServerError
	detail := "Internal server error"
	switch {
	case errors.Is(err, errMalformedBody):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNotFound):
		status, detail = http.StatusNotFound, err.Error()
	case errors.Is(err, model.ErrInvariantViolation):
		status, detail = http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &validationErrs):
		status, detail = http.StatusUnprocessableEntity, describeValidation(validationErrs)
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondJSON(w, status, errorResponse{Detail: detail})
}

func describeValidation(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// decodeAndValidate はJSONボディを読み込み、validateタグで検証します
func decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return validate.Struct(dst)
}

// pathID はURLパスの数値IDを取り出します
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, model.ErrInvariantViolation)
	}
	return id, nil
}

// queryFloat は任意のクエリパラメータを数値として読み込みます。未指定ならnilを返します
func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, model.ErrInvariantViolation)
	}
	return &v, nil
}
