package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"commodity-pricing/core/importer"
	"commodity-pricing/internal/errors"
)

// handleSimulate handles POST /api/price-simulations/calculate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if !s.decode(w, r, &req) {
		return
	}

	in, err := req.Input()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.engine.SimulatePrice(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, NewSimulationResponse(result), http.StatusOK)
}

// handleBreakEven handles GET /api/break-even/current?year_month=YYYY-MM
func (s *Server) handleBreakEven(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.BreakEven(r.Context(), r.URL.Query().Get("year_month"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, NewBreakEvenResponse(report), http.StatusOK)
}

// handleImport handles POST /api/import/products
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !s.decode(w, r, &req) {
		return
	}

	var mapping importer.ColumnMapping
	if len(req.ColumnMapping) > 0 {
		merged, err := s.engine.Mapping().Merge(req.ColumnMapping)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		mapping = merged
	}

	summary, err := s.engine.ImportProducts(r.Context(), req.Rows, mapping)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, NewImportResponse(summary), http.StatusOK)
}

// decode reads a JSON body into dst and validates it. Numbers are kept as
// json.Number so spreadsheet cells and decimals survive without float rounding.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, "PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, string(errors.TypeParsing), "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, string(errors.TypeInvalidParam), validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

// fail writes the envelope for err; unexpected failures are logged
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if e, ok := errors.As(err); ok {
		message = e.Message
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal error"
	}
	writeError(w, errors.Code(err), message, status)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
