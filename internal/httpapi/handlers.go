package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"postgate/internal/api"
	"postgate/internal/logging"
	"postgate/internal/queue"
)

// Stable error codes returned in JSON error bodies.
const (
	codeStoreFailure      = "store_failure"
	codeNotFoundOrExpired = "not_found_or_expired"
	codeValidation        = "validation"
	codeNotFound          = "not_found"
	codeInvalidRequest    = "invalid_request"
	codeMethodNotAllowed  = "method_not_allowed"
)

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Pending(r.Context())
	if err != nil {
		s.writeStoreFailure(w, r, "list pending failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromQueueItems(items))
}

func (s *Server) handleDecision(to queue.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(mux.Vars(r)["id"])
		var err error
		if to == queue.StatusApproved {
			err = s.svc.ApproveAs(r.Context(), id, queue.ActorHTTP)
		} else {
			err = s.svc.RejectAs(r.Context(), id, queue.ActorHTTP)
		}
		switch {
		case err == nil:
			s.writeJSON(w, http.StatusOK, api.DecisionResponse{Success: true})
		case errors.Is(err, queue.ErrNotFoundOrExpired):
			s.writeJSON(w, http.StatusConflict, api.DecisionResponse{
				Error: queue.ErrNotFoundOrExpired.Error(),
				Code:  codeNotFoundOrExpired,
			})
		default:
			logging.ErrorWithContext(logging.WithContext(logging.WithItemID(r.Context(), id), s.logger),
				"decision failed", "http_store_failure",
				logging.String("requested", string(to)),
				logging.Error(err),
			)
			s.writeJSON(w, http.StatusInternalServerError, api.DecisionResponse{
				Error: queue.ErrStoreFailure.Error(),
				Code:  codeStoreFailure,
			})
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
					Error: "unknown status " + strings.TrimSpace(part),
					Code:  codeValidation,
					Field: "status",
				})
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := s.svc.List(r.Context(), statuses...)
	if err != nil {
		s.writeStoreFailure(w, r, "list items failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: api.FromQueueItems(items)})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	item, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeStoreFailure(w, r, "get item failed", err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, codeNotFound, "queue item not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: api.FromQueueItem(item)})
}

// maxTimeoutSeconds keeps the seconds-to-Duration conversion from wrapping.
const maxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body must be a JSON submission")
		return
	}

	if int64(req.TimeoutSeconds) > maxTimeoutSeconds {
		tooLong := &queue.ValidationError{Field: "timeout", Message: "exceeds the longest supported review window"}
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Error: tooLong.Error(),
			Code:  codeValidation,
			Field: tooLong.Field,
		})
		return
	}
	var opts []api.SubmitOption
	if req.TimeoutSeconds != 0 {
		opts = append(opts, api.WithTimeout(time.Duration(req.TimeoutSeconds)*time.Second))
	}
	item, err := s.svc.SubmitRaw(r.Context(), req.Content, req.Metadata, opts...)
	if err != nil {
		var validation *queue.ValidationError
		if errors.As(err, &validation) {
			s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
				Error: validation.Error(),
				Code:  codeValidation,
				Field: validation.Field,
			})
			return
		}
		s.writeStoreFailure(w, r, "submit failed", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.QueueItemResponse{Item: api.FromQueueItem(item)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeStoreFailure(w, r, "status failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusNotFound, codeNotFound, "no such endpoint")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
