package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelsmith/internal/api"
	"reelsmith/internal/logging"
	"reelsmith/internal/ops"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{OK: true})
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusOK, api.DaemonStatus{Running: true, PID: os.Getpid()})
		return
	}
	c.JSON(http.StatusOK, s.status(c.Request.Context()))
}

func (s *Server) handleSubmit(op ops.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := services.WithOperation(c.Request.Context(), string(op))
		logger := logging.WithContext(ctx, s.logger)

		desc, err := decodeRequest(c, op)
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			logger.Info("rejected malformed request", logging.Error(err))
			writeError(c, status, "malformed request: "+err.Error(), services.KindValidation)
			return
		}
		if err := ops.Validate(desc); err != nil {
			s.reject(c, logger, err)
			return
		}
		if err := s.checkMedia(ctx, desc); err != nil {
			s.reject(c, logger, err)
			return
		}

		jobID, err := s.createJob(c, logger, desc)
		if err != nil {
			s.reject(c, logger, err)
			return
		}
		if s.waker != nil {
			s.waker.Notify()
		}
		logger.Info("job accepted",
			logging.String(logging.FieldEventType, "job_accepted"),
			logging.String(logging.FieldJobID, jobID),
			logging.Strings("inputs", desc.MediaIDs()),
		)
		c.JSON(http.StatusAccepted, api.SubmitResponse{JobID: jobID})
	}
}

// createJob persists the job and its task. A job whose task cannot be
// enqueued is failed immediately.
func (s *Server) createJob(c *gin.Context, logger *slog.Logger, desc ops.Descriptor) (string, error) {
	ctx := c.Request.Context()
	requestID, _ := services.RequestIDFromContext(ctx)
	job, err := s.store.Create(ctx, queue.NewJob{ID: uuid.NewString(), Descriptor: desc, RequestID: requestID})
	if err != nil {
		return "", services.Wrap(services.ErrInternal, "submit", "create", "persist job", err)
	}
	payload, err := desc.Encode()
	if err == nil {
		_, err = s.store.Enqueue(ctx, job.ID, desc.Operation.TaskName(), payload)
	}
	if err != nil {
		enqueueErr := services.Wrap(services.ErrInternal, "submit", "enqueue", "queue task", err)
		if failErr := s.store.Fail(ctx, job.ID, enqueueErr.Error(), services.KindInternal); failErr != nil {
			logging.ErrorWithContext(logger, "failed to mark unqueued job failed", "job_fail_persist_failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(failErr),
			)
		}
		return "", enqueueErr
	}
	return job.ID, nil
}

func (s *Server) handleGet(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	job, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.reject(c, logging.WithContext(c.Request.Context(), s.logger), services.Wrap(services.ErrInternal, "query", "get", id, err))
		return
	}
	if job == nil {
		writeError(c, http.StatusNotFound, "job not found", "")
		return
	}
	c.JSON(http.StatusOK, api.FromJob(job))
}

func (s *Server) handleList(c *gin.Context) {
	var statuses []queue.Status
	for _, value := range c.QueryArray("status") {
		for part := range strings.SplitSeq(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := queue.ParseStatus(part)
			if !ok {
				writeError(c, http.StatusBadRequest, "unknown status "+strconv.Quote(part), services.KindValidation)
				return
			}
			statuses = append(statuses, status)
		}
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(c, http.StatusBadRequest, "limit must be a positive integer", services.KindValidation)
			return
		}
		limit = parsed
	}
	jobs, err := s.store.List(c.Request.Context(), limit, statuses...)
	if err != nil {
		s.reject(c, logging.WithContext(c.Request.Context(), s.logger), services.Wrap(services.ErrInternal, "query", "list", "", err))
		return
	}
	c.JSON(http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *Server) reject(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logger, "request failed", "request_failed",
			logging.Int("status", status),
			logging.Error(err),
		)
	} else {
		logger.Info("request rejected", logging.Int("status", status), logging.Error(err))
	}
	writeError(c, status, err.Error(), services.Kind(err))
}

func statusFor(err error) int {
	switch services.FaultOf(err) {
	case services.FaultClient:
		return http.StatusUnprocessableEntity
	case services.FaultUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, message, kind string) {
	c.JSON(status, api.ErrorResponse{Error: message, Kind: kind})
}
