package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/usecase"
	xhttp "PumpRadar/pkg/http"
	xlogger "PumpRadar/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SnapshotService is the actor surface the HTTP API depends on.
type SnapshotService interface {
	Read(ctx context.Context) (*models.Snapshot, error)
	Write(ctx context.Context, patch models.SnapshotPatch) (*models.Snapshot, error)
	Refresh(ctx context.Context) (usecase.RefreshResult, error)
	VolumeRanking(ctx context.Context, n int) ([]models.VolumeChange, error)
	Signals(ctx context.Context, n int) (*models.SignalSet, error)
}

// RefreshResponse is the body of POST /api/refresh.
type RefreshResponse struct {
	Refreshed bool              `json:"refreshed"`
	Fetched   int               `json:"fetched"`
	Failed    int               `json:"failed"`
	Volume    bool              `json:"volume"`
	Snapshot  *models.Snapshot  `json:"snapshot"`
	Signals   *models.SignalSet `json:"signals,omitempty"`
}

type SnapshotEchoHandler struct {
	logger *xlogger.Logger
	svc    SnapshotService
}

func NewSnapshotEchoHandler(logger *xlogger.Logger, svc SnapshotService) *SnapshotEchoHandler {
	return &SnapshotEchoHandler{logger: logger.With("snapshot-api"), svc: svc}
}

func (h *SnapshotEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/snapshot", h.GetSnapshot)
	g.POST("/snapshot", h.PostSnapshot)
	g.POST("/refresh", h.PostRefresh)
	g.GET("/volume", h.Volume)
	g.GET("/signals", h.Signals)
}

// GetSnapshot serves the current snapshot, running a cycle first when asked.
// Reads never fail on a cold or unreachable store.
func (h *SnapshotEchoHandler) GetSnapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if req.Refresh {
		res, err := h.svc.Refresh(ctx)
		switch {
		case err == nil && res.Snapshot != nil:
			return h.snapshotResponse(c, res.Snapshot)
		case err != nil && !errors.Is(err, usecase.ErrEmptyCycle):
			h.logger.Warn("refresh on read failed", xlogger.Error(err))
		}
	}
	snap, err := h.svc.Read(ctx)
	if err != nil {
		h.logger.Error("snapshot read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return h.snapshotResponse(c, snap)
}

func (h *SnapshotEchoHandler) snapshotResponse(c echo.Context, snap *models.Snapshot) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if !snap.UpdatedAt.IsZero() {
		c.Response().Header().Set(echo.HeaderLastModified, snap.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	return xhttp.SuccessResponse(c, snap)
}

// PostSnapshot applies a partial write.
func (h *SnapshotEchoHandler) PostSnapshot(c echo.Context) error {
	patch := models.SnapshotPatch{}
	if err := c.Bind(&patch); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("malformed snapshot patch").WithError(err))
	}
	if patch.IsEmpty() {
		return xhttp.AppErrorResponse(c, mapError(usecase.ErrEmptyPatch))
	}
	if verrs := xhttp.ValidateStruct(c.Request().Context(), patch); len(verrs) > 0 {
		return xhttp.BadRequestResponse(c, verrs)
	}

	start := time.Now()
	snap, err := h.svc.Write(c.Request().Context(), patch)
	if err != nil {
		h.logger.Error("snapshot write failed", xlogger.Error(err), xlogger.Duration("duration_ms", time.Since(start)))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

// PostRefresh runs an ingest cycle, or reports the throttled snapshot.
func (h *SnapshotEchoHandler) PostRefresh(c echo.Context) error {
	res, err := h.svc.Refresh(c.Request().Context())
	if err != nil && !errors.Is(err, usecase.ErrEmptyCycle) {
		h.logger.Error("refresh failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	if res.Snapshot == nil {
		snap, rerr := h.svc.Read(c.Request().Context())
		if rerr != nil {
			return xhttp.AppErrorResponse(c, mapError(rerr))
		}
		res.Snapshot = snap
	}
	return xhttp.SuccessResponse(c, RefreshResponse{
		Refreshed: res.Refreshed,
		Fetched:   res.Fetched,
		Failed:    res.Failed,
		Volume:    res.Volume,
		Snapshot:  res.Snapshot,
		Signals:   res.Signals,
	})
}

func (h *SnapshotEchoHandler) Volume(c echo.Context) error {
	req := &models.VolumeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.svc.VolumeRanking(c.Request().Context(), req.N)
	if err != nil {
		h.logger.Error("volume ranking failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *SnapshotEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	set, err := h.svc.Signals(c.Request().Context(), req.N)
	if err != nil {
		h.logger.Error("signals failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, set)
}

// mapError converts usecase errors to their HTTP form.
func mapError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrEmptyPatch):
		return xhttp.NewAppError("ERR_REQUIRED", "patch", "at least one table is required", http.StatusBadRequest).WithError(err)
	case errors.Is(err, usecase.ErrPersist):
		return xhttp.UnavailableError("ERR_PERSIST", "snapshot could not be persisted").WithError(err)
	case errors.Is(err, usecase.ErrActorStopped):
		return xhttp.UnavailableError("ERR_UNAVAILABLE", "service is shutting down").WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.UnavailableError("ERR_TIMEOUT", "request timed out").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
