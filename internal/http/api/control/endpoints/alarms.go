package endpoints

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/alarm"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/control/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/reschedule"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

// Alarms is the part of the service the operator endpoints drive.
type Alarms interface {
	Alarms() []model.AlarmEntry
	Pending(ctx context.Context) ([]model.Notification, error)
	State(ctx context.Context) (reschedule.State, error)
	DayKey(ctx context.Context) (string, bool, error)
	Rebuild(ctx context.Context) (reschedule.Result, error)
	CancelAll(ctx context.Context) error
	History(ctx context.Context, limit int) ([]model.AlarmEvent, error)
}

type AlarmController struct {
	alarms Alarms
}

// AlarmModule mounts all authenticated /alarms endpoints
func AlarmModule(alarms Alarms) api.Module {
	ctl := &AlarmController{alarms: alarms}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/alarms", ctl.listAlarms)
		c.GET("/alarms/state", ctl.getState)
		c.GET("/alarms/history", ctl.listHistory)
		c.POST("/alarms/rebuild", ctl.rebuild)
		c.DELETE("/alarms", ctl.cancelAll)
	})
}

func (a *AlarmController) listAlarms(ctx *gin.Context, _ string) (any, *api.APIError) {
	pending, err := a.alarms.Pending(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending notifications")
		return nil, api.NewError(http.StatusInternalServerError, "could not list pending alarms")
	}
	return packets.AlarmsResponse{Alarms: a.alarms.Alarms(), Pending: pending}, nil
}

func (a *AlarmController) getState(ctx *gin.Context, _ string) (any, *api.APIError) {
	state, err := a.alarms.State(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read trigger state")
		return nil, api.NewError(http.StatusInternalServerError, "could not read state")
	}
	key, _, err := a.alarms.DayKey(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read day key")
		return nil, api.NewError(http.StatusInternalServerError, "could not read state")
	}
	return packets.StateResponse{State: string(state), DayKey: key}, nil
}

func (a *AlarmController) listHistory(ctx *gin.Context, _ string) (any, *api.APIError) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, api.NewError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	events, err := a.alarms.History(ctx.Request.Context(), limit)
	if errors.Is(err, service.ErrNoDatabase) {
		return nil, api.NewError(http.StatusServiceUnavailable, "alarm history is not stored on this server")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to list alarm history")
		return nil, api.NewError(http.StatusInternalServerError, "could not list alarm history")
	}
	return events, nil
}

func (a *AlarmController) rebuild(ctx *gin.Context, subject string) (any, *api.APIError) {
	log.Info().Str("subject", subject).Msg("manual rebuild requested")

	res, err := a.alarms.Rebuild(ctx.Request.Context())
	switch {
	case errors.Is(err, alarm.ErrPermissionDenied):
		return nil, api.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, praytime.ErrComputationUndefined):
		return nil, api.NewError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		log.Error().Err(err).Msg("manual rebuild failed")
		return nil, api.NewError(http.StatusInternalServerError, "rebuild failed")
	}
	return packets.RebuildResponse{
		Day:     res.Day,
		Path:    res.Path,
		Skipped: res.Skipped,
		Alarms:  res.Alarms,
	}, nil
}

func (a *AlarmController) cancelAll(ctx *gin.Context, subject string) (any, *api.APIError) {
	if err := a.alarms.CancelAll(ctx.Request.Context()); err != nil {
		log.Error().Err(err).Msg("failed to cancel alarms")
		return nil, api.NewError(http.StatusInternalServerError, "could not cancel alarms")
	}
	log.Info().Str("subject", subject).Msg("all alarms cancelled")
	return gin.H{"cancelled": true}, nil
}
