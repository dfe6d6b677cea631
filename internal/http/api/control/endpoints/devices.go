package endpoints

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/control/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

type Devices interface {
	PushTokens(ctx context.Context) ([]model.PushToken, error)
}

type DeviceController struct {
	devices Devices
}

// DeviceModule mounts the registered device listing
func DeviceModule(devices Devices) api.Module {
	ctl := &DeviceController{devices: devices}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/devices", ctl.listDevices)
	})
}

func (d *DeviceController) listDevices(ctx *gin.Context, _ string) (any, *api.APIError) {
	tokens, err := d.devices.PushTokens(ctx.Request.Context())
	if errors.Is(err, service.ErrNoDatabase) {
		return nil, api.NewError(http.StatusServiceUnavailable, "push tokens are not stored on this server")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to list push tokens")
		return nil, api.NewError(http.StatusInternalServerError, "could not list devices")
	}

	out := make([]packets.PushTokenResponse, 0, len(tokens))
	for _, pt := range tokens {
		out = append(out, packets.PushTokenResponse{
			ID:               pt.ID,
			Token:            pt.Token,
			DeviceIdentifier: pt.DeviceIdentifier,
			UpdatedAt:        pt.UpdatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
