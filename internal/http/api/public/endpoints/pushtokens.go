package endpoints

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/public/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

type PushTokens interface {
	RegisterPushToken(ctx context.Context, token string, deviceIdentifier *string) (model.PushToken, error)
}

type PushTokenController struct {
	tokens PushTokens
}

// PushTokenModule mounts the device registration endpoint
func PushTokenModule(tokens PushTokens) api.Module {
	ctl := &PushTokenController{tokens: tokens}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/expotoken", ctl.register)
	})
}

func (p *PushTokenController) register(ctx *gin.Context, _ string) (any, *api.APIError) {
	var request packets.RegisterPushTokenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	pt, err := p.tokens.RegisterPushToken(ctx.Request.Context(), request.Token, request.DeviceIdentifier)
	if errors.Is(err, service.ErrNoDatabase) {
		return nil, api.NewError(http.StatusServiceUnavailable, "push tokens are not stored on this server")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to store push token")
		return nil, api.NewError(http.StatusInternalServerError, "could not store push token")
	}

	log.Info().Int64("id", pt.ID).Msg("push token registered")
	return packets.PushTokenResponse{
		ID:               pt.ID,
		Token:            pt.Token,
		DeviceIdentifier: pt.DeviceIdentifier,
		UpdatedAt:        pt.UpdatedAt.Format(time.RFC3339),
	}, nil
}
