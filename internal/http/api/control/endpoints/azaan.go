package endpoints

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/control/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

const maxAssetSize = 32 << 20

type Recording interface {
	ReplaceAsset(ctx context.Context, r io.Reader) (string, error)
	Play() error
	StopPlayback() error
	Playing() (bool, time.Duration)
}

type AzaanController struct {
	recording Recording
}

// AzaanModule mounts the recording upload and test playback endpoints
func AzaanModule(recording Recording) api.Module {
	ctl := &AzaanController{recording: recording}
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUT("/azaan", ctl.upload)
		c.GET("/azaan", ctl.status)
		c.POST("/azaan/play", ctl.play)
		c.DELETE("/azaan/play", ctl.stop)
	})
}

func (a *AzaanController) upload(ctx *gin.Context, subject string) (any, *api.APIError) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, "missing file")
	}
	if fileHeader.Size > maxAssetSize {
		return nil, api.NewError(http.StatusRequestEntityTooLarge, "file too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, "could not read file")
	}
	defer file.Close()

	location, err := a.recording.ReplaceAsset(ctx.Request.Context(), file)
	if errors.Is(err, service.ErrNoAudio) {
		return nil, api.NewError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("azaan upload rejected")
		return nil, api.NewError(http.StatusUnprocessableEntity, err.Error())
	}

	log.Info().Str("subject", subject).Str("location", location).Msg("azaan replaced")
	return packets.AssetResponse{Location: location}, nil
}

func (a *AzaanController) play(ctx *gin.Context, _ string) (any, *api.APIError) {
	if err := a.recording.Play(); err != nil {
		if errors.Is(err, service.ErrNoAudio) {
			return nil, api.NewError(http.StatusServiceUnavailable, err.Error())
		}
		return nil, api.NewError(http.StatusConflict, err.Error())
	}
	return gin.H{"playing": true}, nil
}

func (a *AzaanController) stop(ctx *gin.Context, _ string) (any, *api.APIError) {
	if err := a.recording.StopPlayback(); err != nil {
		return nil, api.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return gin.H{"playing": false}, nil
}

func (a *AzaanController) status(ctx *gin.Context, _ string) (any, *api.APIError) {
	playing, position := a.recording.Playing()
	return packets.PlaybackResponse{Playing: playing, Position: position.Seconds()}, nil
}
