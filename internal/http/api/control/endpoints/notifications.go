package endpoints

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/control/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event)
}

type NotificationController struct {
	dispatcher Dispatcher
}

// NotificationModule mounts the endpoint devices report taps through
func NotificationModule(dispatcher Dispatcher) api.Module {
	ctl := &NotificationController{dispatcher: dispatcher}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/notifications/events", ctl.reportEvent)
	})
}

func (n *NotificationController) reportEvent(ctx *gin.Context, _ string) (any, *api.APIError) {
	var request packets.NotificationEventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	report := notify.Report{Kind: request.Kind, Prayer: request.Prayer, Type: request.Type}
	ev, err := report.Event()
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	// listeners may rebuild the day, which must outlive the request
	n.dispatcher.Dispatch(context.WithoutCancel(ctx.Request.Context()), ev)
	return gin.H{"dispatched": string(ev.Kind)}, nil
}
