package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api/public/packets"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
)

// PrayerTimes is what the prayer endpoints read from.
type PrayerTimes interface {
	Geo() praytime.Config
	Today() (praytime.Table, error)
	TableFor(date praytime.CalendarDate) (praytime.Table, error)
	Next() (schedule.Upcoming, schedule.Remaining, error)
}

type PrayerController struct {
	times PrayerTimes
}

// PrayerModule mounts the read-only /prayers endpoints
func PrayerModule(times PrayerTimes) api.Module {
	ctl := &PrayerController{times: times}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/prayers/today", ctl.today)
		c.GET("/prayers/next", ctl.next)
		c.GET("/prayers/:date", ctl.forDate)
	})
}

func (p *PrayerController) today(ctx *gin.Context, _ string) (any, *api.APIError) {
	table, err := p.times.Today()
	if err != nil {
		return nil, tableError(err)
	}
	return p.athanDay(table), nil
}

func (p *PrayerController) forDate(ctx *gin.Context, _ string) (any, *api.APIError) {
	date, err := praytime.ParseCalendarDate(ctx.Param("date"))
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	table, err := p.times.TableFor(date)
	if err != nil {
		return nil, tableError(err)
	}
	return p.athanDay(table), nil
}

func (p *PrayerController) next(ctx *gin.Context, _ string) (any, *api.APIError) {
	next, remaining, err := p.times.Next()
	if err != nil {
		return nil, tableError(err)
	}
	return packets.NextPrayerResponse{
		Name:     next.Name,
		Label:    next.Display,
		Time:     next.Time,
		At:       next.At.Format(time.RFC3339),
		Tomorrow: next.Tomorrow,
		Remaining: packets.RemainingResponse{
			Hours:   remaining.Hours,
			Minutes: remaining.Minutes,
			Seconds: remaining.Seconds,
		},
	}, nil
}

func tableError(err error) *api.APIError {
	if errors.Is(err, praytime.ErrComputationUndefined) {
		return api.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	log.Error().Err(err).Msg("prayer table failed")
	return api.NewError(http.StatusInternalServerError, "could not compute prayer times")
}

func (p *PrayerController) athanDay(table praytime.Table) model.AthanDay {
	geo := p.times.Geo()
	day := model.AthanDay{
		Date:     table.Date.String(),
		Timezone: geo.Timezone,
		Method:   string(geo.Method),
	}
	for _, m := range praytime.Markers() {
		clock, ok := table.Time(m)
		if !ok {
			continue
		}
		day.Prayers = append(day.Prayers, model.Prayer{
			Name:   string(m),
			Label:  schedule.DisplayName(string(m)),
			Time:   clock,
			Period: period(clock),
			Alarm:  m != praytime.Sunrise && m != praytime.Midnight,
		})
	}
	return day
}

func period(clock string) string {
	if clock >= "12:00" {
		return "PM"
	}
	return "AM"
}
