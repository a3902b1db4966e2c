package calendar

import (
	"context"
	"fmt"
	"time"

	"commonroom/models"
	"commonroom/utils"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarService adapts the Google Calendar API to the Service
// interface. Credentials are resolved by the injected client options; this
// adapter never reads key material itself.
type GoogleCalendarService struct {
	api *gcal.Service
}

// NewGoogleCalendarService builds the adapter from client options
// (typically option.WithCredentialsFile from config).
func NewGoogleCalendarService(ctx context.Context, opts ...option.ClientOption) (*GoogleCalendarService, error) {
	api, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar client: %w", err)
	}
	return &GoogleCalendarService{api: api}, nil
}

func (g *GoogleCalendarService) ListReservations(ctx context.Context, calendarID string, from, to time.Time) ([]models.Reservation, error) {
	call := g.api.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	var out []models.Reservation
	if err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, ev := range page.Items {
			res, err := eventToReservation(ev)
			if err != nil {
				utils.GetLogger().Warn("skipping unparsable calendar event",
					zap.String("calendarID", calendarID),
					zap.String("eventID", ev.Id),
					zap.Error(err))
				continue
			}
			out = append(out, res)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to list reservations for %s: %w", calendarID, err)
	}
	return out, nil
}

func (g *GoogleCalendarService) CreateReservation(ctx context.Context, calendarID string, draft models.ReservationDraft) (*models.Reservation, error) {
	event := &gcal.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start: &gcal.EventDateTime{
			DateTime: draft.Start.Format(time.RFC3339),
			TimeZone: draft.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: draft.End.Format(time.RFC3339),
			TimeZone: draft.TimeZone,
		},
	}
	created, err := g.api.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation on %s: %w", calendarID, err)
	}
	res, err := eventToReservation(created)
	if err != nil {
		return nil, fmt.Errorf("created reservation is unparsable: %w", err)
	}
	return &res, nil
}

func (g *GoogleCalendarService) DeleteReservation(ctx context.Context, calendarID string, reservationID string) error {
	if err := g.api.Events.Delete(calendarID, reservationID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete reservation %s on %s: %w", reservationID, calendarID, err)
	}
	return nil
}

func eventToReservation(ev *gcal.Event) (models.Reservation, error) {
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return models.Reservation{}, fmt.Errorf("event %s has no timed start/end", ev.Id)
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("bad start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("bad end time: %w", err)
	}
	return models.Reservation{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       start,
		End:         end,
		TimeZone:    ev.Start.TimeZone,
	}, nil
}
