package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hirezen/stageflow/pkg/channels/gochannel"
	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/events"
	"github.com/hirezen/stageflow/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() notification.Request {
	return notification.Request{
		CandidateID:   "cand-1",
		Type:          "stage_change",
		OldStage:      "written_test",
		NewStage:      "demo_slot",
		OldStageLabel: "Written Test",
		NewStageLabel: "Demo Slot Booking",
	}
}

func TestHTTPDispatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantID     string
		wantErr    bool
		wantFailed bool
	}{
		{name: "returns email id", status: http.StatusOK, body: `{"success":true,"emailId":"email-9"}`, wantID: "email-9"},
		{name: "empty body", status: http.StatusAccepted, body: ``, wantID: ""},
		{name: "service reports failure", status: http.StatusOK, body: `{"success":false,"error":"no template"}`, wantErr: true, wantFailed: true},
		{name: "non 2xx status", status: http.StatusBadGateway, body: `upstream down`, wantErr: true, wantFailed: true},
		{name: "invalid json", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received notification.Request

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			dispatcher := notification.NewHTTPDispatcher(slog.Default(), server.URL,
				notification.WithHTTPClient(server.Client()),
			)

			id, err := dispatcher.Dispatch(context.Background(), sampleRequest())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantFailed, errors.Is(err, notification.ErrDispatchFailed))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}

			assert.Equal(t, sampleRequest(), received)
		})
	}
}

func TestHTTPDispatcher_Unreachable(t *testing.T) {
	t.Parallel()

	dispatcher := notification.NewHTTPDispatcher(slog.Default(), "http://127.0.0.1:1/send",
		notification.WithHTTPClient(&http.Client{Timeout: time.Second}),
	)

	_, err := dispatcher.Dispatch(context.Background(), sampleRequest())
	require.Error(t, err)
}

func TestEventBusDispatcher(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(slog.Default(), pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.NotificationRequested, 1)
	require.NoError(t, bus.Handle(events.NotificationRequestedType, func(_ context.Context, event any) error {
		received <- event.(*events.NotificationRequested)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	id, err := notification.NewEventBusDispatcher(bus).Dispatch(ctx, sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case event := <-received:
		assert.Equal(t, id, event.ID)
		assert.Equal(t, "cand-1", event.CandidateID)
		assert.Equal(t, "stage_change", event.Template)
		assert.Equal(t, "Demo Slot Booking", event.NewStageLabel)
	case <-time.After(5 * time.Second):
		t.Fatal("notification event was not published")
	}
}

func TestLogDispatcher(t *testing.T) {
	t.Parallel()

	id, err := notification.NewLogDispatcher(slog.Default()).Dispatch(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
