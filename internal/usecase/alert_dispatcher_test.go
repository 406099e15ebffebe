package usecase_test

import (
	"context"
	"testing"
	"time"

	usecasemock "github.com/riskibarqy/faultline/internal/mocks/usecase"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/stretchr/testify/mock"
)

func TestAlertDispatcher_Dispatch_DeliversAndFillsIdentity(t *testing.T) {
	t.Parallel()

	sink := usecasemock.NewAlertSink(t)
	dispatcher, err := usecase.NewAlertDispatcher(sink, 2, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.Close()

	delivered := make(chan usecase.Alert, 1)
	sink.
		On("Send", mock.Anything, mock.AnythingOfType("usecase.Alert")).
		Run(func(args mock.Arguments) { delivered <- args.Get(1).(usecase.Alert) }).
		Return(nil).
		Once()

	dispatcher.Dispatch(context.Background(), usecase.Alert{
		Kind:     "breaker_opened",
		Severity: usecase.SeverityWarning,
		Subject:  "payments",
		Message:  "circuit breaker payments opened",
	})

	select {
	case got := <-delivered:
		if got.ID == "" {
			t.Fatal("expected dispatcher to fill the alert id")
		}
		if got.At.IsZero() {
			t.Fatal("expected dispatcher to stamp the alert time")
		}
		if got.Kind != "breaker_opened" || got.Subject != "payments" {
			t.Fatalf("unexpected alert: kind=%s subject=%s", got.Kind, got.Subject)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not delivered")
	}
}

func TestAlertDispatcher_Dispatch_DropsWhenPoolSaturated(t *testing.T) {
	t.Parallel()

	sink := usecasemock.NewAlertSink(t)
	dispatcher, err := usecase.NewAlertDispatcher(sink, 1, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	sink.
		On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).
		Once()

	ctx := context.Background()
	dispatcher.Dispatch(ctx, usecase.Alert{Kind: "breaker_opened", Subject: "payments"})
	<-started

	// The only worker is busy; a non-blocking pool drops this one.
	dispatcher.Dispatch(ctx, usecase.Alert{Kind: "breaker_opened", Subject: "search"})

	close(release)
}

func TestAlertDispatcher_NilSinkIsQuiet(t *testing.T) {
	t.Parallel()

	dispatcher, err := usecase.NewAlertDispatcher(nil, 0, nil, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer dispatcher.Close()

	dispatcher.Dispatch(context.Background(), usecase.Alert{Kind: "breaker_opened"})
}
