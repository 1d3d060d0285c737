package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/app"
	"dragonvpn-app/internal/config"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("POST /user/user", func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"id": 7, "telegram_id": 42})
	})
	mux.HandleFunc("GET /payments/user/7/pending", func(w http.ResponseWriter, r *http.Request) {
		write(w, []any{})
	})
	mux.HandleFunc("GET /services", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{
			{"id": 1, "name": "Пробный", "duration": 3, "price": "0", "is_active": true},
			{"id": 2, "name": "Месяц", "duration": 30, "price": "199", "is_active": true},
		})
	})
	mux.HandleFunc("GET /subscriptions", func(w http.ResponseWriter, r *http.Request) {
		write(w, []any{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, apiURL, initData string) {
	t.Helper()
	t.Setenv("API_BASE_URL", apiURL)
	t.Setenv("TELEGRAM_INIT_DATA", initData)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_ENV", "test")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCmd_Commands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"services", "subscription", "buy", "payments", "resume", "refund", "keys", "referrals", "gift", "watch", "serve"} {
		assert.True(t, names[want], want)
	}
}

func TestServicesCmd(t *testing.T) {
	srv := fakeBackend(t)
	setEnv(t, srv.URL, "query_id=AAE&user=%7B%22id%22%3A42%7D")

	out, err := execute(t, "services")
	require.NoError(t, err)
	assert.Contains(t, out, "ТАРИФ")
	assert.Contains(t, out, "Пробный")
	assert.Contains(t, out, "Бесплатно")
	assert.Contains(t, out, "Месяц")
}

func TestSubscriptionCmd_Empty(t *testing.T) {
	srv := fakeBackend(t)
	setEnv(t, srv.URL, "query_id=AAE&user=%7B%22id%22%3A42%7D")

	out, err := execute(t, "subscription")
	require.NoError(t, err)
	assert.Contains(t, out, "Нет активной подписки")
}

func TestCmd_NoTelegramUser(t *testing.T) {
	srv := fakeBackend(t)
	setEnv(t, srv.URL, "query_id=AAE")

	_, err := execute(t, "keys")
	assert.ErrorIs(t, err, app.ErrNoTelegramUser)
}

func TestCmd_ArgsValidated(t *testing.T) {
	_, err := execute(t, "buy")
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		store, closeStore, err := openStore(ctx, &config.Config{StorageDriver: "memory"})
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &storage.Memory{}, store)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := openStore(ctx, &config.Config{StorageDriver: "etcd"})
		assert.ErrorContains(t, err, "unknown storage driver")
	})
}

func TestUserMessage(t *testing.T) {
	err := &api.Error{StatusCode: http.StatusBadRequest, Message: "Неверный запрос"}
	assert.Equal(t, "Неверный запрос", userMessage(err))
	assert.Equal(t, assert.AnError.Error(), userMessage(assert.AnError))
}

func TestPrintOutcome(t *testing.T) {
	tests := []struct {
		name string
		e    event.Event
		want string
	}{
		{"Succeeded", event.Event{Kind: event.PaymentSucceeded, PaymentID: "p1"}, "Платёж p1 оплачен"},
		{"Canceled", event.Event{Kind: event.PaymentCanceled, PaymentID: "p1"}, "Платёж p1 отменён"},
		{"Expired", event.Event{Kind: event.PaymentCanceled, PaymentID: "p1", Expired: true}, "Время оплаты p1 истекло"},
		{"Dropped", event.Event{Kind: event.PaymentDropped, PaymentID: "p1", Reason: event.DropNotFound}, "не отслеживается (not_found)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printOutcome(&out, tt.e)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestAwaitPayment(t *testing.T) {
	events := make(chan event.Event, 2)
	events <- event.Event{Kind: event.PaymentSucceeded, PaymentID: "other"}
	events <- event.Event{Kind: event.PaymentCanceled, PaymentID: "p1", Expired: true}

	var out bytes.Buffer
	require.NoError(t, awaitPayment(context.Background(), events, "p1", &out))
	assert.NotContains(t, out.String(), "other")
	assert.Contains(t, out.String(), "истекло")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, awaitPayment(ctx, make(chan event.Event), "p1", &out), context.Canceled)
}

func TestServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
