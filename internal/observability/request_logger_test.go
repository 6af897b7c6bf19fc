package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestRequestLoggerSpanKeepsRequestValues(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	metrics := NewMetrics()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	paths := []string{"/tickets/1", "/tickets/22222222"}
	for i, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set(RequestIDHeader, "req-"+path)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if got := resp.Header.Get(RequestIDHeader); got != "req-"+path {
			t.Fatalf("response request id = %q", got)
		}
		resp.Body.Close()
	}

	spans := recorder.Ended()
	if len(spans) != len(paths) {
		t.Fatalf("got %d spans", len(spans))
	}
	for i, span := range spans {
		attrs := map[attribute.Key]attribute.Value{}
		for _, kv := range span.Attributes() {
			attrs[kv.Key] = kv.Value
		}
		if got := attrs["url.path"].AsString(); got != paths[i] {
			t.Fatalf("span %d url.path = %q, want %q", i, got, paths[i])
		}
		if got := attrs["request.id"].AsString(); got != "req-"+paths[i] {
			t.Fatalf("span %d request.id = %q", i, got)
		}
		if got := attrs["http.response.status_code"].AsInt64(); got != fiber.StatusNoContent {
			t.Fatalf("span %d status = %d", i, got)
		}
		if span.Name() != "GET "+paths[i] {
			t.Fatalf("span %d name = %q", i, span.Name())
		}
	}

	if got := metrics.Snapshot().Requests; len(got) != 1 {
		t.Fatalf("requests by route = %v", got)
	}
}
