package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/controller"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"github.com/dgnsrekt/tv_crosshair/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Health(ctx context.Context) controller.Health
	ListOverlays() []controller.OverlayInfo
	GetOverlay(key string) (crosshair.Snapshot, error)
	MouseMove(ctx context.Context, key string, ts int64, price float64, modifier bool) (crosshair.Snapshot, error)
	MouseDown(ctx context.Context, key string) (crosshair.Snapshot, error)
	Scroll(ctx context.Context, key string, firstVisible int64) (crosshair.Snapshot, error)
	Evict(key string) error
}

var _ Service = (*controller.Service)(nil)

// Options tunes the server. A nil Broker disables the event stream.
type Options struct {
	Broker    *relay.Broker
	Heartbeat time.Duration
}

type keyInput struct {
	Key string `path:"key" doc:"Chart key: SYMBOL_TIMEFRAME_CHARTTYPE, e.g. FX:EURUSD_60_Candles"`
}

type snapshotOutput struct {
	Body crosshair.Snapshot
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("TV Crosshair Sync API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", htmlPage("docs", docsHTML))
	router.Get("/docs/events", htmlPage("events", eventsDocsHTML))
	if opts.Broker != nil {
		router.Get(eventsPath, relay.SSEHandler(opts.Broker, opts.Heartbeat))
	}

	registerHealthHandlers(api, svc)
	registerOverlayHandlers(api, svc)

	return router
}

func registerHealthHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.Health
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body = svc.Health(ctx)
			return out, nil
		})
}

func registerOverlayHandlers(api huma.API, svc Service) {
	type overlayListOutput struct {
		Body struct {
			Overlays []controller.OverlayInfo `json:"overlays"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-overlays", Method: http.MethodGet, Path: "/api/v1/overlays", Summary: "List registered overlays", Tags: []string{"Overlays"}},
		func(ctx context.Context, input *struct{}) (*overlayListOutput, error) {
			out := &overlayListOutput{}
			out.Body.Overlays = svc.ListOverlays()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-overlay", Method: http.MethodGet, Path: "/api/v1/overlays/{key}", Summary: "Get overlay state and readout", Tags: []string{"Overlays"}},
		func(ctx context.Context, input *keyInput) (*snapshotOutput, error) {
			snap, err := svc.GetOverlay(input.Key)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type mouseMoveInput struct {
		Key  string `path:"key"`
		Body struct {
			Time     int64   `json:"time" required:"true" doc:"Cursor time, unix seconds"`
			Price    float64 `json:"price" required:"true"`
			Modifier bool    `json:"modifier,omitempty" doc:"Anchor key held"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "mouse-move", Method: http.MethodPost, Path: "/api/v1/overlays/{key}/mouse-move", Summary: "Inject a cursor sample and mirror it to peers", Tags: []string{"Gestures"}},
		func(ctx context.Context, input *mouseMoveInput) (*snapshotOutput, error) {
			snap, err := svc.MouseMove(ctx, input.Key, input.Body.Time, input.Body.Price, input.Body.Modifier)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "mouse-down", Method: http.MethodPost, Path: "/api/v1/overlays/{key}/mouse-down", Summary: "Inject a click, clearing the gesture on every peer", Tags: []string{"Gestures"}},
		func(ctx context.Context, input *keyInput) (*snapshotOutput, error) {
			snap, err := svc.MouseDown(ctx, input.Key)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type scrollInput struct {
		Key  string `path:"key"`
		Body struct {
			FirstVisible int64 `json:"first_visible" required:"true" doc:"First visible bar time, unix seconds"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "scroll", Method: http.MethodPost, Path: "/api/v1/overlays/{key}/scroll", Summary: "Inject a visible-range change and mirror it to peers", Tags: []string{"Gestures"}},
		func(ctx context.Context, input *scrollInput) (*snapshotOutput, error) {
			snap, err := svc.Scroll(ctx, input.Key, input.Body.FirstVisible)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type evictOutput struct {
		Body struct {
			Key    string `json:"key"`
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "evict-overlay", Method: http.MethodDelete, Path: "/api/v1/overlays/{key}", Summary: "Drop an overlay from the registry", Tags: []string{"Overlays"}},
		func(ctx context.Context, input *keyInput) (*evictOutput, error) {
			if err := svc.Evict(input.Key); err != nil {
				return nil, mapErr(err)
			}
			out := &evictOutput{}
			out.Body.Key = input.Key
			out.Body.Status = "evicted"
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpcontrol.CodeChartNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeAPIUnavailable, cdpcontrol.CodeCDPUnavailable, cdpcontrol.CodeEvalFailure:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
