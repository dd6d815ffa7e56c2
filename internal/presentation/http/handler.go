package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appquote "github.com/salemaljebaly/mstore-api-optimizer/internal/application/quote"
	domcart "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/cart"
	domquote "github.com/salemaljebaly/mstore-api-optimizer/internal/domain/quote"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability/logctx"
	"github.com/salemaljebaly/mstore-api-optimizer/internal/pkg/apperr"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerSessionID      = "X-Session-ID"

	RouteShippingMethods = "/api/flutter_woo/shipping_methods"
	RoutePaymentMethods  = "/api/flutter_woo/payment_methods"
	RouteHealth          = "/health"
	RouteMetrics         = "/metrics"

	maxBodyBytes = 1 << 20
)

type ShippingQuoter interface {
	Execute(ctx context.Context, req appquote.Request) (*appquote.Response[domquote.ShippingRate], error)
}

type PaymentLister interface {
	Execute(ctx context.Context, req appquote.Request) (*appquote.Response[domquote.PaymentGateway], error)
}

// CartFactory opens the cart of one request together with the listener registry it fires into.
type CartFactory func(ctx context.Context, sessionID string) (domcart.CartStore, domcart.EventBus)

type Deps struct {
	Shipping ShippingQuoter
	Payment  PaymentLister
	Carts    CartFactory
	Sessions domcart.SessionProvider
	// Authorizer, when set, rejects unlicensed requests before the body is read.
	Authorizer domcart.Authorizer
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// MaxExecution bounds each quote request; zero disables the bound.
	MaxExecution time.Duration
}

type Handler struct {
	deps     Deps
	validate *validator.Validate
	log      observability.Logger
	tel      observability.Observability

	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewHandler(deps Deps, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		deps:         deps,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace -> request logger -> access log -> HTTP metrics -> budget -> handler
	h.muxHandle(mux, http.MethodPost, RouteShippingMethods, h.withBudget(h.handleShippingMethods))
	h.muxHandle(mux, http.MethodPost, RoutePaymentMethods, h.withBudget(h.handlePaymentMethods))
	h.muxHandle(mux, http.MethodGet, RouteHealth, http.HandlerFunc(h.handleHealth))
	if h.deps.Metrics != nil {
		mux.Handle(RouteMetrics, h.deps.Metrics)
	}
	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.Handler) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(h.log, requestIDFrom)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)
	mux.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	}))
}

// withBudget bounds the handler by the configured max execution time; overruns answer 503.
func (h *Handler) withBudget(fn http.HandlerFunc) http.Handler {
	if h.deps.MaxExecution <= 0 {
		return fn
	}
	return http.TimeoutHandler(fn, h.deps.MaxExecution, `{"code":"timeout","message":"Request took too long"}`)
}

func (h *Handler) handleShippingMethods(w http.ResponseWriter, r *http.Request) {
	req, ok := h.quoteRequest(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Shipping.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	req, ok := h.quoteRequest(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Payment.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// quoteRequest checks the license, decodes and validates the body, then opens the
// per-session cart and session.
func (h *Handler) quoteRequest(w http.ResponseWriter, r *http.Request) (appquote.Request, bool) {
	if h.deps.Authorizer != nil && !h.deps.Authorizer.Verified(r.Context()) {
		h.fail(w, r, apperr.Forbidden(""))
		return appquote.Request{}, false
	}

	var body quoteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.fail(w, r, decodeError(err))
		return appquote.Request{}, false
	}
	if err := h.validate.Struct(&body); err != nil {
		h.fail(w, r, decodeError(err))
		return appquote.Request{}, false
	}

	sessionID := r.Header.Get(headerSessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set(headerSessionID, sessionID)

	req := body.toRequest(sessionID)
	req.Cart, req.Bus = h.deps.Carts(r.Context(), sessionID)
	if h.deps.Sessions != nil {
		req.Session = h.deps.Sessions.Session(sessionID)
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	logctx.FromOr(r.Context(), h.log).Debug("request_failed", observability.F("error", err))
	writeError(w, err)
}

// withAccessLog writes a single access log after the handler completes.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace starts the server span as a child of any W3C context on the inbound headers.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	tracer := otel.Tracer("mstore.http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := extractTrace(r)
		route := routeFromContext(r.Context())
		ctx, span := tracer.Start(parent, r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withHTTPMetrics records request count and latency on the injected instruments.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

func requestIDFrom(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}

type routeKey struct{}

// contextWithRoute stores the route template so metrics and logs keep low-cardinality labels.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
