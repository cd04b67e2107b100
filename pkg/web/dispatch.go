package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-function/pkg/codec"
	"github.com/joeydtaylor/steeze-function/pkg/convert"
	"github.com/joeydtaylor/steeze-function/pkg/core"
	"github.com/joeydtaylor/steeze-function/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-function/pkg/stream"
)

// InvocationHeader carries the id assigned to each dispatched call.
const InvocationHeader = "X-Invocation-Id"

type handlerKey struct{}

// HandlerKey is the request context key the matched delegate is stored under
// for the duration of a dispatch.
var HandlerKey = handlerKey{}

// DelegateFrom returns the delegate serving the request ctx belongs to.
func DelegateFrom(ctx context.Context) (*Delegate, bool) {
	d, ok := ctx.Value(HandlerKey).(*Delegate)
	return d, ok
}

// StatusFor maps a dispatch error to the status sent when no response byte
// has been written yet.
func StatusFor(err error) int {
	var (
		ce *codec.CodecError
		co *convert.CoercionError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ce), errors.As(err, &co), errors.Is(err, core.ErrArgumentType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Dispatcher serves synthesized routes.
type Dispatcher struct {
	conv   convert.Converter
	log    *zap.Logger
	tracer trace.Tracer
}

type DispatcherOption func(*Dispatcher)

func WithConverter(c convert.Converter) DispatcherOption {
	return func(d *Dispatcher) {
		if c != nil {
			d.conv = c
		}
	}
}

func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		conv:   convert.Default{},
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/joeydtaylor/steeze-function/pkg/web"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type invocation struct {
	w         http.ResponseWriter
	r         *http.Request
	route     Route
	id        string
	truncated bool
}

// Handler returns the http.Handler for rt. A failure after the first
// response byte aborts the connection with http.ErrAbortHandler.
func (d *Dispatcher) Handler(rt Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		del := rt.Delegate
		id := ulid.Make().String()

		ctx := context.WithValue(r.Context(), HandlerKey, del)
		ctx, span := d.tracer.Start(ctx, "function."+del.Name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("function.name", del.Name),
				attribute.String("function.shape", del.Kind.String()),
				attribute.String("function.operation", rt.Op.String()),
				attribute.String("function.invocation_id", id),
			))
		defer span.End()

		w.Header().Set(InvocationHeader, id)
		inv := &invocation{w: w, r: r.WithContext(ctx), route: rt, id: id}

		start := time.Now()
		err := d.serve(inv)
		metrics.ObserveInvocation(del.Name, del.Kind.String(), outcome(inv, err), time.Since(start))
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if inv.truncated {
			d.logger(inv).Error("stream aborted after first element", zap.Error(err))
			panic(http.ErrAbortHandler)
		}
	})
}

func outcome(inv *invocation, err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case inv.truncated:
		return metrics.OutcomeTruncated
	case StatusFor(err) == http.StatusBadRequest:
		return metrics.OutcomeBadInput
	}
	return metrics.OutcomeFailed
}

func (d *Dispatcher) logger(inv *invocation) *zap.Logger {
	return d.log.With(
		zap.String("function", inv.route.Delegate.Name),
		zap.String("route", inv.route.String()),
		zap.String("invocationId", inv.id),
		zap.String("requestId", chimd.GetReqID(inv.r.Context())),
	)
}

func (d *Dispatcher) serve(inv *invocation) error {
	ctx := inv.r.Context()
	del := inv.route.Delegate

	switch inv.route.Op {
	case OpSupply:
		out, err := del.Supply(ctx)
		if err != nil {
			return d.fail(inv, err)
		}
		return d.writeStream(inv, out)

	case OpApply:
		in, err := d.decode(inv)
		if err != nil {
			return d.fail(inv, err)
		}
		out, err := del.Apply(ctx, stream.FromSlice(in))
		if err != nil {
			return d.fail(inv, err)
		}
		return d.writeStream(inv, out)

	case OpApplySingle:
		// chi matched on RawPath when it is set, leaving the param escaped
		raw := chi.URLParam(inv.r, InputParam)
		if inv.r.URL.RawPath != "" {
			if s, err := url.PathUnescape(raw); err == nil {
				raw = s
			}
		}
		v, err := del.Convert(raw)
		if err != nil {
			return d.fail(inv, err)
		}
		out, err := del.Apply(ctx, stream.Just[any](v))
		if err != nil {
			return d.fail(inv, err)
		}
		return d.writeSingle(inv, out)

	case OpAccept:
		in, err := d.decode(inv)
		if err != nil {
			return d.fail(inv, err)
		}
		if err := del.Accept(ctx, stream.FromSlice(in)); err != nil {
			return d.fail(inv, err)
		}
		body, err := codec.JSON.Marshal(in)
		if err != nil {
			return d.fail(inv, err)
		}
		writeJSON(inv.w, body, http.StatusAccepted)
		return nil
	}
	return d.fail(inv, errors.New("web: unknown route operation"))
}

func (d *Dispatcher) decode(inv *invocation) ([]any, error) {
	del := inv.route.Delegate
	t, err := del.InputType()
	if err != nil {
		return nil, err
	}
	in, err := codec.DecodeList(inv.r.Body, t)
	if err != nil {
		return nil, err
	}
	metrics.AddElements(del.Name, metrics.DirectionIn, len(in))
	return in, nil
}

func (d *Dispatcher) writeStream(inv *invocation, out *stream.Stream[any]) error {
	enc := codec.NewArrayEncoder(inv.w, func() {
		inv.w.Header().Set("Content-Type", codec.JSON.ContentType())
		inv.w.WriteHeader(http.StatusOK)
	})
	err := out.Subscribe(inv.r.Context(), enc.Encode)
	if err == nil {
		err = enc.Close()
	}
	metrics.AddElements(inv.route.Delegate.Name, metrics.DirectionOut, enc.Count())
	if err == nil {
		return nil
	}
	if !enc.Started() {
		return d.fail(inv, err)
	}
	inv.truncated = true
	return err
}

// writeSingle answers with the first element alone, or null when the stream
// completes empty.
func (d *Dispatcher) writeSingle(inv *invocation, out *stream.Stream[any]) error {
	v, ok, err := stream.First(inv.r.Context(), out)
	if err != nil {
		return d.fail(inv, err)
	}
	body := []byte("null")
	if ok {
		if body, err = codec.JSON.Marshal(v); err != nil {
			return d.fail(inv, err)
		}
		metrics.AddElements(inv.route.Delegate.Name, metrics.DirectionOut, 1)
	}
	writeJSON(inv.w, body, http.StatusOK)
	return nil
}

func (d *Dispatcher) fail(inv *invocation, err error) error {
	status := StatusFor(err)
	log := d.logger(inv)
	if status >= http.StatusInternalServerError {
		log.Error("function failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Warn("function rejected input", zap.Int("status", status), zap.Error(err))
	}
	writeError(inv.w, status, err)
	return err
}
