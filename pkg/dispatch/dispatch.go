// Package dispatch implements the request dispatcher: builds
// a HandlerContext, runs the layer pipeline around the resolved handler,
// normalises the return value into a response, and translates errors.
package dispatch

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newstack-cloud/celerity-core/pkg/container"
	"github.com/newstack-cloud/celerity-core/pkg/handler"
	"github.com/newstack-cloud/celerity-core/pkg/httperr"
	"github.com/newstack-cloud/celerity-core/pkg/httpmodel"
	"github.com/newstack-cloud/celerity-core/pkg/layer"
	"github.com/newstack-cloud/celerity-core/pkg/logging"
	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

// NewRequestID mints a request identifier for a host adapter that receives
// a request with no caller-supplied id of its own (no `X-Request-Id`
// header or platform-native equivalent).
func NewRequestID() string {
	return uuid.NewString()
}

// Options carries the host-supplied layers and optional request-scoped
// logger for one dispatch call.
type Options struct {
	SystemLayers []layer.Layer
	AppLayers    []layer.Layer
	Logger       *zap.Logger
}

// ExecuteHandlerPipeline runs h around req and always returns a response:
// request-time errors are recovered here and translated, never propagated
// to the caller.
func ExecuteHandlerPipeline(ctx context.Context, h *handler.ResolvedHandler, req *httpmodel.Request, c *container.Container, opts Options) *httpmodel.Response {
	hctx := &httpmodel.HandlerContext{
		Context:   ctx,
		Request:   req,
		Container: c,
		Metadata:  httpmodel.NewMetadataStore(h.CustomMetadata),
		Logger:    opts.Logger,
	}

	layers := make([]layer.Layer, 0, len(opts.SystemLayers)+len(opts.AppLayers)+len(h.Layers))
	layers = append(layers, opts.SystemLayers...)
	layers = append(layers, opts.AppLayers...)
	layers = append(layers, h.Layers...)

	result, err := layer.Run(layers, hctx, func(hctx *httpmodel.HandlerContext) (any, error) {
		return invokeTerminal(ctx, h, hctx, c)
	})
	if err != nil {
		return translateError(hctx, err)
	}
	return normalizeResponse(result)
}

func invokeTerminal(ctx context.Context, h *handler.ResolvedHandler, hctx *httpmodel.HandlerContext, c *container.Container) (any, error) {
	if h.IsFunction {
		return invokeFunctionHandler(ctx, h, hctx, c)
	}
	return invokeControllerMethod(h, hctx)
}

func invokeControllerMethod(h *handler.ResolvedHandler, hctx *httpmodel.HandlerContext) (any, error) {
	params := append([]module.ParamDescriptor{}, h.Params...)
	sort.Slice(params, func(i, j int) bool { return params[i].Index < params[j].Index })

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = extractControllerParam(p, hctx)
	}

	return h.Invoke(h.Receiver, args)
}

func extractControllerParam(p module.ParamDescriptor, hctx *httpmodel.HandlerContext) any {
	switch p.Location {
	case module.ParamBody:
		return validatedOrRaw(hctx, httpmodel.KeyValidatedBody, p.Key, requestBody(hctx.Request))
	case module.ParamQuery:
		return validatedOrRaw(hctx, httpmodel.KeyValidatedQuery, p.Key, hctx.Request.Query)
	case module.ParamParams:
		return validatedOrRaw(hctx, httpmodel.KeyValidatedParams, p.Key, hctx.Request.PathParams)
	case module.ParamHeaders:
		return validatedOrRaw(hctx, httpmodel.KeyValidatedHeaders, p.Key, hctx.Request.Headers)
	case module.ParamAuth:
		return hctx.Request.Auth
	case module.ParamRequestID:
		return hctx.Request.RequestID
	case module.ParamRequest:
		return hctx.Request
	case module.ParamCookies:
		return hctx.Request.Cookies
	case module.ParamHandlerContext:
		return hctx
	default:
		return nil
	}
}

// validatedOrRaw consults the metadata store for the validated form first,
// extracting a single sub-key when the descriptor names one, else falling
// back to the raw request field.
func validatedOrRaw(hctx *httpmodel.HandlerContext, metaKey, subKey string, raw any) any {
	if v, ok := hctx.Metadata.Get(metaKey); ok {
		return extractKey(v, subKey)
	}
	return extractKey(raw, subKey)
}

func extractKey(v any, key string) any {
	if key == "" {
		return v
	}
	switch m := v.(type) {
	case map[string]any:
		return m[key]
	case map[string]string:
		return m[key]
	case httpmodel.MultiValue:
		return m.First(key)
	default:
		return nil
	}
}

func invokeFunctionHandler(ctx context.Context, h *handler.ResolvedHandler, hctx *httpmodel.HandlerContext, c *container.Container) (any, error) {
	fn, ok := h.Fn.(httpmodel.FunctionHandlerFunc)
	if !ok {
		return nil, httperr.NewInternalServerError("handler: function handler has no callable bound")
	}

	req := &httpmodel.HttpHandlerRequest{
		Method:    hctx.Request.Method,
		Path:      hctx.Request.Path,
		Body:      preferValidated(hctx, httpmodel.KeyValidatedBody, requestBody(hctx.Request)),
		Query:     preferValidated(hctx, httpmodel.KeyValidatedQuery, hctx.Request.Query),
		Params:    preferValidated(hctx, httpmodel.KeyValidatedParams, hctx.Request.PathParams),
		Headers:   preferValidated(hctx, httpmodel.KeyValidatedHeaders, hctx.Request.Headers),
		RequestID: hctx.Request.RequestID,
		ClientIP:  hctx.Request.ClientIP,
		UserAgent: hctx.Request.UserAgent,
		Cookies:   hctx.Request.Cookies,
		Raw:       hctx.Request,
	}
	fctx := &httpmodel.HttpHandlerContext{
		RequestID:   hctx.Request.RequestID,
		RequestTime: hctx.Request.RequestTime.UnixMilli(),
		Metadata:    hctx.Metadata,
		Container:   hctx.Container,
		Logger:      hctx.Logger,
		Raw:         hctx.Request,
	}

	injected := make([]any, len(h.Inject))
	for i, tok := range h.Inject {
		v, err := resolveInjectToken(ctx, c, tok)
		if err != nil {
			return nil, err
		}
		injected[i] = v
	}

	return fn(ctx, req, fctx, injected...)
}

func resolveInjectToken(ctx context.Context, c *container.Container, tok token.Token) (any, error) {
	return c.Resolve(ctx, tok)
}

func preferValidated(hctx *httpmodel.HandlerContext, key string, raw any) any {
	if v, ok := hctx.Metadata.Get(key); ok {
		return v
	}
	return raw
}

func requestBody(r *httpmodel.Request) any {
	if r == nil {
		return nil
	}
	if len(r.BinaryBody) > 0 {
		return r.BinaryBody
	}
	if r.TextBody != "" {
		return r.TextBody
	}
	return nil
}

// isNilValue reports whether v holds a nil pointer, map, slice, chan, or
// func wrapped in a non-nil interface -- the case `v == nil` itself misses,
// since a handler returning a typed-nil pointer still boxes a non-nil
// interface value.
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// numericStatusField reports whether v (directly or through pointers) is a
// struct with an integer-kinded `Status` field, and returns that field's
// value.
func numericStatusField(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return 0, false
	}
	f := rv.FieldByName("Status")
	if !f.IsValid() {
		return 0, false
	}
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(f.Int()), true
	default:
		return 0, false
	}
}

// normalizeResponse coerces a handler's return value into a neutral
// response: pass through an existing *httpmodel.Response unchanged, map nil
// to 204, map a string to a 200 with that string as the body, and
// JSON-encode anything else. Any other value with a numeric Status field is
// not passed through: its Status becomes the response status and the whole
// value, Status included, is JSON-encoded as the body.
func normalizeResponse(v any) *httpmodel.Response {
	if resp, ok := v.(*httpmodel.Response); ok {
		return resp
	}
	if v == nil || isNilValue(v) {
		return &httpmodel.Response{Status: 204}
	}
	if status, ok := numericStatusField(v); ok {
		body, _ := json.Marshal(v)
		return &httpmodel.Response{Status: status, TextBody: string(body), ContentType: "application/json"}
	}
	if s, ok := v.(string); ok {
		return &httpmodel.Response{Status: 200, TextBody: s, ContentType: "application/json"}
	}
	body, err := json.Marshal(v)
	if err != nil {
		return &httpmodel.Response{Status: 500, TextBody: `{"message":"Internal Server Error"}`, ContentType: "application/json"}
	}
	return &httpmodel.Response{Status: 200, TextBody: string(body), ContentType: "application/json"}
}

type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// translateError maps a pipeline error into a response: a known
// HTTPException becomes its status code, anything else is logged and
// collapses to a generic 500.
func translateError(hctx *httpmodel.HandlerContext, err error) *httpmodel.Response {
	if exc, ok := httperr.As(err); ok {
		body, _ := json.Marshal(errorBody{Message: exc.Message, Details: exc.Details})
		return &httpmodel.Response{Status: exc.Status, TextBody: string(body), ContentType: "application/json"}
	}

	log := hctx.LoggerOrDefault(logging.Default())
	log.Error("unhandled error in request dispatch", zap.Error(err))

	body, _ := json.Marshal(errorBody{Message: "Internal Server Error"})
	return &httpmodel.Response{Status: 500, TextBody: string(body), ContentType: "application/json"}
}
