package httpmodel

import (
	"context"

	"go.uber.org/zap"

	"github.com/newstack-cloud/celerity-core/pkg/container"
)

// HandlerContext is the per-request mutable record threaded through the
// layer pipeline and handed to the terminal handler. It
// lives for exactly one dispatch.
type HandlerContext struct {
	Context   context.Context
	Request   *Request
	Container *container.Container
	Metadata  *MetadataStore
	Logger    *zap.Logger
}

// LoggerOrDefault returns the request-scoped logger if one was attached,
// else the process-wide fallback.
func (h *HandlerContext) LoggerOrDefault(fallback *zap.Logger) *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return fallback
}

// HttpHandlerRequest is the neutral request shape passed to a function
// handler: body/query/params/headers prefer a validated form recorded by a
// validation layer, falling back to the raw request field.
type HttpHandlerRequest struct {
	Method      string
	Path        string
	Params      any
	Query       any
	Headers     any
	Body        any
	RequestID   string
	ClientIP    string
	UserAgent   string
	Cookies     map[string]string
	Raw         *Request
}

// HttpHandlerContext is the context object passed alongside
// HttpHandlerRequest to a function handler.
type HttpHandlerContext struct {
	RequestID   string
	RequestTime int64
	Metadata    *MetadataStore
	Container   *container.Container
	Logger      *zap.Logger
	Raw         *Request
}

// FunctionHandlerFunc is the callable shape of a function-handler
// definition. Extra trailing arguments are the resolved values of the
// handler's `inject` token list, in declaration order.
type FunctionHandlerFunc func(ctx context.Context, req *HttpHandlerRequest, hctx *HttpHandlerContext, injected ...any) (any, error)

// Validator is the schema contract consumed by the validation layer: Parse
// returns the parsed value or an error carrying optional structured
// issues.
type Validator interface {
	Parse(raw any) (any, error)
}

// ParseIssues is implemented by a Validator's error when it carries
// structured per-field issues, surfaced as HttpException details.
type ParseIssues interface {
	Issues() any
}
