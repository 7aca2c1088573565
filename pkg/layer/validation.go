package layer

import (
	"github.com/newstack-cloud/celerity-core/pkg/httperr"
	"github.com/newstack-cloud/celerity-core/pkg/httpmodel"
)

// ValidationLayer implements the validation layer contract: it
// runs each declared schema against the matching request location,
// stashes the parsed result under the matching `validated*` metadata key,
// and calls next. A thrown parse error becomes a BadRequest carrying the
// error's issues as details, if it exposes any.
type ValidationLayer struct {
	Body    httpmodel.Validator
	Query   httpmodel.Validator
	Params  httpmodel.Validator
	Headers httpmodel.Validator
}

// HasAny reports whether at least one location has a schema attached --
// the trigger the handler registry uses to decide whether to prepend this
// layer at all.
func (v *ValidationLayer) HasAny() bool {
	return v.Body != nil || v.Query != nil || v.Params != nil || v.Headers != nil
}

func (v *ValidationLayer) Handle(hctx *httpmodel.HandlerContext, next Next) (any, error) {
	if err := v.validate(hctx, httpmodel.KeyValidatedBody, v.Body, requestBody(hctx.Request)); err != nil {
		return nil, err
	}
	if err := v.validate(hctx, httpmodel.KeyValidatedQuery, v.Query, hctx.Request.Query); err != nil {
		return nil, err
	}
	if err := v.validate(hctx, httpmodel.KeyValidatedParams, v.Params, hctx.Request.PathParams); err != nil {
		return nil, err
	}
	if err := v.validate(hctx, httpmodel.KeyValidatedHeaders, v.Headers, hctx.Request.Headers); err != nil {
		return nil, err
	}
	return next()
}

func (v *ValidationLayer) validate(hctx *httpmodel.HandlerContext, key string, schema httpmodel.Validator, raw any) error {
	if schema == nil {
		return nil
	}
	parsed, err := schema.Parse(raw)
	if err != nil {
		exc := httperr.NewBadRequest("validation failed").WithCause(err)
		if issues, ok := err.(httpmodel.ParseIssues); ok {
			exc = exc.WithDetails(issues.Issues())
		}
		return exc
	}
	hctx.Metadata.Set(key, parsed)
	return nil
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
