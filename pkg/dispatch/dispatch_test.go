package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstack-cloud/celerity-core/pkg/container"
	"github.com/newstack-cloud/celerity-core/pkg/handler"
	"github.com/newstack-cloud/celerity-core/pkg/httperr"
	"github.com/newstack-cloud/celerity-core/pkg/httpmodel"
	"github.com/newstack-cloud/celerity-core/pkg/layer"
	"github.com/newstack-cloud/celerity-core/pkg/module"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

type greeter struct{}

func (g *greeter) Hello(name string) (string, error) {
	return "hello " + name, nil
}

func TestExecuteHandlerPipeline_ControllerHandler_StringNormalisedTo200JSON(t *testing.T) {
	h := &handler.ResolvedHandler{
		Params: []module.ParamDescriptor{{Index: 0, Location: module.ParamParams, Key: "name"}},
		Receiver: &greeter{},
		Invoke: func(receiver any, args []any) (any, error) {
			name, _ := args[0].(string)
			return receiver.(*greeter).Hello(name)
		},
	}
	req := &httpmodel.Request{PathParams: map[string]string{"name": "world"}, RequestTime: time.Now()}

	resp := ExecuteHandlerPipeline(context.Background(), h, req, container.New(), Options{})

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, "hello world", resp.TextBody)
}

func TestExecuteHandlerPipeline_NilResultBecomes204(t *testing.T) {
	h := &handler.ResolvedHandler{
		Invoke: func(receiver any, args []any) (any, error) { return nil, nil },
	}

	resp := ExecuteHandlerPipeline(context.Background(), h, &httpmodel.Request{}, container.New(), Options{})
	assert.Equal(t, 204, resp.Status)
}

func TestExecuteHandlerPipeline_HTTPExceptionBecomesStatusResponse(t *testing.T) {
	h := &handler.ResolvedHandler{
		Invoke: func(receiver any, args []any) (any, error) {
			return nil, httperr.NewNotFound("widget missing")
		},
	}

	resp := ExecuteHandlerPipeline(context.Background(), h, &httpmodel.Request{}, container.New(), Options{})
	assert.Equal(t, 404, resp.Status)
	assert.Contains(t, resp.TextBody, "widget missing")
}

func TestExecuteHandlerPipeline_UnknownErrorBecomes500(t *testing.T) {
	h := &handler.ResolvedHandler{
		Invoke: func(receiver any, args []any) (any, error) {
			return nil, assertPlainError("boom")
		},
	}

	resp := ExecuteHandlerPipeline(context.Background(), h, &httpmodel.Request{}, container.New(), Options{})
	assert.Equal(t, 500, resp.Status)
	assert.Contains(t, resp.TextBody, "Internal Server Error")
}

type assertPlainError string

func (e assertPlainError) Error() string { return string(e) }

func TestExecuteHandlerPipeline_LayersRunOutsideIn(t *testing.T) {
	var log []string
	sysLayer := layer.LayerFunc(func(hctx *httpmodel.HandlerContext, next layer.Next) (any, error) {
		log = append(log, "sys")
		return next()
	})
	appLayer := layer.LayerFunc(func(hctx *httpmodel.HandlerContext, next layer.Next) (any, error) {
		log = append(log, "app")
		return next()
	})
	h := &handler.ResolvedHandler{
		Layers: []layer.Layer{layer.LayerFunc(func(hctx *httpmodel.HandlerContext, next layer.Next) (any, error) {
			log = append(log, "handler-layer")
			return next()
		})},
		Invoke: func(receiver any, args []any) (any, error) {
			log = append(log, "terminal")
			return "ok", nil
		},
	}

	resp := ExecuteHandlerPipeline(context.Background(), h, &httpmodel.Request{}, container.New(), Options{
		SystemLayers: []layer.Layer{sysLayer},
		AppLayers:    []layer.Layer{appLayer},
	})

	require.Equal(t, 200, resp.Status)
	assert.Equal(t, []string{"sys", "app", "handler-layer", "terminal"}, log)
}

func TestExecuteHandlerPipeline_FunctionHandlerReceivesInjectedValues(t *testing.T) {
	fn := httpmodel.FunctionHandlerFunc(func(ctx context.Context, req *httpmodel.HttpHandlerRequest, hctx *httpmodel.HttpHandlerContext, injected ...any) (any, error) {
		return map[string]any{"injected": injected}, nil
	})
	greetingTok := token.Name("greeting")
	c := container.New()
	c.RegisterValue(greetingTok, "hi")
	h := &handler.ResolvedHandler{IsFunction: true, Fn: fn, Inject: []token.Token{greetingTok}}

	resp := ExecuteHandlerPipeline(context.Background(), h, &httpmodel.Request{}, c, Options{})
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, `{"injected":["hi"]}`, resp.TextBody)
}
