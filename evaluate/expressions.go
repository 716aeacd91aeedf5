package evaluate

import (
	"path"
	"time"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
	"github.com/zerbitx/filegnock/encode"
	"github.com/zerbitx/filegnock/mock"
	"github.com/zerbitx/filegnock/storage"
)

type (
	// Env is what an expression can see: the request being answered and the file being evaluated
	Env struct {
		Request *mock.Request
		File    string
	}

	// Expressions evaluates the code of {{...}} directives and of imported snippets into text
	Expressions interface {
		Eval(code string, env Env) (string, error)
	}

	// ExprEngine evaluates expr-lang expressions against the request
	ExprEngine struct {
		store *storage.Store
	}
)

// NewExprEngine returns an ExprEngine reading helper files from store
func NewExprEngine(store *storage.Store) *ExprEngine {
	return &ExprEngine{store: store}
}

// Eval compiles and runs code; results that aren't strings are rendered as canonical JSON
func (x *ExprEngine) Eval(code string, env Env) (string, error) {
	vars := x.vars(env)

	program, err := expr.Compile(code, expr.Env(vars))
	if err != nil {
		return "", err
	}

	result, err := expr.Run(program, vars)
	if err != nil {
		return "", err
	}

	if s, ok := result.(string); ok {
		return s, nil
	}

	return encode.Canonical(result), nil
}

func (x *ExprEngine) vars(env Env) map[string]interface{} {
	req := env.Request
	if req == nil {
		req = mock.NewRequest("GET", "/", "", nil, mock.Body{})
	}

	headers := make(map[string]interface{}, len(req.Headers))
	for name := range req.Headers {
		headers[name] = req.Headers.Get(name)
	}

	return map[string]interface{}{
		"request": map[string]interface{}{
			"method":  req.Method,
			"path":    req.Path,
			"url":     req.URL(),
			"query":   req.Query,
			"headers": headers,
			"body":    req.Body.Value(),
		},
		"dirname": x.store.Path(path.Dir(env.File)),
		"readFile": func(location string) (string, error) {
			name, err := storage.Resolve(env.File, location)
			if err != nil {
				return "", err
			}
			return x.store.Read(name)
		},
		"readJSON": func(location string) (interface{}, error) {
			name, err := storage.Resolve(env.File, location)
			if err != nil {
				return nil, err
			}
			content, err := x.store.Read(name)
			if err != nil {
				return nil, err
			}
			return encode.Parse(content)
		},
		"jsonPath": func(data interface{}, selector string) (interface{}, error) {
			compiled, err := jp.ParseString(selector)
			if err != nil {
				return nil, err
			}
			results := compiled.Get(data)
			if len(results) == 1 {
				return results[0], nil
			}
			return results, nil
		},
		"uuid": func() string {
			return uuid.New().String()
		},
		"timestamp": func() int64 {
			return time.Now().UnixNano() / int64(time.Millisecond)
		},
	}
}
