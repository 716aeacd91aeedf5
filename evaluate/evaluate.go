// Package evaluate resolves the directives of a mock template.
//
// Two directives are supported:
//
//	#import relative/path;   inlines another file, relative to the file being evaluated
//	{{ expression }}         inlines the text produced by an expression
//
// Imported files ending in .expr are evaluated as expressions instead of being inlined
// verbatim. Both directives are applied repeatedly until none is left, within fixed bounds so a
// self-referencing template fails instead of spinning.
package evaluate

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/filegnock/encode"
	"github.com/zerbitx/filegnock/mock"
	"github.com/zerbitx/filegnock/storage"
)

const (
	// SnippetExtension marks imported files evaluated as expressions
	SnippetExtension = ".expr"

	defaultMaxImportDepth   = 32
	defaultMaxSubstitutions = 1000
)

var (
	importPattern = regexp.MustCompile(`("?)#import ([^;\n]+);("?)`)
	inlinePattern = regexp.MustCompile(`(?s)\{\{(.+?)\}\}`)

	errImportCycle = errors.New("import cycle detected")
	errTooDeep     = errors.New("imports nested too deep")
	errTooMany     = errors.New("too many substitutions")
)

type (
	// Evaluator resolves #import and {{...}} directives
	Evaluator struct {
		store            *storage.Store
		expressions      Expressions
		maxImportDepth   int
		maxSubstitutions int
		logger           logrus.FieldLogger
	}

	// Option is a function that can modify an Evaluator
	Option func(e *Evaluator)
)

// WithExpressions overrides the expression engine
func WithExpressions(x Expressions) Option {
	return func(e *Evaluator) {
		e.expressions = x
	}
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithMaxImportDepth bounds how deep imports may nest
func WithMaxImportDepth(depth int) Option {
	return func(e *Evaluator) {
		e.maxImportDepth = depth
	}
}

// WithMaxSubstitutions bounds the directives replaced in a single evaluation
func WithMaxSubstitutions(n int) Option {
	return func(e *Evaluator) {
		e.maxSubstitutions = n
	}
}

// New returns an Evaluator reading imports from store, using expr-lang expressions by default
func New(store *storage.Store, options ...Option) *Evaluator {
	e := &Evaluator{
		store:            store,
		expressions:      NewExprEngine(store),
		maxImportDepth:   defaultMaxImportDepth,
		maxSubstitutions: defaultMaxSubstitutions,
		logger:           logrus.StandardLogger(),
	}

	for _, applyOption := range options {
		applyOption(e)
	}

	return e
}

// Evaluate resolves imports then inline expressions of content read from file
func (e *Evaluator) Evaluate(content, file string, req *mock.Request) (string, error) {
	imported, err := e.Imports(content, file, req)
	if err != nil {
		return "", err
	}

	return e.Inline(imported, file, req)
}

// Imports replaces every #import directive of content, file being the location content was read from
func (e *Evaluator) Imports(content, file string, req *mock.Request) (string, error) {
	return e.imports(content, file, req, []string{path.Clean(file)})
}

func (e *Evaluator) imports(content, file string, req *mock.Request, chain []string) (string, error) {
	for n := 0; ; n++ {
		m := importPattern.FindStringSubmatchIndex(content)
		if m == nil {
			return content, nil
		}

		directive := content[m[0]:m[1]]
		if n >= e.maxSubstitutions {
			return "", &mock.EvaluationError{Expression: directive, Err: errTooMany}
		}

		location := strings.TrimSpace(content[m[4]:m[5]])
		target, err := storage.Resolve(file, location)
		if err != nil {
			return "", &mock.EvaluationError{Expression: directive, Err: &mock.ImportError{Target: location, Err: err}}
		}

		text, err := e.importFile(directive, target, file, req, chain)
		if err != nil {
			return "", err
		}

		// "#import x.json;" becomes the JSON itself so fragments can sit in string slots of a JSON document
		start, end := m[3], m[6]
		if m[3] > m[2] && m[7] > m[6] && path.Ext(target) == ".json" {
			start, end = m[0], m[1]
		}

		e.logger.WithFields(logrus.Fields{"file": e.store.Path(file), "import": e.store.Path(target)}).Debug("importing")
		content = content[:start] + strings.TrimSpace(text) + content[end:]
	}
}

func (e *Evaluator) importFile(directive, target, from string, req *mock.Request, chain []string) (string, error) {
	for _, seen := range chain {
		if seen == target {
			return "", &mock.EvaluationError{Expression: directive, Err: errImportCycle}
		}
	}

	if len(chain) > e.maxImportDepth {
		return "", &mock.EvaluationError{Expression: directive, Err: errTooDeep}
	}

	raw, err := e.store.Read(target)
	if err != nil {
		return "", &mock.EvaluationError{Expression: directive, Err: &mock.ImportError{Target: target, Err: err}}
	}

	if path.Ext(target) == SnippetExtension {
		text, err := e.expressions.Eval(raw, Env{Request: req, File: from})
		if err != nil {
			return "", &mock.EvaluationError{Expression: raw, Err: err}
		}
		return text, nil
	}

	return e.imports(raw, target, req, append(chain[:len(chain):len(chain)], target))
}

// Inline replaces {{...}} directives one at a time, re-scanning after each replacement
func (e *Evaluator) Inline(content, file string, req *mock.Request) (string, error) {
	env := Env{Request: req, File: file}

	for n := 0; ; n++ {
		m := inlinePattern.FindStringSubmatchIndex(content)
		if m == nil {
			return content, nil
		}

		code := content[m[2]:m[3]]
		if n >= e.maxSubstitutions {
			return "", &mock.EvaluationError{Expression: code, Err: errTooMany}
		}

		text, err := e.expressions.Eval(code, env)
		if err != nil {
			return "", &mock.EvaluationError{Expression: code, Err: err}
		}

		content = content[:m[0]] + text + content[m[1]:]
	}
}

// File reads and fully evaluates a data file of the store
func (e *Evaluator) File(name string, req *mock.Request) (string, error) {
	if req == nil {
		req = mock.NewRequest("GET", "/", "", nil, mock.Body{})
	}

	content, err := e.store.Read(name)
	if err != nil {
		return "", err
	}

	if path.Ext(name) == SnippetExtension {
		text, err := e.expressions.Eval(content, Env{Request: req, File: name})
		if err != nil {
			return "", &mock.EvaluationError{Expression: content, Err: err}
		}
		content = text
	}

	return e.Evaluate(content, name, req)
}

// JSON evaluates a data file and decodes the result
func (e *Evaluator) JSON(name string, req *mock.Request) (interface{}, error) {
	content, err := e.File(name, req)
	if err != nil {
		return nil, err
	}

	v, err := encode.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", e.store.Path(name), err)
	}

	return v, nil
}
