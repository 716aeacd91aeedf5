// Package response turns an evaluated mock file into a status, headers and a body.
//
// A mock file looks like a raw HTTP response:
//
//	HTTP/1.1 200 OK
//	Content-Type: application/json
//
//	{"key": "value"}
package response

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/filegnock/headers"
	"github.com/zerbitx/filegnock/mock"
)

// DefaultStatus is used when a file has no status line
const DefaultStatus = "404"

var (
	statusPattern = regexp.MustCompile(`(?i)HTTP/\d\.\d (\d{3})(?:\s|$)`)
	blankLine     = regexp.MustCompile(`\r?\n\r?\n`)
)

// Evaluator resolves the directives of a template
type Evaluator interface {
	Imports(content, file string, req *mock.Request) (string, error)
	Inline(content, file string, req *mock.Request) (string, error)
}

// Assembler builds responses from mock files
type Assembler struct {
	evaluator Evaluator
	logger    logrus.FieldLogger
}

// New returns an Assembler
func New(evaluator Evaluator, logger logrus.FieldLogger) *Assembler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Assembler{evaluator: evaluator, logger: logger}
}

// Assemble evaluates content read from file and parses it into a response
func (a *Assembler) Assemble(content, file string, req *mock.Request) (*mock.Response, error) {
	a.logger.WithField("file", file).Debug("processing")

	content, err := a.evaluator.Imports(content, file, req)
	if err != nil {
		return nil, err
	}

	head, body := split(content)
	lines := strings.Split(head, "\n")

	res := &mock.Response{}

	if res.Status, err = a.status(strings.TrimRight(lines[0], "\r"), file, req); err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			a.logger.WithFields(logrus.Fields{"file": file, "line": line}).Warn("ignoring header without a colon")
			continue
		}

		value, err := a.evaluator.Inline(strings.TrimSpace(line[colon+1:]), file, req)
		if err != nil {
			return nil, err
		}

		res.Add(headers.Canonical(strings.TrimSpace(line[:colon])), strings.TrimSpace(value))
	}

	if body != "" {
		evaluated, err := a.evaluator.Inline(body, file, req)
		if err != nil {
			return nil, err
		}
		res.Body = strings.TrimSpace(evaluated)
	}

	return res, nil
}

func (a *Assembler) status(line, file string, req *mock.Request) (string, error) {
	if strings.TrimSpace(line) == "" {
		return DefaultStatus, nil
	}

	evaluated, err := a.evaluator.Inline(line, file, req)
	if err != nil {
		return "", err
	}

	m := statusPattern.FindStringSubmatch(evaluated)
	if m == nil {
		return "", &mock.InvalidStatusLineError{Line: evaluated}
	}

	return m[1], nil
}

func split(content string) (head, body string) {
	loc := blankLine.FindStringIndex(content)
	if loc == nil {
		return content, ""
	}

	return content[:loc[0]], content[loc[1]:]
}
