// Package storage reads mock files from a read-only tree rooted at the mocks directory.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/filegnock/paths"
)

// ErrOutsideRoot is returned for locations escaping the mocks directory
var ErrOutsideRoot = errors.New("location is outside the mocks directory")

type (
	// Store reads mock files relative to a root
	Store struct {
		fs     billy.Filesystem
		root   string
		logger logrus.FieldLogger
	}

	// Option is a function that can modify a Store
	Option func(s *Store)
)

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New returns a Store over the directory root on disk
func New(root string, options ...Option) *Store {
	return NewWithFS(osfs.New(root), root, options...)
}

// NewWithFS returns a Store over any billy filesystem, root only being used to display locations
func NewWithFS(fs billy.Filesystem, root string, options ...Option) *Store {
	s := &Store{
		fs:     fs,
		root:   root,
		logger: logrus.StandardLogger(),
	}

	for _, applyOption := range options {
		applyOption(s)
	}

	return s
}

// Root is the display root of the store
func (s *Store) Root() string {
	return s.root
}

// Path is the display location of a file of the store
func (s *Store) Path(name string) string {
	return path.Join(s.root, name)
}

// Exists reports whether name is a regular file
func (s *Store) Exists(name string) bool {
	name, err := clean(name)
	if err != nil {
		return false
	}

	info, err := s.fs.Stat(name)

	return err == nil && info.Mode().IsRegular()
}

// Read returns the content of name
func (s *Store) Read(name string) (string, error) {
	name, err := clean(name)
	if err != nil {
		return "", err
	}

	content, err := util.ReadFile(s.fs, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.Path(name), err)
	}

	return string(content), nil
}

// Content probes candidates in order and returns the content and name of the first readable one.
// When none exists both strings are empty.
func (s *Store) Content(candidates []paths.Candidate) (string, string) {
	for _, c := range candidates {
		file := c.File()
		s.logger.WithField("file", s.Path(file)).Debug("checking")

		if !s.Exists(file) {
			continue
		}

		content, err := s.Read(file)
		if err != nil {
			s.logger.WithError(err).WithField("file", s.Path(file)).Info("failed to load")
			continue
		}

		s.logger.WithField("file", s.Path(file)).Info("loaded")
		return content, file
	}

	return "", ""
}

// Resolve joins a location relative to the directory of from, failing when it leaves the root
func Resolve(from, location string) (string, error) {
	return clean(path.Join(path.Dir(from), location))
}

func clean(name string) (string, error) {
	name = path.Clean(strings.TrimSpace(name))
	if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return "", ErrOutsideRoot
	}

	return name, nil
}
