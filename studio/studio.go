// Package studio ties the QR pipeline to a session file, a viewer and the
// generation history. Front ends (CLI, TUI) drive it.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/session"
	"github.com/openclaw/qrpop/store"
	"github.com/openclaw/qrpop/viewer"
)

// Status line texts.
const (
	StatusReady      = "Ready."
	StatusGenerating = "Generating QR code..."
	StatusFailed     = "Failed to generate QR code."
	StatusEmpty      = "Please enter text to encode."
)

// StatusDone formats the success message for a result.
func StatusDone(r *Result) string {
	if r.Opened {
		return fmt.Sprintf("QR code generated and opened (if no viewer appeared, see %s).", r.Path)
	}
	return fmt.Sprintf("QR code generated: %s", r.Path)
}

// Recorder persists generations. *store.HistoryStore satisfies it.
type Recorder interface {
	Save(g *store.Generation) error
}

// Options configures a Studio.
type Options struct {
	Generator *qr.Generator
	File      *session.File
	Opener    viewer.Opener // nil means never open
	History   Recorder      // nil disables history
	Source    string        // recorded with each generation
	Log       *slog.Logger
}

// Studio generates codes into a single session file.
type Studio struct {
	gen     *qr.Generator
	file    *session.File
	opener  viewer.Opener
	history Recorder
	source  string
	log     *slog.Logger
}

// Result describes one successful generation.
type Result struct {
	Image  *qr.Image
	Path   string
	Opened bool
	ID     string // history ID, empty when history is disabled
}

// New creates a Studio. File is required.
func New(opts Options) (*Studio, error) {
	if opts.File == nil {
		return nil, errors.New("studio: session file is required")
	}
	if opts.Generator == nil {
		opts.Generator = qr.NewGenerator()
	}
	if opts.Opener == nil {
		opts.Opener = viewer.Noop{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Studio{
		gen:     opts.Generator,
		file:    opts.File,
		opener:  opts.Opener,
		history: opts.History,
		source:  opts.Source,
		log:     opts.Log,
	}, nil
}

// Path returns the session file path.
func (s *Studio) Path() string {
	return s.file.Path()
}

// Generate encodes text, writes the image to the session file and opens
// it. Viewer and history failures are logged but do not fail the call: the
// image is already on disk.
func (s *Studio) Generate(ctx context.Context, text string) (*Result, error) {
	img, err := s.gen.Generate(text)
	if err != nil {
		s.log.Warn("generate failed", "error", err, "bytes", len(text))
		return nil, err
	}

	if err := s.file.Write(img.PNG); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	res := &Result{Image: img, Path: s.file.Path()}
	s.log.Info("qr code generated",
		"path", res.Path,
		"level", img.Level,
		"version", img.Version,
		"pixels", img.Pixels,
	)

	if s.history != nil {
		g := &store.Generation{
			Text:    text,
			Level:   string(img.Level),
			Version: img.Version,
			Modules: img.Modules,
			Scale:   img.Scale,
			Pixels:  img.Pixels,
			Bytes:   len(img.PNG),
			Source:  s.source,
			Path:    res.Path,
		}
		if err := s.history.Save(g); err != nil {
			s.log.Error("record history failed", "error", err)
		} else {
			res.ID = g.ID
		}
	}

	if _, noop := s.opener.(viewer.Noop); !noop {
		if err := s.opener.Open(ctx, res.Path); err != nil {
			s.log.Warn("open viewer failed", "error", err, "path", res.Path)
		} else {
			res.Opened = true
		}
	}

	return res, nil
}

// Close removes the session file.
func (s *Studio) Close() error {
	return s.file.Close()
}
