// Package studio is the editing service behind the HTTP API.
//
// A [Service] owns the canonical layout and image list of every editing
// session. Clients send intents (upload an image, grow a cell, switch the
// template) and receive the resulting session; they never edit layouts
// themselves. Every change goes through the grid package, so a stored
// layout is always valid.
package studio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridcollage/pkg/blob"
	"github.com/matzehuels/gridcollage/pkg/collage/compose"
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
	"github.com/matzehuels/gridcollage/pkg/collage/sink"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
	"github.com/matzehuels/gridcollage/pkg/session"
)

const (
	// DefaultMaxUploadSize is the largest accepted image upload.
	DefaultMaxUploadSize = 20 << 20

	// DefaultMaxImages is the most images one session may hold.
	DefaultMaxImages = 64
)

// Config configures a Service.
type Config struct {
	Sessions session.Store
	Blobs    blob.Store

	// Runner renders exports. Defaults to a runner without a cache.
	Runner *pipeline.Runner

	// TTL is how long an idle session lives. Defaults to session.DefaultTTL.
	TTL time.Duration

	MaxUploadSize int64
	MaxImages     int

	// Rand returns the generator used for auto-fill. Nil means a
	// time-seeded generator per call.
	Rand func() *rand.Rand

	Logger *log.Logger
}

// Service manages editing sessions.
type Service struct {
	sessions session.Store
	blobs    blob.Store
	runner   *pipeline.Runner
	ttl      time.Duration
	maxSize  int64
	maxCount int
	rand     func() *rand.Rand
	logger   *log.Logger

	locks sync.Map // session id -> *sync.Mutex
}

// New creates a service. Sessions and Blobs are required.
func New(cfg Config) (*Service, error) {
	if cfg.Sessions == nil || cfg.Blobs == nil {
		return nil, fmt.Errorf("studio: session and blob stores are required")
	}
	s := &Service{
		sessions: cfg.Sessions,
		blobs:    cfg.Blobs,
		runner:   cfg.Runner,
		ttl:      cfg.TTL,
		maxSize:  cfg.MaxUploadSize,
		maxCount: cfg.MaxImages,
		rand:     cfg.Rand,
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.ttl <= 0 {
		s.ttl = session.DefaultTTL
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxUploadSize
	}
	if s.maxCount <= 0 {
		s.maxCount = DefaultMaxImages
	}
	return s, nil
}

// Create starts a session from a template. An empty name selects the
// default template.
func (s *Service) Create(ctx context.Context, template string) (*session.Session, error) {
	if template == "" {
		template = templates.Default
	}
	l, err := templates.Get(template)
	if err != nil {
		return nil, err
	}
	sess := session.New(template, l, s.ttl)
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "save session")
	}
	s.logger.Info("session created", "session", sess.ID, "template", template)
	return sess, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	if err := errs.ValidateSessionID(sessionID); err != nil {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", sessionID)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "load session")
	}
	if sess == nil {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", sessionID)
	}
	return sess, nil
}

// Delete removes a session and all of its blobs.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return err
	}
	unlock := s.lock(sessionID)
	defer unlock()
	return s.purge(ctx, sessionID)
}

func (s *Service) purge(ctx context.Context, sessionID string) error {
	if err := s.blobs.DeletePrefix(ctx, blob.SessionPrefix(sessionID)); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete session blobs")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete session")
	}
	s.locks.Delete(sessionID)
	return nil
}

// Upload stores an image and auto-fills it into the first empty cell.
func (s *Service) Upload(ctx context.Context, sessionID, name string, r io.Reader) (*session.Session, images.Image, error) {
	if err := errs.ValidateImageName(name); err != nil {
		return nil, images.Image{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, images.Image{}, errs.Wrap(errs.ErrCodeInvalidImage, err, "read upload")
	}
	if int64(len(data)) > s.maxSize {
		return nil, images.Image{}, errs.New(errs.ErrCodeTooLarge, "image exceeds %d bytes", s.maxSize)
	}
	ct, err := images.SniffContentType(data)
	if err != nil {
		return nil, images.Image{}, err
	}
	img := images.New(name, int64(len(data)), ct)

	sess, err := s.update(ctx, sessionID, func(sess *session.Session) error {
		if len(sess.Images) >= s.maxCount {
			return errs.New(errs.ErrCodeTooLarge, "session already holds %d images", s.maxCount)
		}
		key := blob.ImageKey(sess.ID, img.ID)
		if err := s.blobs.Put(ctx, key, bytes.NewReader(data), img.Size, ct); err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "store image")
		}
		sess.Images = sess.Images.Add(img)
		sess.Layout = grid.AutoFill(sess.Layout, sess.Images.IDs(), s.newRand())
		return nil
	})
	if err != nil {
		return nil, images.Image{}, err
	}
	s.logger.Info("image uploaded", "session", sessionID, "image", img.ID, "size", img.Size)
	return sess, img, nil
}

// OpenImage returns the bytes of an uploaded image.
func (s *Service) OpenImage(ctx context.Context, sessionID, imageID string) (io.ReadCloser, images.Image, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, images.Image{}, err
	}
	img, ok := sess.Images.Get(imageID)
	if !ok {
		return nil, images.Image{}, errs.New(errs.ErrCodeImageNotFound, "image %q not found", imageID)
	}
	rc, _, err := s.blobs.Get(ctx, blob.ImageKey(sessionID, imageID))
	if err != nil {
		return nil, images.Image{}, errs.Wrap(errs.ErrCodeStorage, err, "open image")
	}
	return rc, img, nil
}

// RemoveImage deletes one image. Cells that showed it are refilled from the
// remaining images or left empty.
func (s *Service) RemoveImage(ctx context.Context, sessionID, imageID string) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		rest, ok := sess.Images.Remove(imageID)
		if !ok {
			return errs.New(errs.ErrCodeImageNotFound, "image %q not found", imageID)
		}
		if err := s.blobs.Delete(ctx, blob.ImageKey(sess.ID, imageID)); err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "delete image")
		}
		sess.Images = rest
		sess.Layout = grid.AutoFill(sess.Layout, rest.IDs(), s.newRand())
		return nil
	})
}

// ClearImages deletes every image of the session and empties all cells.
func (s *Service) ClearImages(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		if err := s.blobs.DeletePrefix(ctx, blob.SessionPrefix(sess.ID)+"images/"); err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "delete images")
		}
		sess.Images = sess.Images.Clear()
		sess.Layout = grid.AutoFill(sess.Layout, nil, nil)
		return nil
	})
}

// SetSpan resizes a cell. A resize that would partially cover another cell
// fails with OVERLAP and leaves the session unchanged.
func (s *Service) SetSpan(ctx context.Context, sessionID, cellID string, rowSpan, colSpan int) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		l, err := grid.SetSpan(sess.Layout, cellID, rowSpan, colSpan)
		if err != nil {
			return err
		}
		sess.Layout = l
		return nil
	})
}

// Assign places an image in a cell, or clears the cell when imageID is
// empty.
func (s *Service) Assign(ctx context.Context, sessionID, cellID, imageID string) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		if imageID != "" && !sess.Images.Has(imageID) {
			return errs.New(errs.ErrCodeImageNotFound, "image %q not found", imageID)
		}
		l, err := grid.Assign(sess.Layout, cellID, imageID)
		if err != nil {
			return err
		}
		sess.Layout = l
		return nil
	})
}

// AutoFill fills empty cells with images not yet placed.
func (s *Service) AutoFill(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		sess.Layout = grid.AutoFill(sess.Layout, sess.Images.IDs(), s.newRand())
		return nil
	})
}

// SwitchTemplate replaces the layout with a fresh copy of the named template
// and refills it. Spans and placements of the old layout are discarded.
func (s *Service) SwitchTemplate(ctx context.Context, sessionID, name string) (*session.Session, error) {
	return s.update(ctx, sessionID, func(sess *session.Session) error {
		l, err := templates.Switch(name, sess.Images.IDs(), s.newRand())
		if err != nil {
			return err
		}
		sess.Template = name
		sess.Layout = l
		return nil
	})
}

// ExportOptions selects the output of an export. Zero values take the
// pipeline defaults, except Gap which is used as given.
type ExportOptions struct {
	Width      int
	Height     int
	Gap        int
	Background string
	Format     string
	Quality    int
}

// Export is a rendered collage.
type Export struct {
	Data        []byte
	Format      sink.Format
	ContentType string
	Key         string
	Failures    []compose.DecodeFailure
}

// Export renders the session and stores the result under the session's
// export prefix.
func (s *Service) Export(ctx context.Context, sessionID string, eo ExportOptions) (*Export, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if eo.Format == "" {
		eo.Format = pipeline.DefaultFormat
	}
	f, err := sink.ParseFormat(eo.Format)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Width:      eo.Width,
		Height:     eo.Height,
		Gap:        eo.Gap,
		Background: eo.Background,
		Formats:    []string{string(f)},
		Quality:    eo.Quality,
		Logger:     s.logger,
	}
	src := compose.BlobSource{Store: s.blobs, Prefix: blob.SessionPrefix(sess.ID) + "images/"}
	artifacts, failures, err := s.runner.Render(ctx, sess.Layout, sess.Images, src, opts)
	if err != nil {
		return nil, err
	}
	data := artifacts[string(f)]

	key := blob.ExportKey(sess.ID, "collage-"+pipeline.LayoutHash(sess.Layout)[:12]+f.Extension())
	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), f.ContentType()); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "store export")
	}

	s.logger.Info("exported collage", "session", sess.ID, "format", f, "size", len(data), "failures", len(failures))
	return &Export{
		Data:        data,
		Format:      f,
		ContentType: f.ContentType(),
		Key:         key,
		Failures:    failures,
	}, nil
}

// Sweep deletes every session that expired at or before now, together with
// its blobs, and returns how many were removed.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.sessions.Expired(ctx, now)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeStorage, err, "list expired sessions")
	}
	removed := 0
	for _, id := range ids {
		unlock := s.lock(id)
		err := s.purge(ctx, id)
		unlock()
		if err != nil {
			s.logger.Warn("sweep failed", "session", id, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// update loads a session, applies fn and saves the result. Updates of one
// session are serialized. When fn fails nothing is saved.
func (s *Service) update(ctx context.Context, sessionID string, fn func(*session.Session) error) (*session.Session, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.Touch(s.ttl)
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "save session")
	}
	return sess, nil
}

func (s *Service) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) newRand() *rand.Rand {
	if s.rand == nil {
		return nil
	}
	return s.rand()
}
