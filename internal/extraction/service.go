// Package extraction runs PDF library calls under a concurrency ceiling and
// a per-call timeout.
package extraction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sammcj/mcp-pdf/internal/config"
	"github.com/sammcj/mcp-pdf/internal/pagerange"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"github.com/sammcj/mcp-pdf/internal/security"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Service is safe for concurrent use. Calls beyond the configured ceiling
// wait for a free slot.
type Service struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	text    TextReader
	info    InfoReader
	logger  *logrus.Logger
}

// NewService creates a service backed by ledongthuc/pdf for text and pdfcpu
// for metadata and validation
func NewService(cfg config.Config, logger *logrus.Logger) *Service {
	return New(cfg, logger, NewContentReader(), NewInfoReader())
}

// New creates a service with explicit backends
func New(cfg config.Config, logger *logrus.Logger, text TextReader, info InfoReader) *Service {
	limit := cfg.MaxConcurrentOperations
	if limit <= 0 {
		limit = config.DefaultMaxConcurrentOperations
	}
	timeout := cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = config.DefaultProcessingTimeout
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Service{
		sem:     semaphore.NewWeighted(int64(limit)),
		timeout: timeout,
		text:    text,
		info:    info,
		logger:  logger,
	}
}

// Text reads the pages selected by expr
func (s *Service) Text(ctx context.Context, path security.ValidatedPath, expr string, mode Mode) (Document, error) {
	return run(ctx, s, "text", func(ctx context.Context) (Document, error) {
		return s.text.ReadPages(ctx, path.Path(), func(total int) (pagerange.PageSet, error) {
			return pagerange.Parse(expr, total)
		}, mode)
	})
}

// Info reads document metadata
func (s *Service) Info(ctx context.Context, path security.ValidatedPath) (Info, error) {
	return run(ctx, s, "info", func(ctx context.Context) (Info, error) {
		return s.info.ReadInfo(ctx, path.Path())
	})
}

// Validate checks document structure and whether text can be read. Problems
// with the document itself are reported in the Report, not as an error.
func (s *Service) Validate(ctx context.Context, path security.ValidatedPath) (Report, error) {
	return run(ctx, s, "validate", func(ctx context.Context) (Report, error) {
		var report Report

		checkErr := s.info.Check(ctx, path.Path())
		if checkErr != nil {
			report.Problem = problem(checkErr, path.Path())
		}

		info, infoErr := s.info.ReadInfo(ctx, path.Path())
		if infoErr == nil {
			report.Version = info.Version
			report.Encrypted = info.Encrypted
			report.PageCount = info.PageCount
		} else if report.Problem == "" {
			report.Problem = problem(infoErr, path.Path())
		}

		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		if n, err := s.text.PageCount(ctx, path.Path()); err == nil {
			report.Readable = true
			if report.PageCount == 0 {
				report.PageCount = n
			}
		} else if errors.Is(err, ErrEncrypted) {
			report.Encrypted = true
		}

		report.Valid = checkErr == nil && infoErr == nil
		return report, nil
	})
}

func run[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return zero, s.contextError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		// the slot is held until the library call returns, even after a timeout
		defer s.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"op":    op,
					"panic": r,
				}).Error("Recovered panic in PDF backend")
				done <- outcome{err: pdferrors.New(pdferrors.KindProcessingError, "PDF processing failed: unexpected error in PDF library")}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		s.logger.WithFields(logrus.Fields{
			"op":          op,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("PDF backend call finished")
		if out.err != nil && ctx.Err() != nil && isContextErr(out.err) {
			return zero, s.contextError(ctx.Err())
		}
		return out.value, out.err
	case <-ctx.Done():
		s.logger.WithFields(logrus.Fields{
			"op":         op,
			"timeout_ms": s.timeout.Milliseconds(),
		}).Warn("PDF backend call abandoned")
		return zero, s.contextError(ctx.Err())
	}
}

func (s *Service) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pdferrors.Wrap(pdferrors.KindProcessingTimeout,
			"PDF processing timed out after "+s.timeout.String(), err)
	}
	return pdferrors.Wrap(pdferrors.KindProcessingError, "PDF processing was cancelled", err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// problem renders err for a Report without the document path
func problem(err error, path string) string {
	var pe *pdferrors.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	if path == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), path, "document")
}
