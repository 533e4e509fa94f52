package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Dan9191/reasonable-comp/internal/calc"
	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/Dan9191/reasonable-comp/internal/report"
	"github.com/Dan9191/reasonable-comp/internal/utils/email"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMarketDataDisabled is returned by data endpoints when the service
	// runs on the static wage table
	ErrMarketDataDisabled = errors.New("market data service is not configured")
	// ErrMailerDisabled is returned when no mail sender is configured
	ErrMailerDisabled = errors.New("email delivery is not configured")
)

// Mailer delivers rendered reports
type Mailer interface {
	SendReport(to string, report email.Report) error
}

// Deps are the collaborators a Service needs. Market, Refresher and Mailer
// are optional.
type Deps struct {
	Estimator *calc.Estimator
	Renderer  *report.Renderer
	Market    *wages.Aggregator
	Refresher *wages.RefreshService
	Mailer    Mailer
	Now       func() time.Time
}

// Service handles business logic
type Service struct {
	deps Deps
	log  *logrus.Logger
}

// NewService initializes a new service
func NewService(deps Deps, log *logrus.Logger) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Renderer == nil {
		deps.Renderer = report.NewRenderer("")
	}
	return &Service{deps: deps, log: log}
}

// Document is a rendered PDF report
type Document struct {
	ID          string
	GeneratedAt time.Time
	Filename    string
	PDF         []byte
	Result      *models.CalcResult
}

// Estimate runs a calculation
func (s *Service) Estimate(req models.CalcRequest) (*models.CalcResult, error) {
	res, err := s.deps.Estimator.Estimate(req)
	fields := logrus.Fields{
		"state":    strings.ToUpper(req.Client.State),
		"approach": req.Method().Kind(),
	}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Warn("Calculation rejected")
		return nil, err
	}
	fields["target"] = res.Target
	s.log.WithFields(fields).Info("Calculation completed")
	return res, nil
}

// Report runs a calculation and renders it as a PDF
func (s *Service) Report(req models.CalcRequest) (*Document, error) {
	res, err := s.Estimate(req)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:          uuid.NewString(),
		GeneratedAt: s.deps.Now(),
		Result:      res,
	}
	doc.Filename = reportFilename(req.Client.Name, doc.GeneratedAt)

	var buf bytes.Buffer
	if err := s.deps.Renderer.Render(&buf, req, res, doc.GeneratedAt); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	doc.PDF = buf.Bytes()

	s.log.Infof("Report %s generated (%d bytes)", doc.ID, len(doc.PDF))
	return doc, nil
}

// EmailReport renders a report and mails it to the given address
func (s *Service) EmailReport(req models.CalcRequest, to string) (*Document, error) {
	if s.deps.Mailer == nil {
		return nil, ErrMailerDisabled
	}
	if strings.TrimSpace(to) == "" {
		return nil, models.NewValidationError("to", "recipient address is required")
	}

	doc, err := s.Report(req)
	if err != nil {
		return nil, err
	}
	html, err := report.SummaryHTML(req, doc.Result, doc.GeneratedAt)
	if err != nil {
		return nil, err
	}
	err = s.deps.Mailer.SendReport(to, email.Report{
		ClientName: req.Client.Name,
		HTML:       html,
		Text:       report.Summary(req, doc.Result, doc.GeneratedAt),
		PDF:        doc.PDF,
		Filename:   doc.Filename,
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DataQuality reports on the market data behind one state and role
func (s *Service) DataQuality(state string, role models.Role) (models.DataQuality, error) {
	if s.deps.Market == nil {
		return models.DataQuality{}, ErrMarketDataDisabled
	}
	verr := &models.ValidationError{}
	if len(state) != 2 || !unicode.IsLetter(rune(state[0])) || !unicode.IsLetter(rune(state[1])) {
		verr.Problems = append(verr.Problems, models.FieldProblem{Field: "state", Message: "must be a two-letter state code"})
	}
	if !role.Valid() {
		verr.Problems = append(verr.Problems, models.FieldProblem{Field: "role", Message: fmt.Sprintf("unknown role %q", role)})
	}
	if len(verr.Problems) > 0 {
		return models.DataQuality{}, verr
	}
	return s.deps.Market.DataQuality(state, role), nil
}

// DataStatus reports refresh timing and source health
func (s *Service) DataStatus() (wages.Status, error) {
	if s.deps.Refresher == nil {
		return wages.Status{}, ErrMarketDataDisabled
	}
	return s.deps.Refresher.Status(), nil
}

// RefreshData forces a market data refresh and returns the new status
func (s *Service) RefreshData(ctx context.Context) (wages.Status, error) {
	if s.deps.Refresher == nil {
		return wages.Status{}, ErrMarketDataDisabled
	}
	if err := s.deps.Refresher.ForceRefresh(ctx); err != nil {
		return wages.Status{}, err
	}
	s.log.Info("Market data refreshed on request")
	return s.deps.Refresher.Status(), nil
}

func reportFilename(client string, at time.Time) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(client) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "client"
	}
	return fmt.Sprintf("reasonable-comp-%s-%s.pdf", slug, at.Format("2006-01-02"))
}
