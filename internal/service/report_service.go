package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
	"github.com/noah-isme/attachment-portal-api/pkg/export"
)

type reportStudentSource interface {
	ListAll(ctx context.Context) ([]models.StudentProfileDetail, error)
}

type reportCompanySource interface {
	ListAll(ctx context.Context) ([]models.CompanyDetail, error)
}

type reportAttachmentSource interface {
	ListAll(ctx context.Context, filter models.AttachmentFilter) ([]models.AttachmentDetail, error)
}

type reportReturnSource interface {
	ListAll(ctx context.Context, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, error)
}

type reportHistoryRepository interface {
	Create(ctx context.Context, entry *models.ReportHistory) error
	ListRecent(ctx context.Context, limit int) ([]models.ReportHistory, error)
}

type reportRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ReportSources groups the repositories reports read from.
type ReportSources struct {
	Students    reportStudentSource
	Companies   reportCompanySource
	Attachments reportAttachmentSource
	Returns     reportReturnSource
}

// ReportService renders administrative reports and records their history.
type ReportService struct {
	sources      ReportSources
	history      reportHistoryRepository
	renderers    map[models.ReportFormat]reportRenderer
	metrics      *MetricsService
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// NewReportService constructs a ReportService rendering PDF and CSV.
func NewReportService(sources ReportSources, history reportHistoryRepository, metrics *MetricsService, historyLimit int, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ReportService{
		sources: sources,
		history: history,
		renderers: map[models.ReportFormat]reportRenderer{
			models.ReportFormatPDF: export.NewPDFExporter(),
			models.ReportFormatCSV: export.NewCSVExporter(),
		},
		metrics:      metrics,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// Types lists the supported report types.
func (s *ReportService) Types() []models.ReportTypeInfo {
	return models.ReportTypes
}

// Generate renders the requested report for an administrator.
func (s *ReportService) Generate(ctx context.Context, actor models.Actor, reportType models.ReportType, params models.ReportParams) (*models.ReportFile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if !reportType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedReportType, "")
	}
	if params.Format == "" {
		params.Format = models.ReportFormatPDF
	}
	renderer, ok := s.renderers[params.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", params.Format))
	}
	filter, err := parseReportFilter(params)
	if err != nil {
		return nil, err
	}

	started := s.now()
	data, err := s.dataset(ctx, reportType, filter)
	if err != nil {
		return nil, err
	}
	data.Title = reportType.Label()
	data.GeneratedAt = started

	content, err := renderer.Render(data)
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}
	s.metrics.ObserveReport(string(reportType), string(params.Format), s.now().Sub(started))

	by := actor.UserID
	entry := &models.ReportHistory{ReportType: reportType, GeneratedBy: &by, GeneratedAt: started.UTC(), Parameters: params}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record report history", zap.String("report_type", string(reportType)), zap.Error(err))
	}
	s.logger.Info("report generated",
		zap.String("report_type", string(reportType)),
		zap.String("format", string(params.Format)),
		zap.Int("rows", len(data.Rows)),
		zap.String("actor_id", actor.UserID))

	return &models.ReportFile{
		Filename:    fmt.Sprintf("%s_report.%s", reportType, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

// History returns the most recent report generations.
func (s *ReportService) History(ctx context.Context, actor models.Actor) ([]models.ReportHistory, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	items, err := s.history.ListRecent(ctx, s.historyLimit)
	if err != nil {
		return nil, internalError(err, "failed to load report history")
	}
	return items, nil
}

// parseReportFilter applies the date range only when both bounds are present.
func parseReportFilter(params models.ReportParams) (models.ReportFilter, error) {
	filter := models.ReportFilter{Status: strings.TrimSpace(params.Status), Format: params.Format}
	if params.StartDate == "" || params.EndDate == "" {
		return filter, nil
	}
	start, end, err := parseDateRange(params.StartDate, params.EndDate)
	if err != nil {
		return filter, err
	}
	filter.StartDate, filter.EndDate = &start, &end
	return filter, nil
}

func (s *ReportService) dataset(ctx context.Context, reportType models.ReportType, filter models.ReportFilter) (export.Dataset, error) {
	switch reportType {
	case models.ReportStudents:
		return s.studentsDataset(ctx)
	case models.ReportCompanies:
		return s.companiesDataset(ctx)
	case models.ReportAttachments:
		return s.attachmentsDataset(ctx, filter)
	case models.ReportNSSFReturns:
		return s.returnsDataset(ctx, filter)
	default:
		return export.Dataset{}, appErrors.Clone(appErrors.ErrUnsupportedReportType, "")
	}
}

func (s *ReportService) studentsDataset(ctx context.Context) (export.Dataset, error) {
	rows, err := s.sources.Students.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, internalError(err, "failed to load students")
	}
	data := export.Dataset{Headers: []string{"Student ID", "Name", "Username", "Email", "Department"}}
	for _, p := range rows {
		data.AddRow(p.StudentID, p.FullName, p.Username, p.Email, p.Department)
	}
	return data, nil
}

func (s *ReportService) companiesDataset(ctx context.Context) (export.Dataset, error) {
	rows, err := s.sources.Companies.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, internalError(err, "failed to load companies")
	}
	data := export.Dataset{Headers: []string{"Name", "Address", "NSSF Number", "Contact", "Email"}}
	for _, c := range rows {
		data.AddRow(c.Name, c.Address, deref(c.NSSFNumber), c.Username, c.UserEmail)
	}
	return data, nil
}

func (s *ReportService) attachmentsDataset(ctx context.Context, filter models.ReportFilter) (export.Dataset, error) {
	af := models.AttachmentFilter{StartFrom: filter.StartDate, EndUntil: filter.EndDate}
	if filter.Status != "" {
		status := models.AttachmentStatus(filter.Status)
		if !status.Valid() {
			return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", filter.Status))
		}
		af.Status = &status
	}
	rows, err := s.sources.Attachments.ListAll(ctx, af)
	if err != nil {
		return export.Dataset{}, internalError(err, "failed to load attachments")
	}
	data := export.Dataset{Headers: []string{"Student ID", "Student", "Company", "Start", "End", "Supervisor", "Status"}}
	for _, a := range rows {
		data.AddRow(a.StudentNumber, a.StudentFullName, a.CompanyName,
			a.StartDate.Format(dateLayout), a.EndDate.Format(dateLayout), a.SupervisorName, string(a.Status))
	}
	return data, nil
}

func (s *ReportService) returnsDataset(ctx context.Context, filter models.ReportFilter) (export.Dataset, error) {
	rf := models.NSSFReturnFilter{}
	if filter.StartDate != nil {
		from := models.FirstOfMonth(*filter.StartDate)
		to := models.FirstOfMonth(*filter.EndDate)
		rf.MonthFrom, rf.MonthTo = &from, &to
	}
	rows, err := s.sources.Returns.ListAll(ctx, rf)
	if err != nil {
		return export.Dataset{}, internalError(err, "failed to load returns")
	}
	data := export.Dataset{Headers: []string{"Company", "Month", "Submitted", "Status", "Processed", "Late"}}
	for _, r := range rows {
		data.AddRow(r.CompanyName, r.Month.Format("2006-01"), r.SubmittedOn.Format(dateLayout),
			string(r.Status), yesNo(r.IsProcessed), yesNo(r.IsLate()))
	}
	return data, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
