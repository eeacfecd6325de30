package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/birizinit/meuacessor/src/broker"
	"github.com/birizinit/meuacessor/src/reporting"
)

// Common service errors.
var (
	// ErrBrokerTokenMissing means the user has no broker API token saved
	// on their profile yet.
	ErrBrokerTokenMissing = errors.New("broker api token not configured")
)

// OperationsPage is one page of the operations table.
type OperationsPage struct {
	Operations  []reporting.Operation `json:"operations"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"pageSize"`
	Total       int                   `json:"total"`
	TotalPages  int                   `json:"totalPages"`
	HasNextPage bool                  `json:"hasNextPage"`
}

// TradeReportService is the aggregation pipeline behind the dashboard
// cards. One fetch per user feeds every card through a shared cache, so
// rapid period switches and multiple visible cards do not refetch the
// broker API independently.
type TradeReportService interface {
	Summary(ctx context.Context, userID int64, period reporting.Period, reference time.Time) (*reporting.Summary, error)
	MonthSummary(ctx context.Context, userID int64, monthName string, year int) (*reporting.Summary, error)
	TopSymbols(ctx context.Context, userID int64, period reporting.Period, reference time.Time) ([]reporting.RankedSymbolStat, error)
	Operations(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter, page, pageSize int) (*OperationsPage, error)
	ExportCSV(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter) (string, error)
	Wallets(ctx context.Context, userID int64) ([]broker.Wallet, error)
	// InvalidateUser drops the cached trade list, e.g. after the user
	// changes their broker token.
	InvalidateUser(userID int64)
}

// UploadService validates and stores profile images.
type UploadService interface {
	// ProcessProfileImage validates the upload and persists it, returning
	// the public path saved on the user row.
	ProcessProfileImage(userID int64, filename, contentType string, size int64, content io.ReadSeeker) (string, error)
	// RemoveProfileImage deletes a stored image by its public path.
	RemoveProfileImage(publicPath string) error
}

// EmailService delivers transactional email. Implementations may be
// no-ops when SMTP is not configured.
type EmailService interface {
	SendVerificationEmail(toEmail, name, token string) error
	SendPasswordResetEmail(toEmail, name, token string) error
}
