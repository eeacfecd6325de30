package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/birizinit/meuacessor/src/broker"
	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/metrics"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/reporting"
)

const (
	ckUserTrades          = "trades_user_%d"
	ReportCleanupInterval = 5 * time.Minute
)

// BrokerClient is the slice of broker.Client the report service needs.
// Tests substitute a fake.
type BrokerClient interface {
	AllTrades(ctx context.Context, pageSize, maxPages int) ([]broker.Trade, error)
	Wallets(ctx context.Context) ([]broker.Wallet, error)
}

type tradeReportServiceImpl struct {
	db            *sql.DB
	reportCache   *cache.Cache
	fetchGroup    singleflight.Group
	clientFactory func(apiToken string) BrokerClient
	pageSize      int
	maxPages      int
}

// NewTradeReportService builds the report service on the shared report
// cache. Broker clients are constructed per call since each user carries
// their own token.
func NewTradeReportService(db *sql.DB, reportCache *cache.Cache) TradeReportService {
	return &tradeReportServiceImpl{
		db:          db,
		reportCache: reportCache,
		clientFactory: func(apiToken string) BrokerClient {
			return broker.NewClient(config.Cfg.BrokerAPIBaseURL, apiToken, config.Cfg.BrokerTimeout)
		},
		pageSize: config.Cfg.TradeFetchPageSize,
		maxPages: config.Cfg.TradeFetchMaxPages,
	}
}

// fetchTrades returns the user's full trade history, serving repeats from
// the report cache and collapsing concurrent fetches for the same user
// into a single upstream call.
func (s *tradeReportServiceImpl) fetchTrades(ctx context.Context, userID int64) ([]broker.Trade, error) {
	cacheKey := fmt.Sprintf(ckUserTrades, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		metrics.ObserveReportCache(true)
		return cached.([]broker.Trade), nil
	}
	metrics.ObserveReportCache(false)

	result, err, _ := s.fetchGroup.Do(cacheKey, func() (interface{}, error) {
		if cached, found := s.reportCache.Get(cacheKey); found {
			return cached.([]broker.Trade), nil
		}

		user, err := model.GetUserByID(s.db, userID)
		if err != nil {
			return nil, fmt.Errorf("loading user %d: %w", userID, err)
		}
		if user.APIToken == "" {
			return nil, ErrBrokerTokenMissing
		}

		client := s.clientFactory(user.APIToken)
		trades, err := client.AllTrades(ctx, s.pageSize, s.maxPages)
		if err != nil {
			return nil, err
		}

		logger.FromContext(ctx).Debug("Fetched broker trades", "userID", userID, "count", len(trades))
		s.reportCache.Set(cacheKey, trades, cache.DefaultExpiration)
		return trades, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]broker.Trade), nil
}

func (s *tradeReportServiceImpl) InvalidateUser(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckUserTrades, userID))
}

func (s *tradeReportServiceImpl) Summary(ctx context.Context, userID int64, period reporting.Period, reference time.Time) (*reporting.Summary, error) {
	trades, err := s.fetchTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	window := reporting.Resolve(period, reference)
	summary := reporting.Aggregate(period, window, reporting.FilterByRange(trades, window))
	return &summary, nil
}

func (s *tradeReportServiceImpl) MonthSummary(ctx context.Context, userID int64, monthName string, year int) (*reporting.Summary, error) {
	window, err := reporting.MonthRange(monthName, year, time.Local)
	if err != nil {
		return nil, err
	}
	trades, err := s.fetchTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := reporting.Aggregate(reporting.PeriodMonth, window, reporting.FilterByRange(trades, window))
	return &summary, nil
}

func (s *tradeReportServiceImpl) TopSymbols(ctx context.Context, userID int64, period reporting.Period, reference time.Time) ([]reporting.RankedSymbolStat, error) {
	trades, err := s.fetchTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	window := reporting.Resolve(period, reference)
	return reporting.TopSymbols(reporting.FilterByRange(trades, window), reporting.DefaultRankingSize), nil
}

// filteredOperations resolves the window plus result filter to the
// export-ready rows, newest first by position in the broker response.
func (s *tradeReportServiceImpl) filteredOperations(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter) ([]reporting.Operation, error) {
	trades, err := s.fetchTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	filtered := reporting.FilterByResult(reporting.FilterByRange(trades, window), filter)
	operations := make([]reporting.Operation, 0, len(filtered))
	for _, t := range filtered {
		operations = append(operations, reporting.TradeToOperation(t))
	}
	return operations, nil
}

func (s *tradeReportServiceImpl) Operations(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter, page, pageSize int) (*OperationsPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	all, err := s.filteredOperations(ctx, userID, window, filter)
	if err != nil {
		return nil, err
	}

	total := len(all)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &OperationsPage{
		Operations:  all[start:end],
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
	}, nil
}

func (s *tradeReportServiceImpl) ExportCSV(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter) (string, error) {
	operations, err := s.filteredOperations(ctx, userID, window, filter)
	if err != nil {
		return "", err
	}
	return reporting.OperationsCSV(operations), nil
}

func (s *tradeReportServiceImpl) Wallets(ctx context.Context, userID int64) ([]broker.Wallet, error) {
	user, err := model.GetUserByID(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}
	if user.APIToken == "" {
		return nil, ErrBrokerTokenMissing
	}
	return s.clientFactory(user.APIToken).Wallets(ctx)
}
