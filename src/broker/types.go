package broker

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Trade statuses as reported by the broker API.
const (
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusPending   = "PENDING"
	StatusOpen      = "OPEN"
)

// Trade directions.
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// FlexTime is a timestamp that the broker API has shipped both as an
// epoch-millisecond number and as an RFC3339 string, depending on the
// endpoint version. It unmarshals either form; a missing, null or
// unparseable value yields the zero time.
type FlexTime struct {
	t time.Time
}

// NewFlexTime wraps a concrete time.
func NewFlexTime(t time.Time) FlexTime { return FlexTime{t: t} }

func (ft FlexTime) Time() time.Time { return ft.t }
func (ft FlexTime) IsZero() bool    { return ft.t.IsZero() }

func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		ft.t = time.Time{}
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			ft.t = time.Time{}
			return nil
		}
		// Some payloads carry RFC3339, others a bare epoch inside a string.
		if parsed, err := time.Parse(time.RFC3339, str); err == nil {
			ft.t = parsed
			return nil
		}
		if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
			ft.t = time.UnixMilli(ms)
			return nil
		}
		ft.t = time.Time{}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	ft.t = time.UnixMilli(int64(ms))
	return nil
}

func (ft FlexTime) MarshalJSON() ([]byte, error) {
	if ft.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ft.t.UnixMilli())
}

// Trade is a single operation returned by the broker API.
//
// The canonical fields are Amount (invested value) and PnL (signed result),
// but older API versions exposed the same values under a handful of
// alternative names. All of them are optional pointers so that an explicit
// zero is distinguishable from an absent field, and they are resolved by
// reporting.TradeAmount / reporting.TradeResult.
type Trade struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	UserID     string   `json:"userId,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
	Status     string   `json:"status"`
	Direction  string   `json:"direction"`
	PnL        *float64 `json:"pnl,omitempty"`
	Result     string   `json:"result,omitempty"`
	OpenPrice  float64  `json:"openPrice"`
	ClosePrice float64  `json:"closePrice"`
	OpenTime   FlexTime `json:"openTime"`
	CloseTime  FlexTime `json:"closeTime"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`

	// Legacy field variants seen across broker API versions.
	InvestmentBRL *float64 `json:"investmentBRL,omitempty"`
	AmountBRL     *float64 `json:"amountBRL,omitempty"`
	Aport         *float64 `json:"aport,omitempty"`
	EntryValueBRL *float64 `json:"entryValueBRL,omitempty"`
	ExitValueBRL  *float64 `json:"exitValueBRL,omitempty"`
	ResultBRL     *float64 `json:"resultBRL,omitempty"`
	ProfitBRL     *float64 `json:"profitBRL,omitempty"`
	PnLBRL        *float64 `json:"pnlBRL,omitempty"`
	Profit        *float64 `json:"profit,omitempty"`
}

// TradesResponse is the paginated envelope of GET /token/trades.
type TradesResponse struct {
	CurrentPage int     `json:"currentPage"`
	PerPage     int     `json:"perPage"`
	LastPage    int     `json:"lastPage"`
	NextPage    *int    `json:"nextPage"`
	PrevPage    *int    `json:"prevPage"`
	Pages       int     `json:"pages"`
	Total       int     `json:"total"`
	Count       int     `json:"count"`
	Data        []Trade `json:"data"`
}

// TotalPageCount resolves the number of pages. The API does not always fill
// the envelope counters, so this falls back the same way the dashboard
// does: explicit pages field, then ceil(total/pageSize), then a minimal
// inference from whether the current page came back full.
func (r *TradesResponse) TotalPageCount(page, pageSize int) int {
	if r.Pages > 0 {
		return r.Pages
	}
	if r.LastPage > 0 {
		return r.LastPage
	}
	if r.Total > 0 && pageSize > 0 {
		return (r.Total + pageSize - 1) / pageSize
	}
	if len(r.Data) == pageSize {
		return page + 1
	}
	if page > 1 {
		return page
	}
	return 1
}

// UserData is the broker-side profile of the token owner.
type UserData struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenantId"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Nickname         string `json:"nickname"`
	Country          string `json:"country"`
	Language         string `json:"language"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phoneCountryCode,omitempty"`
	Active           bool   `json:"active"`
	Banned           bool   `json:"banned"`
	EmailVerified    bool   `json:"emailVerified"`
	LastLoginAt      string `json:"lastLoginAt"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// Wallet is a broker account balance.
type Wallet struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"createdAt"`
}
