package providers

import "time"

// Fundamentals is the §4.1 fundamentals contract.
type Fundamentals struct {
	FloatShares       float64
	MarketCap         float64
	SharesOutstanding float64
	Asof              time.Time
}

// Liquidity is the §4.1 liquidity contract.
type Liquidity struct {
	AvgDollarLiquidity30d float64
	ADV30Shares           float64
	Asof                  time.Time
}

// Borrow is the §4.1 borrow contract.
type Borrow struct {
	BorrowFeePct       float64
	BorrowFeeTrendPP7d float64
	UtilizationPct     float64
	Asof               time.Time
}

// ShortInterest is the §4.1 direct short-interest contract.
type ShortInterest struct {
	ShortInterestShares float64
	ShortInterestPct    float64
	DaysToCover         float64
	Asof                time.Time
}

// CatalystItem mirrors model.CatalystItem for provider-sourced catalysts.
type CatalystItem struct {
	Title string
	Date  time.Time
}

// CatalystRecord is the §4.1 catalyst contract.
type CatalystRecord struct {
	Type             string
	VerifiedInWindow bool
	DateValid        bool
	DaysToEvent      float64
	Strength         float64
	Items            []CatalystItem
	Asof             time.Time
}

// Quote is the live trade/quote snapshot (no TTL beyond the request itself).
type Quote struct {
	LastTrade    float64
	Bid          float64
	Ask          float64
	DayVolume    float64
	DayChangePct float64
	SpreadPct    float64
	Halted       bool
	Timestamp    time.Time
}

// Bar is one OHLCV bar, minute or daily depending on the query.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// SnapshotRow is one row of the full-market pre-filter snapshot (§4.5).
type SnapshotRow struct {
	Ticker          string
	Price           float64
	DayVolume       float64
	DayChangePct    float64
	DayDollarVolume float64
}

// FinraDailyRow is one symbol's row from a FINRA short-volume daily file.
type FinraDailyRow struct {
	Ticker    string
	ShortVol  float64
	TotalVol  float64
	TradeDate time.Time
}

// Options is the optional options-market sub-record.
type Options struct {
	CallPutRatio float64
}

// Sentiment is the optional provider sentiment sub-record.
type Sentiment struct {
	Score float64 // -1..1
}

// Social is the optional social-velocity sub-record.
type Social struct {
	MentionsToday float64
	AvgMentions7d float64
}
