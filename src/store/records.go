package store

import (
	"time"

	"gorm.io/gorm"

	"optionsedge/src/eventmodels"
)

type PositionRecord struct {
	gorm.Model
	PositionID  string     `gorm:"column:position_id;type:text;uniqueIndex;not null"`
	Identity    string     `gorm:"column:identity;type:text;not null"`
	Ticker      string     `gorm:"column:ticker;type:text;not null"`
	Strike      float64    `gorm:"column:strike;type:numeric;not null"`
	Expiration  string     `gorm:"column:expiration;type:text;not null"`
	Right       string     `gorm:"column:option_right;type:text;not null"`
	EntryPrice  float64    `gorm:"column:entry_price;type:numeric;not null"`
	Contracts   int        `gorm:"column:contracts;not null"`
	TakeProfit  *float64   `gorm:"column:take_profit;type:numeric"`
	StopLoss    *float64   `gorm:"column:stop_loss;type:numeric"`
	Status      string     `gorm:"column:status;type:text;not null;index"`
	PnlPercent  float64    `gorm:"column:pnl_percent;type:numeric;not null"`
	Source      string     `gorm:"column:source;type:text;not null"`
	OpenedAt    time.Time  `gorm:"column:opened_at;type:timestamp;not null"`
	ClosedAt    *time.Time `gorm:"column:closed_at;type:timestamp"`
	CloseReason string     `gorm:"column:close_reason;type:text"`
}

func (PositionRecord) TableName() string {
	return "positions"
}

type TradeRecordRow struct {
	gorm.Model
	PositionID string    `gorm:"column:position_id;type:text;not null;index"`
	Ticker     string    `gorm:"column:ticker;type:text;not null"`
	Strike     float64   `gorm:"column:strike;type:numeric;not null"`
	Expiration string    `gorm:"column:expiration;type:text;not null"`
	Right      string    `gorm:"column:option_right;type:text;not null"`
	Contracts  int       `gorm:"column:contracts;not null"`
	EntryPrice float64   `gorm:"column:entry_price;type:numeric;not null"`
	PnlPercent float64   `gorm:"column:pnl_percent;type:numeric;not null"`
	Reason     string    `gorm:"column:reason;type:text;not null"`
	ClosedAt   time.Time `gorm:"column:closed_at;type:timestamp;not null"`
}

func (TradeRecordRow) TableName() string {
	return "trades"
}

func recordFromPosition(p *eventmodels.Position) PositionRecord {
	return PositionRecord{
		PositionID:  p.ID,
		Identity:    p.Identity,
		Ticker:      p.Ticker,
		Strike:      p.Contract.Strike,
		Expiration:  p.Contract.Expiration,
		Right:       string(p.Contract.Right),
		EntryPrice:  p.EntryPrice,
		Contracts:   p.Contracts,
		TakeProfit:  p.TakeProfit,
		StopLoss:    p.StopLoss,
		Status:      string(p.Status),
		PnlPercent:  p.PnlPercent,
		Source:      string(p.Source),
		OpenedAt:    p.CreatedAt,
		ClosedAt:    p.ClosedAt,
		CloseReason: p.CloseReason,
	}
}

func (r *PositionRecord) toPosition() eventmodels.Position {
	return eventmodels.Position{
		ID:       r.PositionID,
		Identity: r.Identity,
		Ticker:   r.Ticker,
		Contract: eventmodels.OptionContract{
			Strike:     r.Strike,
			Expiration: r.Expiration,
			Right:      eventmodels.OptionRight(r.Right),
		},
		EntryPrice:  r.EntryPrice,
		Contracts:   r.Contracts,
		TakeProfit:  r.TakeProfit,
		StopLoss:    r.StopLoss,
		Status:      eventmodels.PositionStatus(r.Status),
		PnlPercent:  r.PnlPercent,
		Source:      eventmodels.PositionSource(r.Source),
		CreatedAt:   r.OpenedAt,
		ClosedAt:    r.ClosedAt,
		CloseReason: r.CloseReason,
	}
}

func (r *TradeRecordRow) toTradeRecord() eventmodels.TradeRecord {
	return eventmodels.TradeRecord{
		PositionID: r.PositionID,
		Ticker:     r.Ticker,
		Strike:     r.Strike,
		Expiration: r.Expiration,
		Right:      r.Right,
		Contracts:  r.Contracts,
		EntryPrice: r.EntryPrice,
		PnlPercent: r.PnlPercent,
		Reason:     r.Reason,
		ClosedAt:   r.ClosedAt,
	}
}
