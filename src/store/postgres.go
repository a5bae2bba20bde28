package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"optionsedge/src/eventmodels"
	"optionsedge/src/logger"
)

func InitPostgresWithUrl(url string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.NewLogrusLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&PositionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.AutoMigrate(&TradeRecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func InitPostgres(host, port, user, password, dbName string) (*gorm.DB, error) {
	url := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", host, user, password, dbName, port)
	return InitPostgresWithUrl(url)
}

// PostgresStore implements PositionStore on gorm. MarkClosed uses a
// conditional update so exactly one closer wins the open -> closed
// transition.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]eventmodels.Position, error) {
	var records []PositionRecord

	tx := s.db.WithContext(ctx).
		Where("status = ?", string(eventmodels.PositionStatusOpen)).
		Order("opened_at asc").
		Find(&records)
	if tx.Error != nil {
		return nil, fmt.Errorf("PostgresStore:ListOpen(): %w", tx.Error)
	}

	positions := make([]eventmodels.Position, 0, len(records))
	for i := range records {
		positions = append(positions, records[i].toPosition())
	}

	return positions, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*eventmodels.Position, error) {
	var record PositionRecord

	tx := s.db.WithContext(ctx).Where("position_id = ?", id).First(&record)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("PostgresStore:Get(): %w", eventmodels.ErrPositionNotFound)
		}

		return nil, fmt.Errorf("PostgresStore:Get(): %w", tx.Error)
	}

	position := record.toPosition()

	return &position, nil
}

func (s *PostgresStore) Save(ctx context.Context, position *eventmodels.Position) error {
	record := recordFromPosition(position)

	var existing PositionRecord

	tx := s.db.WithContext(ctx).Where("position_id = ?", position.ID).First(&existing)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
				return fmt.Errorf("PostgresStore:Save(): failed to create position: %w", err)
			}

			return nil
		}

		return fmt.Errorf("PostgresStore:Save(): %w", tx.Error)
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("PostgresStore:Save(): failed to update position: %w", err)
	}

	return nil
}

func (s *PostgresStore) MarkClosed(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()

	tx := s.db.WithContext(ctx).
		Model(&PositionRecord{}).
		Where("position_id = ? AND status = ?", id, string(eventmodels.PositionStatusOpen)).
		Updates(map[string]interface{}{
			"status":       string(eventmodels.PositionStatusClosed),
			"closed_at":    now,
			"close_reason": reason,
		})
	if tx.Error != nil {
		return fmt.Errorf("PostgresStore:MarkClosed(): %w", tx.Error)
	}

	if tx.RowsAffected == 0 {
		// distinguish missing from already closed
		var count int64
		if err := s.db.WithContext(ctx).Model(&PositionRecord{}).Where("position_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("PostgresStore:MarkClosed(): %w", err)
		}

		if count == 0 {
			return fmt.Errorf("PostgresStore:MarkClosed(): %w", eventmodels.ErrPositionNotFound)
		}

		return fmt.Errorf("PostgresStore:MarkClosed(): %w", eventmodels.ErrPositionAlreadyClosed)
	}

	return nil
}

func (s *PostgresStore) UpdatePnl(ctx context.Context, id string, pnlPercent float64) error {
	tx := s.db.WithContext(ctx).
		Model(&PositionRecord{}).
		Where("position_id = ? AND status = ?", id, string(eventmodels.PositionStatusOpen)).
		Update("pnl_percent", pnlPercent)
	if tx.Error != nil {
		return fmt.Errorf("PostgresStore:UpdatePnl(): %w", tx.Error)
	}

	if tx.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&PositionRecord{}).Where("position_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("PostgresStore:UpdatePnl(): %w", err)
		}

		if count == 0 {
			return fmt.Errorf("PostgresStore:UpdatePnl(): %w", eventmodels.ErrPositionNotFound)
		}

		// closed since the caller's read; the final pnl stands
	}

	return nil
}

func (s *PostgresStore) RecordTrade(ctx context.Context, trade *eventmodels.TradeRecord) error {
	row := TradeRecordRow{
		PositionID: trade.PositionID,
		Ticker:     trade.Ticker,
		Strike:     trade.Strike,
		Expiration: trade.Expiration,
		Right:      trade.Right,
		Contracts:  trade.Contracts,
		EntryPrice: trade.EntryPrice,
		PnlPercent: trade.PnlPercent,
		Reason:     trade.Reason,
		ClosedAt:   trade.ClosedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("PostgresStore:RecordTrade(): %w", err)
	}

	return nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, limit int) ([]eventmodels.TradeRecord, error) {
	var rows []TradeRecordRow

	query := s.db.WithContext(ctx).Order("closed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("PostgresStore:ListTrades(): %w", err)
	}

	trades := make([]eventmodels.TradeRecord, 0, len(rows))
	for i := range rows {
		trades = append(trades, rows[i].toTradeRecord())
	}

	return trades, nil
}
