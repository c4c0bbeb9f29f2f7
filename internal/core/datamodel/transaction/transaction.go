package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          int64           `gorm:"primaryKey"`
	UserID      int64           `gorm:"column:user_id;not null;index"`
	Date        time.Time       `gorm:"column:date;type:date;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency    string          `gorm:"column:currency;size:3;not null"`
	Description string          `gorm:"column:description;size:500;not null"`
	Merchant    *string         `gorm:"column:merchant"`
	Category    *string         `gorm:"column:category"`
	Fingerprint string          `gorm:"column:fingerprint;size:64;not null;index"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
