package models

// DailyCounter holds the last issued queue number for one service day (YYYYMMDD).
type DailyCounter struct {
	Day   string `gorm:"type:varchar(8);primaryKey"`
	Value int    `gorm:"not null;default:0"`
}
