package model

import (
	"time"

	"github.com/google/uuid"
)

// Recurrence intervals. These strings are part of the wire contract and
// must be preserved verbatim.
const (
	IntervalWeekly       = "weekly"
	IntervalEvery2Weeks  = "every_2_weeks"
	IntervalMonthly      = "monthly"
	IntervalEvery2Months = "every_2_months"
	IntervalQuarterly    = "quarterly"
	IntervalEvery6Months = "every_6_months"
	IntervalYearly       = "yearly"
)

// Automation is a recurring-invoice definition. It holds a read-only
// reference to one source invoice used as the template (never mutated).
//
// Lifecycle: created with Active=true; each successful run advances
// NextRunDate by the interval, or — once EndDate is reached — sets
// Active=false and NextRunDate=nil, which is terminal.
type Automation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID `gorm:"type:uuid;index;not null"`
	SourceInvoiceID uuid.UUID `gorm:"type:uuid;not null"`

	Interval    string     `gorm:"type:varchar(20);not null"`
	NextRunDate *time.Time `gorm:"index"`
	EndDate     *time.Time
	LastRunDate *time.Time
	Active      bool `gorm:"not null;default:true"`

	// ClaimedUntil is a processing lease: a run may only pick up this
	// automation after conditionally setting the lease, which keeps two
	// overlapping runs from generating the same invoice twice.
	ClaimedUntil *time.Time

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
