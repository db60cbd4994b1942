// Package domain contains core business types and interfaces.
//
// This file defines subscription tiers and the daily usage ledger that gates
// AI processing runs.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is a subscription level.
type Tier string

const (
	TierStarter Tier = "Starter"
	TierPro     Tier = "Pro"
	TierElite   Tier = "Elite"
)

const (
	// UsageFloor is the lowest balance an account may be driven to. A
	// reservation is refused once the balance is at or below it.
	UsageFloor = -3

	// ResetWindow is the time after which the balance is refilled.
	ResetWindow = 24 * time.Hour
)

// TierAllowances maps each tier to its daily processing allowance.
var TierAllowances = map[Tier]int{
	TierStarter: 3,
	TierPro:     10,
	TierElite:   20,
}

// Allowance returns the daily allowance, falling back to Starter for unknown tiers.
func (t Tier) Allowance() int {
	if n, ok := TierAllowances[t]; ok {
		return n
	}
	return TierAllowances[TierStarter]
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := TierAllowances[t]
	return ok
}

var tierCaser = cases.Title(language.English)

// ParseTier normalises user or webhook input ("pro", "ELITE") into a Tier.
func ParseTier(s string) (Tier, bool) {
	t := Tier(tierCaser.String(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Usage is the quota ledger of one account.
type Usage struct {
	Tier        Tier
	Count       int
	LastResetAt time.Time
}

// ResetDue reports whether more than ResetWindow has passed since the last reset.
func (u Usage) ResetDue(now time.Time) bool {
	return now.Sub(u.LastResetAt) > ResetWindow
}

// ApplyReset refills the balance when the window has elapsed. It reports
// whether a reset happened.
func (u *Usage) ApplyReset(now time.Time) bool {
	if !u.ResetDue(now) {
		return false
	}
	u.Count = u.Tier.Allowance()
	u.LastResetAt = now
	return true
}

// Reserve consumes one use when the balance is above the floor. It returns
// the balance before the decrement.
func (u *Usage) Reserve() (previous int, ok bool) {
	if u.Count <= UsageFloor {
		return u.Count, false
	}
	previous = u.Count
	u.Count--
	return previous, true
}

// NextResetAt is the earliest instant at which the balance will be refilled.
func (u Usage) NextResetAt() time.Time {
	return u.LastResetAt.Add(ResetWindow)
}

// IsOverdraft reports whether a run started at the given pre-decrement
// balance goes beyond the daily allowance.
func IsOverdraft(balance int) bool {
	return balance <= 0
}

// Reservation is the outcome of a successful CheckAndReserve.
type Reservation struct {
	// UsageCount is the balance seen before this reservation's decrement.
	UsageCount int
	// Remaining is the persisted balance after the decrement.
	Remaining int
	Tier      Tier
	Overdraft bool
	Reset     bool
}

// QuotaUsage is a read-only view of an account's ledger.
type QuotaUsage struct {
	Tier        Tier      `json:"tier"`
	Allowance   int       `json:"allowance"`
	UsageCount  int       `json:"usage_count"`
	Floor       int       `json:"floor"`
	NextResetAt time.Time `json:"next_reset_at"`
	Overdraft   bool      `json:"overdraft"`
	Exhausted   bool      `json:"exhausted"`
}

// View computes the ledger as it would look at now, applying a due reset
// without mutating u.
func (u Usage) View(now time.Time) QuotaUsage {
	eff := u
	eff.ApplyReset(now)
	return QuotaUsage{
		Tier:        eff.Tier,
		Allowance:   eff.Tier.Allowance(),
		UsageCount:  eff.Count,
		Floor:       UsageFloor,
		NextResetAt: eff.NextResetAt(),
		Overdraft:   IsOverdraft(eff.Count) && eff.Count > UsageFloor,
		Exhausted:   eff.Count <= UsageFloor,
	}
}

// DecrementMode controls how many deductions a successful processing run costs.
type DecrementMode string

const (
	// DecrementReserveConfirm deducts at reservation and again after the AI
	// call succeeds.
	DecrementReserveConfirm DecrementMode = "reserve_confirm"
	// DecrementSingle deducts only at reservation.
	DecrementSingle DecrementMode = "single"
)
