// Package receipt assembles consent receipts and evaluates SIM swap risk.
package receipt

import (
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	// RiskWindowDays is the SIM swap age below which a number is at risk.
	RiskWindowDays = 30

	ReasonRecentSimSwap = "RECENT_SIM_SWAP"
	ReasonSimStable     = "SIM_STABLE"
	ReasonSimRecycled   = "SIM_RECYCLED"

	// timestampLayout matches the ISO 8601 output of JavaScript's toISOString.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ConsentReceipt is the externally visible verification summary.
type ConsentReceipt struct {
	ReceiptID     string   `json:"receiptId" yaml:"receiptId"`
	PhoneNumber   string   `json:"phoneNumber,omitempty" yaml:"phoneNumber,omitempty"`
	Verified      *bool    `json:"verified,omitempty" yaml:"verified,omitempty"`
	RecycledSince string   `json:"recycledSince,omitempty" yaml:"recycledSince,omitempty"`
	ReasonCode    string   `json:"reasonCode,omitempty" yaml:"reasonCode,omitempty"`
	SimSwapDate   string   `json:"simSwapDate,omitempty" yaml:"simSwapDate,omitempty"`
	DaysSinceSwap *int     `json:"daysSinceSwap,omitempty" yaml:"daysSinceSwap,omitempty"`
	SimSwapRisk   *bool    `json:"simSwapRisk,omitempty" yaml:"simSwapRisk,omitempty"`
	KYCMatch      *bool    `json:"kycMatch,omitempty" yaml:"kycMatch,omitempty"`
	KYCConfidence *float64 `json:"kycConfidence,omitempty" yaml:"kycConfidence,omitempty"`
	Timestamp     string   `json:"timestamp" yaml:"timestamp"`
}

// SimSwapAssessment is the risk evaluation of the latest SIM change.
type SimSwapAssessment struct {
	// SimSwapDate is nil when no SIM change is on record.
	SimSwapDate   *time.Time
	DaysSinceSwap *int
	Risk          bool
	ReasonCode    string
}

// AssessSimSwap evaluates the latest SIM change relative to now. Days are
// counted as whole 24h periods, rounded down.
func AssessSimSwap(changed *time.Time, now time.Time) SimSwapAssessment {
	if changed == nil {
		return SimSwapAssessment{ReasonCode: ReasonSimStable}
	}
	days := DaysBetween(*changed, now)
	risk := days < RiskWindowDays
	reason := ReasonSimStable
	if risk {
		reason = ReasonRecentSimSwap
	}
	return SimSwapAssessment{
		SimSwapDate:   changed,
		DaysSinceSwap: &days,
		Risk:          risk,
		ReasonCode:    reason,
	}
}

// DaysBetween returns floor((to - from) / 24h).
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Generator stamps receipts with an id and a timestamp.
type Generator struct {
	now  func() time.Time
	node *snowflake.Node
	mu   sync.Mutex
	last int64
}

// NewGenerator creates a generator for the given snowflake node (0-1023).
// When the node cannot be created ids fall back to strictly increasing
// millisecond timestamps.
func NewGenerator(nodeID int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		node = nil
	}
	return &Generator{now: now, node: node}
}

// Now returns the generator clock.
func (g *Generator) Now() time.Time {
	return g.now()
}

// NewID returns a receipt id of the form CR-<digits>.
func (g *Generator) NewID() string {
	if g.node != nil {
		return "CR-" + g.node.Generate().String()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return "CR-" + strconv.FormatInt(ms, 10)
}

// New returns a receipt carrying a fresh id and timestamp.
func (g *Generator) New() *ConsentReceipt {
	return &ConsentReceipt{
		ReceiptID: g.NewID(),
		Timestamp: FormatTime(g.now()),
	}
}

// ApplySimSwap copies a to r.
func (r *ConsentReceipt) ApplySimSwap(a SimSwapAssessment) {
	if a.SimSwapDate != nil {
		r.SimSwapDate = FormatTime(*a.SimSwapDate)
	}
	r.DaysSinceSwap = a.DaysSinceSwap
	r.SimSwapRisk = Bool(a.Risk)
	r.ReasonCode = a.ReasonCode
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
