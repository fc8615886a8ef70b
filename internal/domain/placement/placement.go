package placement

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/shared/utils"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

// Properties is the targeting bag sent with a resolution request
type Properties = value.Map

// Source records where a resolution came from
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// Linkage ties a presentation back to the backend's assignment
type Linkage struct {
	PlacementID string `json:"placementId,omitempty"`
	CampaignID  string `json:"campaignId,omitempty"`
	VariantID   string `json:"variantId,omitempty"`
}

// Resolution is the backend's answer for one placement. A nil Document
// means show nothing.
type Resolution struct {
	Placement  string         `json:"placement"`
	Document   *flow.Document `json:"document,omitempty"`
	FlowID     string         `json:"flowId,omitempty"`
	FlowName   string         `json:"flowName,omitempty"`
	Linkage    Linkage        `json:"linkage"`
	IsControl  bool           `json:"isControl,omitempty"`
	IsSticky   bool           `json:"isSticky,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Source     Source         `json:"source,omitempty"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

// Empty reports whether there is nothing to present
func (r *Resolution) Empty() bool {
	return r == nil || r.Document == nil || len(r.Document.Screens) == 0
}

// NoFlow builds an empty resolution carrying the backend's reason
func NoFlow(placement, reason string) *Resolution {
	return &Resolution{Placement: placement, Reason: reason, Source: SourceNetwork, ResolvedAt: time.Now().UTC()}
}

// ErrInvalidRequest is returned by the Validate methods
var ErrInvalidRequest = errors.New("invalid placement request")

// Request asks which flow a placement shows for a subject
type Request struct {
	Placement  string     `json:"-"`
	UserID     string     `json:"userId,omitempty"`
	DeviceID   string     `json:"deviceId,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// Validate checks the request before any I/O
func (r Request) Validate() error {
	if err := utils.ValidatePlacement(r.Placement); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := utils.ValidateIdentity(r.UserID, r.DeviceID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(r.Properties) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := utils.ValidatePropertyKeys(keys); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := r.Properties.ScalarsOnly(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Subject is the identity assignments and completions are keyed on
func (r Request) Subject() string {
	return Subject(r.UserID, r.DeviceID)
}

// Subject prefers the user id and falls back to the device id
func Subject(userID, deviceID string) string {
	if userID != "" {
		return "user:" + userID
	}
	if deviceID != "" {
		return "device:" + deviceID
	}
	return ""
}

// Completion is the record sent when a flow is finished
type Completion struct {
	UserID      string    `json:"userId,omitempty"`
	DeviceID    string    `json:"deviceId,omitempty"`
	FlowID      string    `json:"flowId,omitempty"`
	Placement   string    `json:"placement,omitempty"`
	Linkage
	Responses   value.Map `json:"responses"`
	CompletedAt time.Time `json:"completedAt"`
}

// Validate checks the record before sending
func (c Completion) Validate() error {
	if err := utils.ValidateIdentity(c.UserID, c.DeviceID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// EventType names an analytics event
type EventType string

const (
	EventFlowViewed    EventType = "flow_viewed"
	EventScreenViewed  EventType = "screen_viewed"
	EventFlowCompleted EventType = "flow_completed"
	EventFlowSkipped   EventType = "flow_skipped"
	EventFlowFailed    EventType = "flow_failed"
	EventFlowDismissed EventType = "flow_dismissed"
)

// Event is one fire-and-forget analytics record
type Event struct {
	Type        EventType `json:"eventType"`
	UserID      string    `json:"userId,omitempty"`
	DeviceID    string    `json:"deviceId,omitempty"`
	FlowID      string    `json:"flowId,omitempty"`
	Placement   string    `json:"placement,omitempty"`
	Linkage
	ScreenIndex *int      `json:"screenIndex,omitempty"`
	Metadata    value.Map `json:"metadata,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
