package placement

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
)

// ErrMalformedResponse is returned for resolution payloads that cannot be used
var ErrMalformedResponse = errors.New("malformed resolution response")

const (
	ReasonNoFlow  = "no active flow"
	ReasonControl = "control group"
)

// Parse decodes a resolution response body
func Parse(dec *flow.Decoder, placement string, data []byte) (*Resolution, error) {
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return Decode(dec, placement, raw)
}

// Decode reads {flowId, flowName, config | flat config, placementId,
// campaignId, variantId, isControl, isSticky, message}. A response without
// a flow configuration is a valid empty resolution, not an error.
func Decode(dec *flow.Decoder, placement string, raw any) (*Resolution, error) {
	n, ok := flow.AsNode(raw)
	if !ok {
		return nil, fmt.Errorf("%w: body is %T, not an object", ErrMalformedResponse, raw)
	}
	if dec == nil {
		dec = flow.NewDecoder()
	}

	res := &Resolution{Placement: placement, Source: SourceNetwork, ResolvedAt: time.Now().UTC()}
	res.FlowID, _ = n.Text("flowId", "flow_id")
	res.FlowName, _ = n.String("flowName", "flow_name")
	res.Linkage.PlacementID, _ = n.Text("placementId", "placement_id")
	res.Linkage.CampaignID, _ = n.Text("campaignId", "campaign_id")
	res.Linkage.VariantID, _ = n.Text("variantId", "variant_id")
	res.IsControl, _ = n.Bool("isControl", "is_control", "control")
	res.IsSticky, _ = n.Bool("isSticky", "is_sticky", "sticky")
	res.Reason, _ = n.String("message", "reason")

	if res.IsControl {
		if res.Reason == "" {
			res.Reason = ReasonControl
		}
		return res, nil
	}
	if !n.Has("config", "flowConfig", "flow_config", "screens") {
		if res.Reason == "" {
			res.Reason = ReasonNoFlow
		}
		return res, nil
	}

	doc, err := dec.DecodeDocument(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if doc.FlowID == "" {
		doc.FlowID = res.FlowID
	}
	if res.FlowID == "" {
		res.FlowID = doc.FlowID
	}
	if res.FlowName == "" {
		res.FlowName = doc.FlowName
	}
	res.Document = doc
	if res.Empty() && res.Reason == "" {
		res.Reason = ReasonNoFlow
	}
	return res, nil
}
