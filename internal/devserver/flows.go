package devserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
)

// FlowPattern selects flow fixtures under the flows directory
const FlowPattern = "**/*.json"

// Flow is a validated fixture served verbatim as a flow configuration
type Flow struct {
	ID       string
	Name     string
	Path     string
	Config   map[string]any
	Document *flow.Document
}

// Flows indexes fixtures by flow id
type Flows map[string]*Flow

// LoadFlows discovers fixtures under dir. A flow's id is its "flowId" when
// present, otherwise its slash-separated path without the extension. Files
// the decoder rejects fail the load; degradations are only logged.
func LoadFlows(dir string, dec *flow.Decoder, log *zap.Logger) (Flows, error) {
	return LoadFlowsFS(os.DirFS(dir), dec, log)
}

// LoadFlowsFS is LoadFlows over any file system
func LoadFlowsFS(fsys fs.FS, dec *flow.Decoder, log *zap.Logger) (Flows, error) {
	if dec == nil {
		dec = flow.NewDecoder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	matches, err := doublestar.Glob(fsys, FlowPattern)
	if err != nil {
		return nil, fmt.Errorf("discover flows: %w", err)
	}

	flows := make(Flows, len(matches))
	var errs []error
	for _, p := range matches {
		f, err := loadFlow(fsys, p, dec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if prev, dup := flows[f.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: flow id %q already defined by %s", p, f.ID, prev.Path))
			continue
		}
		if n := len(f.Document.Diagnostics); n > 0 {
			log.Warn("flow fixture decoded with degradations",
				zap.String("path", p),
				zap.String("flow_id", f.ID),
				zap.Int("diagnostics", n))
		}
		flows[f.ID] = f
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	log.Info("flow fixtures loaded", zap.Int("count", len(flows)))
	return flows, nil
}

func loadFlow(fsys fs.FS, p string, dec *flow.Decoder) (*Flow, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrStructural, err)
	}
	doc, err := dec.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	config, _ := raw.(map[string]any)
	if nested, ok := config["config"].(map[string]any); ok {
		config = nested
	}

	id := doc.FlowID
	if id == "" {
		id = strings.TrimSuffix(p, path.Ext(p))
	}
	return &Flow{ID: id, Name: doc.FlowName, Path: p, Config: config, Document: doc}, nil
}
