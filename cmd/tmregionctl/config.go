package main

import (
	"encoding/json"
	"fmt"
	"os"

	"tmregion/internal/factory"
	"tmregion/internal/region"
	api "tmregion/pkg/tmregion"
)

// flagParameters maps run flags onto region parameter names.
var flagParameters = map[string]string{
	"columns":                     region.ParamColumnCount,
	"cells":                       factory.ParamCellsPerColumn,
	"activation-threshold":        factory.ParamActivationThreshold,
	"min-threshold":               factory.ParamMinThreshold,
	"max-new-synapses":            factory.ParamMaxNewSynapseCount,
	"initial-permanence":          factory.ParamInitialPermanence,
	"connected-permanence":        factory.ParamConnectedPermanence,
	"permanence-increment":        factory.ParamPermanenceIncrement,
	"permanence-decrement":        factory.ParamPermanenceDecrement,
	"predicted-segment-decrement": factory.ParamPredictedSegmentDecrement,
	"seed":                        factory.ParamSeed,
	"learn-on-one-cell":           factory.ParamLearnOnOneCell,
	"learning":                    region.ParamLearningMode,
	"form-internal-connections":   region.ParamFormInternalConnections,
	"default-output":              region.ParamDefaultOutputType,
}

func loadRunRequestFromConfig(path string) (api.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.RunRequest{}, err
	}

	var req api.RunRequest
	if v, ok := asString(raw["sequence"]); ok {
		req.SequencePath = v
	}
	if v, ok := asString(raw["backend"]); ok {
		req.Backend = v
	}
	if v, ok := asInt(raw["external_width"]); ok {
		req.ExternalWidth = v
	}
	if v, ok := asInt(raw["apical_width"]); ok {
		req.ApicalWidth = v
	}
	if v, ok := asBool(raw["pretty_print_traces"]); ok {
		req.PrettyPrintTraces = v
	}
	if params, ok := raw["parameters"].(map[string]any); ok {
		req.Parameters = make(map[string]any, len(params))
		for name, v := range params {
			req.Parameters[name] = v
		}
	} else if raw["parameters"] != nil {
		return api.RunRequest{}, fmt.Errorf("parameters must be an object")
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies explicitly set flags on top of the config file.
func overrideFromFlags(req *api.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		if param, ok := flagParameters[name]; ok {
			if req.Parameters == nil {
				req.Parameters = make(map[string]any)
			}
			req.Parameters[param] = v
			continue
		}
		switch name {
		case "sequence":
			req.SequencePath = v.(string)
		case "backend":
			req.Backend = v.(string)
		case "external-width":
			req.ExternalWidth = v.(int)
		case "apical-width":
			req.ApicalWidth = v.(int)
		case "pretty-print-traces":
			req.PrettyPrintTraces = v.(bool)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	if req.ExternalWidth < 0 || req.ApicalWidth < 0 {
		return fmt.Errorf("input widths must be >= 0")
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (api.RunRequest, error) {
	if configPath == "" {
		return api.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return api.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
