package region

// PortSpec describes one named input or output. Count is the fixed
// element count, or 0 when the port is sized by configuration.
type PortSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
	Count       int    `json:"count"`
	Required    bool   `json:"required,omitempty"`
	RegionLevel bool   `json:"region_level"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

type ParameterSpec struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	AccessMode   string `json:"access_mode"`
	DataType     string `json:"data_type"`
	Constraints  string `json:"constraints,omitempty"`
	DefaultValue any    `json:"default_value"`
}

type CommandSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Spec is the region descriptor a network host uses to wire the region.
type Spec struct {
	Description    string          `json:"description"`
	SingleNodeOnly bool            `json:"single_node_only"`
	Inputs         []PortSpec      `json:"inputs"`
	Outputs        []PortSpec      `json:"outputs"`
	Parameters     []ParameterSpec `json:"parameters"`
	Commands       []CommandSpec   `json:"commands"`
}

// Describe returns the region descriptor with default parameter values.
func Describe() Spec {
	defaults := DefaultConfig()
	params := make([]ParameterSpec, 0, len(parameterTable))
	for _, p := range parameterTable {
		params = append(params, ParameterSpec{
			Name:         p.name,
			Description:  p.description,
			AccessMode:   string(p.access),
			DataType:     p.dataType,
			Constraints:  p.constraints,
			DefaultValue: p.get(&defaults),
		})
	}

	return Spec{
		Description:    "Sequence-learning region wrapping a pluggable temporal memory backend.",
		SingleNodeOnly: true,
		Inputs: []PortSpec{
			{Name: InputBottomUp, Description: "Dense 0/1 feed-forward column activity.", DataType: "Real32", Required: true, IsDefault: true},
			{Name: InputReset, Description: "Non-zero marks the end of a sequence; the region resets after this step.", DataType: "Real32", Count: 1, RegionLevel: true},
			{Name: InputSequenceID, Description: "Sequence id, for debugging.", DataType: "Real32", Count: 1, RegionLevel: true},
			{Name: InputExternal, Description: "Dense 0/1 lateral input; requires an extended backend.", DataType: "Real32"},
			{Name: InputTopDown, Description: "Dense 0/1 apical input; requires an extended backend.", DataType: "Real32"},
		},
		Outputs: []PortSpec{
			{Name: OutputBottomUp, Description: "The projection selected by defaultOutputType.", DataType: "Real32", RegionLevel: true, IsDefault: true},
			{Name: OutputPredictiveCells, Description: "1 for every cell currently predictive.", DataType: "Real32", RegionLevel: true},
			{Name: OutputPredictedActiveCells, Description: "1 for every cell that went from predictive to active.", DataType: "Real32", RegionLevel: true},
			{Name: OutputActiveCells, Description: "1 for every cell currently active.", DataType: "Real32", RegionLevel: true},
		},
		Parameters: params,
		Commands: []CommandSpec{
			{Name: CommandReset, Description: "Reset temporal memory sequence state now."},
			{Name: CommandPrettyPrintTraces, Description: "Render the monitor trace table of a monitored backend."},
		},
	}
}

// Spec returns the region descriptor.
func (r *Region) Spec() Spec {
	return Describe()
}
