package treefile

// Version is the document format version written by Encode.
const Version = 1

type fileDoc struct {
	Version int      `yaml:"version" json:"version"`
	Tree    *nodeDoc `yaml:"tree" json:"tree"`
}

type nodeDoc struct {
	Value    *valueDoc  `yaml:"value,omitempty" json:"value,omitempty"`
	Children []*nodeDoc `yaml:"children,omitempty" json:"children,omitempty"`
}

// valueDoc is the union of every kind's fields; Kind selects which apply.
type valueDoc struct {
	Kind string `yaml:"kind" json:"kind"`

	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	Coords []float64 `yaml:"coords,omitempty,flow" json:"coords,omitempty"`

	Start []float64 `yaml:"start,omitempty,flow" json:"start,omitempty"`
	End   []float64 `yaml:"end,omitempty,flow" json:"end,omitempty"`

	Points [][]float64 `yaml:"points,omitempty" json:"points,omitempty"`
	Closed bool        `yaml:"closed,omitempty" json:"closed,omitempty"`

	Center     []float64 `yaml:"center,omitempty,flow" json:"center,omitempty"`
	Normal     []float64 `yaml:"normal,omitempty,flow" json:"normal,omitempty"`
	Radius     float64   `yaml:"radius,omitempty" json:"radius,omitempty"`
	StartAngle float64   `yaml:"start_angle,omitempty" json:"start_angle,omitempty"`
	EndAngle   float64   `yaml:"end_angle,omitempty" json:"end_angle,omitempty"`

	Degree  int       `yaml:"degree,omitempty" json:"degree,omitempty"`
	Weights []float64 `yaml:"weights,omitempty,flow" json:"weights,omitempty"`
	Knots   []float64 `yaml:"knots,omitempty,flow" json:"knots,omitempty"`

	Profile     *valueDoc   `yaml:"profile,omitempty" json:"profile,omitempty"`
	Direction   []float64   `yaml:"direction,omitempty,flow" json:"direction,omitempty"`
	Height      float64     `yaml:"height,omitempty" json:"height,omitempty"`
	Holes       []*valueDoc `yaml:"holes,omitempty" json:"holes,omitempty"`
	CappedStart bool        `yaml:"capped_start,omitempty" json:"capped_start,omitempty"`
	CappedEnd   bool        `yaml:"capped_end,omitempty" json:"capped_end,omitempty"`

	UDegree int       `yaml:"u_degree,omitempty" json:"u_degree,omitempty"`
	VDegree int       `yaml:"v_degree,omitempty" json:"v_degree,omitempty"`
	UCount  int       `yaml:"u_count,omitempty" json:"u_count,omitempty"`
	VCount  int       `yaml:"v_count,omitempty" json:"v_count,omitempty"`
	UKnots  []float64 `yaml:"u_knots,omitempty,flow" json:"u_knots,omitempty"`
	VKnots  []float64 `yaml:"v_knots,omitempty,flow" json:"v_knots,omitempty"`
	ClosedU bool      `yaml:"closed_u,omitempty" json:"closed_u,omitempty"`
	ClosedV bool      `yaml:"closed_v,omitempty" json:"closed_v,omitempty"`

	Vertices [][]float64 `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	Faces    [][]int     `yaml:"faces,omitempty" json:"faces,omitempty"`
}
