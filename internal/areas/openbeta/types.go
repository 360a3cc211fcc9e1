package openbeta

// AreaNode mirrors the slice of the OpenBeta GraphQL schema the importer
// consumes. Children are only requested one level deep per call; deeper
// levels are fetched by re-querying by name.
type AreaNode struct {
	ID       string     `json:"id"`
	AreaName string     `json:"area_name"`
	Metadata AreaMeta   `json:"metadata"`
	Children []AreaNode `json:"children"`
	Climbs   []Climb    `json:"climbs"`
}

type AreaMeta struct {
	Lat     *float64    `json:"lat"`
	Lng     *float64    `json:"lng"`
	Leaf    bool        `json:"leaf"`
	Polygon [][]float64 `json:"polygon"`
	BBox    []float64   `json:"bbox"`
	AreaID  string      `json:"areaId"`
}

type Climb struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Metadata ClimbMeta  `json:"metadata"`
	Type     ClimbType  `json:"type"`
	Grades   ClimbGrade `json:"grades"`
}

type ClimbMeta struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type ClimbType struct {
	Sport bool `json:"sport"`
	Trad  bool `json:"trad"`
	TR    bool `json:"tr"`
}

type ClimbGrade struct {
	YDS *string `json:"yds"`
}
