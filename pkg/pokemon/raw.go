package pokemon

// Raw mirrors the subset of the PokeAPI /pokemon/{id} response the mapper reads.
type Raw struct {
	ID      int        `json:"id"`
	Name    string     `json:"name"`
	Height  int        `json:"height"`
	Weight  int        `json:"weight"`
	Types   []RawType  `json:"types"`
	Stats   []RawStat  `json:"stats"`
	Sprites RawSprites `json:"sprites"`
}

// NamedResource is PokeAPI's {name, url} reference object.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RawType is one entry of the types array.
type RawType struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// RawStat is one entry of the stats array.
type RawStat struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// RawSprites holds sprite URLs. FrontDefault is null for some entries.
type RawSprites struct {
	FrontDefault *string `json:"front_default"`
}

// Stat names looked up by the mapper.
const (
	StatHP      = "hp"
	StatAttack  = "attack"
	StatDefense = "defense"
	StatSpeed   = "speed"
)
