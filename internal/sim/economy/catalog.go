package economy

import "sort"

// Amounts maps a resource name (food, wood, iron, gold, population,
// happiness) to a quantity.
type Amounts map[string]float64

type BuildingData struct {
	Name     string
	Icon     string
	Cost     Amounts
	Produces Amounts
	Size     float64
}

var catalog = map[string]BuildingData{
	"longhouse": {
		Name:     "Longhouse",
		Icon:     "🏘️",
		Cost:     Amounts{"wood": 20, "food": 10},
		Produces: Amounts{"population": 3},
		Size:     48,
	},
	"farm": {
		Name:     "Farm",
		Icon:     "🌾",
		Cost:     Amounts{"wood": 15},
		Produces: Amounts{"food": 2},
		Size:     40,
	},
	"lumbermill": {
		Name:     "Lumber Mill",
		Icon:     "🪓",
		Cost:     Amounts{"wood": 25, "iron": 5},
		Produces: Amounts{"wood": 3},
		Size:     44,
	},
	"blacksmith": {
		Name:     "Blacksmith",
		Icon:     "⚒️",
		Cost:     Amounts{"wood": 30, "iron": 10},
		Produces: Amounts{"iron": 2},
		Size:     36,
	},
	"tradingpost": {
		Name:     "Trading Post",
		Icon:     "⛵",
		Cost:     Amounts{"wood": 40, "gold": 5},
		Produces: Amounts{"gold": 1},
		Size:     42,
	},
	"temple": {
		Name:     "Temple",
		Icon:     "⚡",
		Cost:     Amounts{"wood": 50, "iron": 20, "gold": 15},
		Produces: Amounts{"happiness": 10},
		Size:     52,
	},
}

// GetBuildingData returns a copy of the static catalog entry.
func GetBuildingData(kind string) (BuildingData, bool) {
	d, ok := catalog[kind]
	if !ok {
		return BuildingData{}, false
	}
	d.Cost = copyAmounts(d.Cost)
	d.Produces = copyAmounts(d.Produces)
	return d, true
}

func BuildingTypes() []string {
	out := make([]string, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyAmounts(a Amounts) Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
