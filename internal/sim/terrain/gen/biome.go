package gen

// Biome is a large-scale terrain classification.
type Biome uint8

const (
	BiomeTemperatePlains Biome = iota
	BiomeArcticTundra
	BiomeBorealForest
	BiomeHighlandMountains
	BiomeCoastalFjords
)

var biomeNames = [...]string{
	BiomeTemperatePlains:   "temperate_plains",
	BiomeArcticTundra:      "arctic_tundra",
	BiomeBorealForest:      "boreal_forest",
	BiomeHighlandMountains: "highland_mountains",
	BiomeCoastalFjords:     "coastal_fjords",
}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

func ParseBiome(s string) (Biome, bool) {
	for i, name := range biomeNames {
		if name == s {
			return Biome(i), true
		}
	}
	return BiomeTemperatePlains, false
}

func AllBiomes() []Biome {
	out := make([]Biome, len(biomeNames))
	for i := range biomeNames {
		out[i] = Biome(i)
	}
	return out
}

const (
	DefaultBiomeScale = 0.003

	temperatureOffset = 0
	moistureOffset    = 1000
	elevationOffset   = 2000
	transitionOffset  = 3000
	transitionScale   = 0.01
)

// BiomeData is the classification result together with the climate scalars
// that produced it. Temperature, Moisture and Elevation are in [0,1].
type BiomeData struct {
	Primary     Biome
	Strength    float64
	Temperature float64
	Moisture    float64
	Elevation   float64
	Transition  float64
}

// Classify samples three decorrelated climate fields plus a transition field
// and runs the biome cascade. The first matching rule wins.
func Classify(n Noise, seed, x, y float64) BiomeData {
	return Classifier{Noise: n, Seed: seed, Scale: DefaultBiomeScale}.Classify(x, y)
}

type Classifier struct {
	Noise Noise
	Seed  float64
	Scale float64
}

func (c Classifier) Classify(x, y float64) BiomeData {
	scale := c.Scale
	if scale <= 0 {
		scale = DefaultBiomeScale
	}
	seed := c.Seed

	temperature := Normalize(c.Noise.Sample(x*scale+seed+temperatureOffset, y*scale+seed+temperatureOffset))
	moisture := Normalize(c.Noise.Sample(x*scale+seed+moistureOffset, y*scale+seed+moistureOffset))
	elevation := Normalize(c.Noise.Sample(x*scale*0.5+seed+elevationOffset, y*scale*0.5+seed+elevationOffset))

	transition := c.Noise.Sample(x*transitionScale+seed+transitionOffset, y*transitionScale+seed+transitionOffset)

	return BiomeData{
		Primary:     primaryBiome(temperature, moisture, elevation),
		Strength:    Clamp(1.0+transition*0.3, 0.3, 1.0),
		Temperature: temperature,
		Moisture:    moisture,
		Elevation:   elevation,
		Transition:  transition,
	}
}

func primaryBiome(temperature, moisture, elevation float64) Biome {
	switch {
	case temperature < 0.3:
		return BiomeArcticTundra
	case temperature < 0.5 && moisture > 0.4:
		return BiomeBorealForest
	case elevation > 0.7:
		return BiomeHighlandMountains
	case moisture > 0.6 && temperature > 0.4 && temperature < 0.7:
		return BiomeCoastalFjords
	default:
		return BiomeTemperatePlains
	}
}
