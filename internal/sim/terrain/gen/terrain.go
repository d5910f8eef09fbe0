package gen

const (
	detailScale  = 0.02
	microScale   = 0.05
	microOffset  = 500
	detailOffset = 0
)

// TileTypeAt picks the tile for a world position given its precomputed biome
// data. Each biome tree is an ordered list of threshold tests; first match wins.
func TileTypeAt(n Noise, seed, x, y float64, bd BiomeData) TileType {
	detail := n.Sample(x*detailScale+seed+detailOffset, y*detailScale+seed+detailOffset)
	micro := n.Sample(x*microScale+seed+microOffset, y*microScale+seed+microOffset)

	switch bd.Primary {
	case BiomeArcticTundra:
		return arcticTile(bd, detail, micro)
	case BiomeBorealForest:
		return borealTile(bd, detail, micro)
	case BiomeCoastalFjords:
		return coastalTile(bd, detail, micro)
	case BiomeHighlandMountains:
		return mountainTile(bd, detail, micro)
	default:
		return temperateTile(bd, detail, micro)
	}
}

func arcticTile(bd BiomeData, detail, micro float64) TileType {
	switch {
	case bd.Elevation < 0.2:
		if detail < -0.3 {
			return TileArcticIce
		}
		return TileSnow
	case bd.Elevation < 0.4 && detail > 0.2:
		return TileTundraGrass
	case micro > 0.4 && bd.Moisture > 0.3:
		return TileSparseForest
	}
	return TileSnow
}

func borealTile(bd BiomeData, detail, micro float64) TileType {
	switch {
	case bd.Elevation < 0.15 && bd.Moisture > 0.6:
		if detail < -0.2 {
			return TileBorealLake
		}
		return TileWetland
	case bd.Moisture > 0.4:
		if detail > 0.2 {
			return TileDenseConiferForest
		}
		return TileConiferForest
	case bd.Elevation > 0.6:
		return TileRockyTerrain
	}
	if micro > 0 {
		return TileConiferForest
	}
	return TileBorealClearing
}

func coastalTile(bd BiomeData, detail, micro float64) TileType {
	switch {
	case bd.Elevation < 0.1:
		return TileDeepFjordWater
	case bd.Elevation < 0.25:
		if detail < 0 {
			return TileShallowWater
		}
		return TileRockyShore
	case bd.Elevation < 0.4 && bd.Moisture > 0.5:
		if micro > 0.2 {
			return TileCoastalForest
		}
		return TileBeach
	case bd.Elevation > 0.7:
		return TileSeaCliff
	}
	if detail > 0.1 {
		return TileCoastalGrass
	}
	return TileBeach
}

func mountainTile(bd BiomeData, detail, micro float64) TileType {
	switch {
	case bd.Elevation > 0.9:
		if bd.Temperature < 0.3 {
			return TileSnowPeak
		}
		return TileRockyPeak
	case bd.Elevation > 0.7:
		if detail > 0.3 {
			return TileAlpineForest
		}
		return TileRockySlope
	case bd.Elevation > 0.5:
		if micro > 0.2 {
			return TileMountainForest
		}
		return TileAlpineMeadow
	case bd.Moisture > 0.6:
		return TileMountainStream
	}
	return TileHills
}

func temperateTile(bd BiomeData, detail, micro float64) TileType {
	switch {
	case bd.Elevation < 0.15 && bd.Moisture > 0.7:
		if detail < -0.2 {
			return TileRiver
		}
		return TileWetland
	case bd.Moisture > 0.5 && detail > 0.1:
		if micro > 0.3 {
			return TileDeciduousForest
		}
		return TileMixedForest
	case bd.Moisture < 0.3 && detail < -0.2:
		return TileDryGrassland
	case micro > 0.4:
		return TileFloweringMeadow
	}
	return TileGrass
}

// Generator bundles the noise field, seed and biome scale for one world.
type Generator struct {
	Noise Noise
	Seed  float64
	Scale float64
}

func NewGenerator(n Noise, seed float64) Generator {
	return Generator{Noise: n, Seed: seed, Scale: DefaultBiomeScale}
}

func (g Generator) Biome(x, y float64) BiomeData {
	return Classifier{Noise: g.Noise, Seed: g.Seed, Scale: g.Scale}.Classify(x, y)
}

func (g Generator) TileType(x, y float64, bd BiomeData) TileType {
	return TileTypeAt(g.Noise, g.Seed, x, y, bd)
}
