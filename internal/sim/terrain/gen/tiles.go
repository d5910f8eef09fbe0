package gen

import "image/color"

// TileType is the closed set of terrain kinds produced by the biome decision
// trees. The zero value is TileGrass, which is also the lookup fallback.
type TileType uint8

const (
	TileGrass TileType = iota

	// Arctic tundra.
	TileArcticIce
	TileSnow
	TileTundraGrass
	TileSparseForest

	// Boreal forest.
	TileBorealLake
	TileWetland
	TileDenseConiferForest
	TileConiferForest
	TileRockyTerrain
	TileBorealClearing

	// Coastal fjords.
	TileDeepFjordWater
	TileShallowWater
	TileRockyShore
	TileCoastalForest
	TileBeach
	TileSeaCliff
	TileCoastalGrass

	// Highland mountains.
	TileSnowPeak
	TileRockyPeak
	TileAlpineForest
	TileRockySlope
	TileMountainForest
	TileAlpineMeadow
	TileMountainStream
	TileHills

	// Temperate plains.
	TileRiver
	TileDeciduousForest
	TileMixedForest
	TileDryGrassland
	TileFloweringMeadow

	tileTypeCount
)

type TileProps struct {
	Name     string
	Biome    Biome
	Base     color.RGBA
	Detail   color.RGBA
	Water    bool
	Blocking bool
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

var tileTable = [tileTypeCount]TileProps{
	TileGrass: {Name: "grass", Biome: BiomeTemperatePlains, Base: rgb(0x7cb342), Detail: rgb(0x558b2f)},

	TileArcticIce:    {Name: "arctic_ice", Biome: BiomeArcticTundra, Base: rgb(0xe8f4fd), Detail: rgb(0xd1e7f8)},
	TileSnow:         {Name: "snow", Biome: BiomeArcticTundra, Base: rgb(0xffffff), Detail: rgb(0xf5f5f5)},
	TileTundraGrass:  {Name: "tundra_grass", Biome: BiomeArcticTundra, Base: rgb(0x8fbc8f), Detail: rgb(0x556b2f)},
	TileSparseForest: {Name: "sparse_forest", Biome: BiomeArcticTundra, Base: rgb(0x8fbc8f), Detail: rgb(0x654321)},

	TileBorealLake:         {Name: "boreal_lake", Biome: BiomeBorealForest, Base: rgb(0x4682b4), Detail: rgb(0x2f4f4f), Water: true, Blocking: true},
	TileWetland:            {Name: "wetland", Biome: BiomeBorealForest, Base: rgb(0x6b8e23), Detail: rgb(0x228b22)},
	TileDenseConiferForest: {Name: "dense_conifer_forest", Biome: BiomeBorealForest, Base: rgb(0x013220), Detail: rgb(0x654321)},
	TileConiferForest:      {Name: "conifer_forest", Biome: BiomeBorealForest, Base: rgb(0x2d5016), Detail: rgb(0x654321)},
	TileRockyTerrain:       {Name: "rocky_terrain", Biome: BiomeBorealForest, Base: rgb(0x708090), Detail: rgb(0x2f4f4f)},
	TileBorealClearing:     {Name: "boreal_clearing", Biome: BiomeBorealForest, Base: rgb(0x9acd32), Detail: rgb(0x6b8e23)},

	TileDeepFjordWater: {Name: "deep_fjord_water", Biome: BiomeCoastalFjords, Base: rgb(0x191970), Detail: rgb(0x4169e1), Water: true, Blocking: true},
	TileShallowWater:   {Name: "shallow_water", Biome: BiomeCoastalFjords, Base: rgb(0x1976d2), Detail: rgb(0x42a5f5), Water: true, Blocking: true},
	TileRockyShore:     {Name: "rocky_shore", Biome: BiomeCoastalFjords, Base: rgb(0x696969), Detail: rgb(0x2f4f4f)},
	TileCoastalForest:  {Name: "coastal_forest", Biome: BiomeCoastalFjords, Base: rgb(0x2e8b57), Detail: rgb(0x8b4513)},
	TileBeach:          {Name: "beach", Biome: BiomeCoastalFjords, Base: rgb(0xf4e4bc), Detail: rgb(0xd2b48c)},
	TileSeaCliff:       {Name: "sea_cliff", Biome: BiomeCoastalFjords, Base: rgb(0xd3d3d3), Detail: rgb(0xa9a9a9), Blocking: true},
	TileCoastalGrass:   {Name: "coastal_grass", Biome: BiomeCoastalFjords, Base: rgb(0x8fbc8f), Detail: rgb(0x6b8e23)},

	TileSnowPeak:       {Name: "snow_peak", Biome: BiomeHighlandMountains, Base: rgb(0xfffafa), Detail: rgb(0xf0f8ff), Blocking: true},
	TileRockyPeak:      {Name: "rocky_peak", Biome: BiomeHighlandMountains, Base: rgb(0xdcdcdc), Detail: rgb(0xa9a9a9), Blocking: true},
	TileAlpineForest:   {Name: "alpine_forest", Biome: BiomeHighlandMountains, Base: rgb(0x2f4f2f), Detail: rgb(0x654321)},
	TileRockySlope:     {Name: "rocky_slope", Biome: BiomeHighlandMountains, Base: rgb(0xa9a9a9), Detail: rgb(0x696969)},
	TileMountainForest: {Name: "mountain_forest", Biome: BiomeHighlandMountains, Base: rgb(0x228b22), Detail: rgb(0x8b4513)},
	TileAlpineMeadow:   {Name: "alpine_meadow", Biome: BiomeHighlandMountains, Base: rgb(0xadff2f), Detail: rgb(0x7cfc00)},
	TileMountainStream: {Name: "mountain_stream", Biome: BiomeHighlandMountains, Base: rgb(0x228b22), Detail: rgb(0x4682b4), Water: true, Blocking: true},
	TileHills:          {Name: "hills", Biome: BiomeHighlandMountains, Base: rgb(0x8d6e63), Detail: rgb(0xa1887f)},

	TileRiver:           {Name: "river", Biome: BiomeTemperatePlains, Base: rgb(0x32cd32), Detail: rgb(0x4169e1), Water: true, Blocking: true},
	TileDeciduousForest: {Name: "deciduous_forest", Biome: BiomeTemperatePlains, Base: rgb(0x228b22), Detail: rgb(0x8b4513)},
	TileMixedForest:     {Name: "mixed_forest", Biome: BiomeTemperatePlains, Base: rgb(0x2e8b57), Detail: rgb(0x654321)},
	TileDryGrassland:    {Name: "dry_grassland", Biome: BiomeTemperatePlains, Base: rgb(0xdaa520), Detail: rgb(0xb8860b)},
	TileFloweringMeadow: {Name: "flowering_meadow", Biome: BiomeTemperatePlains, Base: rgb(0x90ee90), Detail: rgb(0x32cd32)},
}

var tileByName = func() map[string]TileType {
	m := make(map[string]TileType, len(tileTable))
	for i, p := range tileTable {
		m[p.Name] = TileType(i)
	}
	// Names used by older clients for tiles that were later split per biome.
	m["deep_water"] = TileDeepFjordWater
	m["mountain"] = TileRockyPeak
	return m
}()

func (t TileType) Props() TileProps {
	if t >= tileTypeCount {
		return tileTable[TileGrass]
	}
	return tileTable[t]
}

func (t TileType) String() string { return t.Props().Name }

func (t TileType) Valid() bool { return t < tileTypeCount }

func ParseTileType(name string) (TileType, bool) {
	t, ok := tileByName[name]
	return t, ok
}

func AllTileTypes() []TileType {
	out := make([]TileType, tileTypeCount)
	for i := range out {
		out[i] = TileType(i)
	}
	return out
}

// Palette returns tile names indexed by TileType.
func Palette() []string {
	out := make([]string, tileTypeCount)
	for i, p := range tileTable {
		out[i] = p.Name
	}
	return out
}
