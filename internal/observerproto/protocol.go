package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ChunkRadius     int    `json:"chunk_radius"`
	MaxChunks       int    `json:"max_chunks"`
}

// Client -> Server. Input adapter for the headless engine.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`

	// send_scout | move_camera | set_zoom | place_building | save | reset
	Command string `json:"command"`

	ScoutID  int     `json:"scout_id,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale,omitempty"`
	Building string  `json:"building,omitempty"`
}

// Server -> Client reply to a COMMAND.
type CommandResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Command         string `json:"command"`
	OK              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	TilePalette     []TileInfo     `json:"tile_palette"`
	Buildings       []BuildingInfo `json:"buildings"`
}

type WorldParams struct {
	TickRateHz   int     `json:"tick_rate_hz"`
	ChunkSize    int     `json:"chunk_size"`
	TileSize     int     `json:"tile_size"`
	FogCellSize  int     `json:"fog_cell_size"`
	LoadRadius   int     `json:"load_radius"`
	UnloadRadius int     `json:"unload_radius"`
	Seed         float64 `json:"seed"`
	NoiseBackend string  `json:"noise_backend"`
	Octaves      int     `json:"octaves"`
}

type TileInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Biome    string `json:"biome"`
	Color    string `json:"color"`
	Blocking bool   `json:"blocking,omitempty"`
}

type BuildingInfo struct {
	Type     string             `json:"type"`
	Name     string             `json:"name"`
	Icon     string             `json:"icon"`
	Cost     map[string]float64 `json:"cost"`
	Produces map[string]float64 `json:"produces"`
	Size     float64            `json:"size"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	SimTimeMs       int64  `json:"sim_time_ms"`

	Camera     Camera             `json:"camera"`
	Scouts     []ScoutState       `json:"scouts"`
	Resources  map[string]float64 `json:"resources"`
	Population float64            `json:"population"`
	Buildings  int                `json:"buildings"`

	ActiveReveals int   `json:"active_reveals"`
	Explored      int   `json:"explored"`
	LoadedChunks  int   `json:"loaded_chunks"`
	Arrived       []int `json:"arrived,omitempty"`

	Status string `json:"status,omitempty"`
}

type Camera struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

type ScoutState struct {
	ID     int         `json:"id"`
	Pos    [2]float64  `json:"pos"`
	Target *[2]float64 `json:"target,omitempty"`
	State  string      `json:"state"`
	Range  float64     `json:"range"`
}

// Server -> Client. Full tile grid and fog mask of one chunk.
type ChunkMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
	TilesPerSide    int    `json:"tiles_per_side"`
	TilesRLE        string `json:"tiles_rle"` // base64(varint(tile_id, run))
	FogSide         int    `json:"fog_side"`
	Fog             string `json:"fog,omitempty"` // base64(zstd(varint(opacity, run)))
}

// Server -> Client. Fog-only refresh of a chunk already sent.
type FogMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
	Fog             string `json:"fog"`
}

// Server -> Client.
type ChunkEvictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CY              int    `json:"cy"`
}
