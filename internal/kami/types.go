package kami

type KamiResponse[T any] struct {
	StatusCode int            `json:"statusCode"`
	Success    bool           `json:"success"`
	Data       T              `json:"data"`
	Error      map[string]any `json:"error"`
}

type (
	SubnetMetagraphResponse = KamiResponse[SubnetMetagraph]
	LatestBlockResponse     = KamiResponse[LatestBlock]
	KeyringPairInfoResponse = KamiResponse[KeyringPairInfo]
	ExtrinsicHashResponse   = KamiResponse[string]
)

// SubnetMetagraph is the part of the subnet metagraph the neurons read.
// Per-uid slices are indexed by uid.
type SubnetMetagraph struct {
	Netuid          int        `json:"netuid"`
	Name            string     `json:"name"`
	Block           int        `json:"block"`
	Tempo           int        `json:"tempo"`
	WeightsVersion  int        `json:"weightsVersion"`
	NumUids         int        `json:"numUids"`
	Hotkeys         []string   `json:"hotkeys"`
	Coldkeys        []string   `json:"coldkeys"`
	Axons           []AxonInfo `json:"axons"`
	Active          []bool     `json:"active"`
	ValidatorPermit []bool     `json:"validatorPermit"`
	LastUpdate      []int      `json:"lastUpdate"`
	AlphaStake      []float64  `json:"alphaStake"`
	TaoStake        []float64  `json:"taoStake"`
	TotalStake      []float64  `json:"totalStake"`
}

type AxonInfo struct {
	Block    int    `json:"block"`
	Version  int    `json:"version"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	IPType   int    `json:"ipType"`
	Protocol int    `json:"protocol"`
}

type LatestBlock struct {
	ParentHash     string `json:"parentHash"`
	BlockNumber    int    `json:"blockNumber"`
	StateRoot      string `json:"stateRoot"`
	ExtrinsicsRoot string `json:"extrinsicsRoot"`
}

type KeyringPair struct {
	Address  string `json:"address"`
	IsLocked bool   `json:"isLocked"`
	Type     string `json:"type"`
}

type KeyringPairInfo struct {
	KeyringPair   KeyringPair `json:"keyringPair"`
	WalletColdkey string      `json:"walletColdkey"`
}

type ServeAxonParams struct {
	Version      int `json:"version"`
	IP           int `json:"ip"`
	Port         int `json:"port"`
	IPType       int `json:"ipType"`
	Netuid       int `json:"netuid"`
	Protocol     int `json:"protocol"`
	Placeholder1 int `json:"placeholder1"`
	Placeholder2 int `json:"placeholder2"`
}

type SetWeightsParams struct {
	Netuid     int   `json:"netuid"`
	Dests      []int `json:"dests"`
	Weights    []int `json:"weights"`
	VersionKey int   `json:"versionKey"`
}
