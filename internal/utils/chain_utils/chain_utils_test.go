package chainutils

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/tensorplex-labs/fakenews/internal/kami"
)

func TestConvertWeightsAndUidsForEmit(t *testing.T) {
	uids, weights, err := ConvertWeightsAndUidsForEmit([]int64{0, 1, 2}, []float64{0.5, 1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(uids) != 2 || uids[0] != 0 || uids[1] != 1 {
		t.Fatalf("unexpected uids %v", uids)
	}
	if weights[0] != 32768 || weights[1] != U16MAX {
		t.Fatalf("unexpected weights %v", weights)
	}

	if _, _, err := ConvertWeightsAndUidsForEmit([]int64{0}, []float64{-1}); err == nil {
		t.Fatal("expected error for negative weight")
	}
	if _, _, err := ConvertWeightsAndUidsForEmit([]int64{0, 1}, []float64{1}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestScoresToWeights(t *testing.T) {
	uids, weights, err := ScoresToWeights([]float64{0.3, math.NaN(), -3, 0.3, math.Inf(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(uids) != 2 || uids[0] != 0 || uids[1] != 3 {
		t.Fatalf("unexpected uids %v", uids)
	}
	if weights[0] != U16MAX || weights[1] != U16MAX {
		t.Fatalf("unexpected weights %v", weights)
	}

	uids, _, err = ScoresToWeights([]float64{0, 0})
	if err != nil || len(uids) != 0 {
		t.Fatalf("expected no weights for zero scores, got %v %v", uids, err)
	}
}

func TestAvailableMinerUIDs(t *testing.T) {
	metagraph := &kami.SubnetMetagraph{
		Hotkeys: []string{"validator", "miner-a", "miner-b", "whale", "offline"},
		Axons: []kami.AxonInfo{
			{IP: "10.0.0.1", Port: 8091},
			{IP: "10.0.0.2", Port: 8091},
			{IP: "10.0.0.3", Port: 8091},
			{IP: "10.0.0.4", Port: 8091},
			{IP: "0.0.0.0", Port: 0},
		},
		AlphaStake: []float64{50000, 10, 0, 20000, 0},
		TaoStake:   []float64{0, 0, 0, 0, 0},
	}

	uids := AvailableMinerUIDs(metagraph, "miner-b", "prod")
	if len(uids) != 1 || uids[0] != 1 {
		t.Fatalf("unexpected uids %v", uids)
	}
}

func TestCheckIfMiner(t *testing.T) {
	if !CheckIfMiner(5000, 0, "prod") {
		t.Fatal("5000 alpha should be a miner in prod")
	}
	if CheckIfMiner(5000, 0, "dev") {
		t.Fatal("5000 alpha should be a validator in dev")
	}
	if CheckIfMiner(0, 100000, "prod") {
		t.Fatal("root stake should count towards validator threshold")
	}
}

func TestGetExternalIP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("203.0.113.7\n"))
	}))
	t.Cleanup(ts.Close)

	ip, err := getExternalIP(context.Background(), resty.New(), ts.URL)
	if err != nil {
		t.Fatalf("getExternalIP: %v", err)
	}
	if !ip.Equal(net.ParseIP("203.0.113.7")) {
		t.Fatalf("unexpected ip %v", ip)
	}

	n, err := IPv4ToInt(ip)
	if err != nil || n != 0xCB007107 {
		t.Fatalf("IPv4ToInt = %x, %v", n, err)
	}
}
