package simulator

import (
	"log"
	"math"
	"math/rand"
)

// CDFPoint is one breakpoint of an empirical flow-size distribution:
// cumulative probability of flows at or below SizeBytes.
type CDFPoint struct {
	SizeBytes uint64
	Prob      float64
}

// workloadCDF returns the published flow-size CDF for a workload
func workloadCDF(wt WorkloadType) []CDFPoint {
	switch wt {
	case WorkloadDatamining:
		// From VL2 paper - Datamining workload
		return []CDFPoint{
			{100, 0.0},
			{1000, 0.5},
			{10000, 0.6},
			{100000, 0.7},
			{1000000, 0.8},
			{10000000, 0.9},
			{100000000, 0.97},
			{1000000000, 1.0},
		}
	case WorkloadWebsearch:
		// From DCTCP paper - Websearch workload
		return []CDFPoint{
			{100, 0.0},
			{1000, 0.15},
			{10000, 0.2},
			{100000, 0.3},
			{1000000, 0.4},
			{10000000, 0.53},
			{100000000, 0.6},
			{300000000, 1.0},
		}
	case WorkloadHadoop:
		// From Facebook paper - Hadoop workload
		return []CDFPoint{
			{1000, 0.0},
			{10000, 0.05},
			{100000, 0.2},
			{1000000, 0.5},
			{10000000, 0.7},
			{100000000, 0.85},
			{1000000000, 1.0},
		}
	default:
		return nil
	}
}

// averageFlowSizeBytes approximates the mean of each distribution; it only
// feeds the arrival-rate calculation.
func averageFlowSizeBytes(wt WorkloadType) float64 {
	switch wt {
	case WorkloadDatamining:
		return 50e6
	case WorkloadWebsearch:
		return 5e6
	case WorkloadHadoop:
		return 30e6
	default:
		return 10e6
	}
}

// WorkloadGenerator produces a flow list with Poisson arrivals and flow
// sizes sampled from the configured empirical CDF. The generator owns its
// seeded RNG, so equal seeds reproduce the flow list bit-for-bit.
type WorkloadGenerator struct {
	config     SimConfig
	rng        *rand.Rand
	nextFlowID uint64
}

// NewWorkloadGenerator creates a generator for the given configuration
func NewWorkloadGenerator(config SimConfig) *WorkloadGenerator {
	return &WorkloadGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.RandomSeed)),
	}
}

// GenerateFlows samples flows over [0, sim_time_ms). The arrival rate is
// sized so the offered load matches load_factor of the aggregate host
// capacity. load_factor 0 yields no flows.
func (g *WorkloadGenerator) GenerateFlows() []*Flow {
	totalHosts := g.config.NumRacks * g.config.HostsPerRack
	totalCapacityBits := float64(totalHosts) * g.config.LinkRateGbps * 1e9
	avgFlowSizeBits := averageFlowSizeBytes(g.config.Workload) * 8

	lambdaPerMs := (g.config.LoadFactor * totalCapacityBits) / avgFlowSizeBits / 1000.0
	if lambdaPerMs <= 0 {
		return nil
	}

	var flows []*Flow
	currentTime := 0.0
	for currentTime < g.config.SimTimeMs {
		flow := &Flow{
			ID:          g.nextFlowID,
			StartTimeMs: currentTime,
			Type:        FlowBulk,
		}
		g.nextFlowID++

		flow.SrcRack = g.rng.Intn(g.config.NumRacks)
		flow.DstRack = g.rng.Intn(g.config.NumRacks)
		for flow.SrcRack == flow.DstRack {
			flow.DstRack = g.rng.Intn(g.config.NumRacks)
		}
		flow.SrcHost = g.rng.Intn(g.config.HostsPerRack)
		flow.DstHost = g.rng.Intn(g.config.HostsPerRack)
		flow.SizeBytes = g.sampleFlowSize()

		flows = append(flows, flow)

		currentTime += g.sampleInterarrivalMs(lambdaPerMs)
	}

	log.Printf("Generated %d flows", len(flows))
	return flows
}

// sampleFlowSize draws from the workload CDF with log-scale interpolation
// within segments.
func (g *WorkloadGenerator) sampleFlowSize() uint64 {
	cdf := workloadCDF(g.config.Workload)
	randVal := g.rng.Float64()

	for i := 1; i < len(cdf); i++ {
		if randVal <= cdf[i].Prob {
			frac := (randVal - cdf[i-1].Prob) / (cdf[i].Prob - cdf[i-1].Prob)
			logSize := math.Log10(float64(cdf[i-1].SizeBytes)) +
				frac*(math.Log10(float64(cdf[i].SizeBytes))-math.Log10(float64(cdf[i-1].SizeBytes)))
			return uint64(math.Pow(10.0, logSize))
		}
	}
	return cdf[len(cdf)-1].SizeBytes
}

// sampleInterarrivalMs draws an exponential inter-arrival gap by inverse
// transform.
func (g *WorkloadGenerator) sampleInterarrivalMs(lambdaPerMs float64) float64 {
	u := g.rng.Float64()
	if u <= 0 {
		u = 1e-12
	}
	return -math.Log(u) / lambdaPerMs
}
