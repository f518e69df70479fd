package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type PatternType string

const (
	PatternCycle            PatternType = "cycle"
	PatternLayeringPath     PatternType = "layering_path"
	PatternSmurfingNetwork  PatternType = "smurfing_network"
	PatternProximityRisk    PatternType = "proximity_risk"
	PatternMotifFanIn       PatternType = "motif_fanin"
	PatternMotifFanOut      PatternType = "motif_fanout"
	PatternTemporalBurst    PatternType = "temporal_burst"
	PatternThresholdEvasion PatternType = "threshold_evasion"
)

// PatternHash is the first 16 hex chars of SHA-256("type:sorted,addrs")
// per spec §3/§8(3). Canonical identity never depends on discovery order.
func PatternHash(patternType PatternType, addresses []string) string {
	sorted := append([]string(nil), addresses...)
	sort.Strings(sorted)
	payload := string(patternType) + ":" + strings.Join(sorted, ",")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:16]
}

func PatternID(patternType PatternType, addresses []string) string {
	return string(patternType) + "_" + PatternHash(patternType, addresses)
}

// PatternHeader is the common column set every pattern record carries,
// per spec §3.
type PatternHeader struct {
	PatternID                string
	PatternType               PatternType
	PatternHash               string
	AddressesInvolved         []string
	AddressRoles              []string
	DetectionTimestamp        int64
	EvidenceTransactionCount  int64
	EvidenceVolumeUSD         decimal.Decimal
	DetectionMethod           string
	WindowDays                int64
	ProcessingDate            string
	Network                   string
}

// NewHeader fills PatternID/PatternHash from the type and addresses and
// leaves the rest for the caller to populate.
func NewHeader(patternType PatternType, addresses, roles []string, detectionTimestamp int64) PatternHeader {
	return PatternHeader{
		PatternID:          PatternID(patternType, addresses),
		PatternType:        patternType,
		PatternHash:        PatternHash(patternType, addresses),
		AddressesInvolved:  addresses,
		AddressRoles:       roles,
		DetectionTimestamp: detectionTimestamp,
	}
}

type CyclePattern struct {
	PatternHeader
	CyclePath      []string
	CycleLength    int
	CycleVolumeUSD decimal.Decimal
}

type LayeringPattern struct {
	PatternHeader
	PathDepth           int
	SourceAddress       string
	DestinationAddress  string
	AmountCV            float64
}

// NetworkPattern covers both network-detector sub-tags: anomalous_scc and
// smurfing_community (spec §4.4.3). Both emit pattern_type=smurfing_network.
type NetworkPattern struct {
	PatternHeader
	SubTag         string
	NetworkMembers []string
	NetworkSize    int
	NetworkDensity float64
	HubAddresses   []string
	SeverityScore  float64
}

type ProximityPattern struct {
	PatternHeader
	RiskSource           string
	Suspect              string
	DistanceToRisk       int
	RiskPropagationScore float64
	SeverityScore        float64
}

type MotifPattern struct {
	PatternHeader
	MotifType             string
	MotifCenterAddress    string
	MotifParticipantCount int
}

type BurstPattern struct {
	PatternHeader
	BurstAddress          string
	BurstStartTimestamp   int64
	BurstEndTimestamp     int64
	BurstDurationSeconds  int64
	BurstTransactionCount int64
	BurstVolumeUSD        decimal.Decimal
	NormalTxRate          float64
	BurstTxRate           float64
	BurstIntensity        float64
	ZScore                float64
	HourlyDistribution    [24]int64
	PeakHours             []int
}

type ThresholdPattern struct {
	PatternHeader
	ThresholdType             string
	ThresholdValue            decimal.Decimal
	TransactionsNearThreshold int64
	ClusteringScore           float64
	SizeConsistency           float64
	AvoidanceScore            float64
	PrimaryAddress            string
}
