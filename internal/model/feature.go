package model

import "github.com/shopspring/decimal"

// DominantFlowDirection is a closed enum per spec §3.
type DominantFlowDirection string

const (
	FlowIncoming DominantFlowDirection = "incoming"
	FlowOutgoing DominantFlowDirection = "outgoing"
	FlowBalanced DominantFlowDirection = "balanced"
)

// FeatureVector is the fixed-schema per-address record from spec §3.
// Amount-domain fields are decimal.Decimal; ratios, entropies and graph
// scores are float64, converted at the storage boundary only (spec §9).
type FeatureVector struct {
	Address        string
	Network        string
	WindowDays     int64
	ProcessingDate string

	// Volume
	TotalInUSD     decimal.Decimal
	TotalOutUSD    decimal.Decimal
	NetFlowUSD     decimal.Decimal
	TotalVolumeUSD decimal.Decimal
	AvgTxUSD       decimal.Decimal
	MedianTxUSD    decimal.Decimal
	MaxTxUSD       decimal.Decimal
	MinTxUSD       decimal.Decimal

	// Degree
	DegreeIn              int64
	DegreeOut              int64
	DegreeTotal            int64
	UniqueCounterparties   int64
	UniqueSendersCount     int64
	UniqueRecipientsCount  int64

	// Statistical moments
	AmountVariance  float64
	VolumeStd       float64
	VolumeCV        float64
	AmountSkewness  float64
	AmountKurtosis  float64

	// Temporal
	ActivityDays            int64
	ActivitySpanDays        int64
	AvgDailyVolumeUSD       decimal.Decimal
	PeakHour                int
	PeakDay                 int
	HourlyEntropy           float64
	DailyEntropy            float64
	RegularityScore         float64
	BurstFactor             float64
	WeekendTransactionRatio float64
	NightTransactionRatio   float64
	ConsistencyScore        float64
	IsNewAddress            bool
	HourlyActivity          [24]int64
	DailyActivity           [7]int64

	// Flow structure
	ReciprocityRatio        float64
	FlowConcentration       float64
	FlowDiversity           float64
	CounterpartyConcentration float64
	ConcentrationRatio      float64
	InOutRatio              float64
	FlowAsymmetry           float64
	DominantFlowDirection   DominantFlowDirection
	FlowDirectionEntropy    float64
	CounterpartyOverlapRatio float64

	// Behavioral
	RoundNumberRatio   float64
	UnusualTimingScore float64
	StructuringScore   float64
	SmallTransactionRatio float64

	// Graph
	PageRank              float64
	Betweenness           float64
	Closeness             float64
	ClusteringCoefficient float64
	KCore                 int64
	CommunityID           int64
	CentralityScore       float64
	Degree                int64

	// Neighborhood
	Khop1Count       int64
	Khop1VolumeUSD   decimal.Decimal
	Khop2Count       int64
	Khop2VolumeUSD   decimal.Decimal
	Khop3Count       int64
	Khop3VolumeUSD   decimal.Decimal

	// Advanced
	FlowReciprocityEntropy float64
	CounterpartyStability  float64
	FlowBurstiness         float64
	TransactionRegularity  float64
	AmountPredictability   float64

	// Derived counts used by invariants / typology rules
	TxInCount    int64
	TxOutCount   int64
	TxTotalCount int64
}
