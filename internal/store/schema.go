// Package store is the storage gateway of spec §4.1/§4.5/§6: typed bulk
// read/write over columnar tables partitioned by (network, window_days,
// processing_date), plus the bulk aggregation queries the feature builder
// needs run server-side. GORM is the teacher's ORM of choice
// (internal/db/db.go); MySQL backs production, SQLite backs tests.
package store

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransferRow is the GORM mapping of spec §3's Transfer. Unique on
// (network, tx_id, event_index, edge_index).
type TransferRow struct {
	ID               uint   `gorm:"primaryKey"`
	Network          string `gorm:"uniqueIndex:idx_transfer_unique;index"`
	TxID             string `gorm:"uniqueIndex:idx_transfer_unique"`
	EventIndex       int64  `gorm:"uniqueIndex:idx_transfer_unique"`
	EdgeIndex        int64  `gorm:"uniqueIndex:idx_transfer_unique"`
	BlockHeight      int64
	BlockTimestampMs int64 `gorm:"index"`
	FromAddress      string `gorm:"index:idx_transfer_from"`
	ToAddress        string `gorm:"index:idx_transfer_to"`
	AssetSymbol      string
	AssetContract    string
	Amount           decimal.Decimal `gorm:"type:decimal(48,18)"`
	Fee              decimal.Decimal `gorm:"type:decimal(48,18)"`
	AmountUSD        decimal.Decimal `gorm:"type:decimal(38,8)"`
}

func (TransferRow) TableName() string { return "transfers" }

// FlowRow is the GORM mapping of spec §3's Flow, partitioned by
// (network, window_days, processing_date).
type FlowRow struct {
	ID                 uint   `gorm:"primaryKey"`
	Network            string `gorm:"index:idx_flow_partition"`
	WindowDays         int64  `gorm:"index:idx_flow_partition"`
	ProcessingDate     string `gorm:"index:idx_flow_partition"`
	FromAddress        string `gorm:"index"`
	ToAddress          string `gorm:"index"`
	TxCount            int64
	AmountSum          decimal.Decimal `gorm:"type:decimal(48,18)"`
	AmountUSDSum       decimal.Decimal `gorm:"type:decimal(38,8)"`
	FirstSeenTimestamp int64
	LastSeenTimestamp  int64
	UniqueAssets       int64
	DominantAsset      string
	HourlyPattern      datatypes.JSON
	WeeklyPattern      datatypes.JSON
	ReciprocityRatio   float64
	IsBidirectional    bool
}

func (FlowRow) TableName() string { return "flows" }

// FeatureRow is the GORM mapping of spec §3's FeatureVector.
type FeatureRow struct {
	ID             uint   `gorm:"primaryKey"`
	Network        string `gorm:"index:idx_feature_partition"`
	WindowDays     int64  `gorm:"index:idx_feature_partition"`
	ProcessingDate string `gorm:"index:idx_feature_partition"`
	Address        string `gorm:"index:idx_feature_partition"`

	TotalInUSD     decimal.Decimal `gorm:"type:decimal(38,8)"`
	TotalOutUSD    decimal.Decimal `gorm:"type:decimal(38,8)"`
	NetFlowUSD     decimal.Decimal `gorm:"type:decimal(38,8)"`
	TotalVolumeUSD decimal.Decimal `gorm:"type:decimal(38,8)"`
	AvgTxUSD       decimal.Decimal `gorm:"type:decimal(38,8)"`
	MedianTxUSD    decimal.Decimal `gorm:"type:decimal(38,8)"`
	MaxTxUSD       decimal.Decimal `gorm:"type:decimal(38,8)"`
	MinTxUSD       decimal.Decimal `gorm:"type:decimal(38,8)"`

	DegreeIn              int64
	DegreeOut             int64
	DegreeTotal           int64
	UniqueCounterparties  int64
	UniqueSendersCount    int64
	UniqueRecipientsCount int64

	AmountVariance float64
	VolumeStd      float64
	VolumeCV       float64
	AmountSkewness float64
	AmountKurtosis float64

	ActivityDays            int64
	ActivitySpanDays        int64
	AvgDailyVolumeUSD       decimal.Decimal `gorm:"type:decimal(38,8)"`
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
	HourlyActivity          datatypes.JSON
	DailyActivity           datatypes.JSON

	ReciprocityRatio          float64
	FlowConcentration         float64
	FlowDiversity             float64
	CounterpartyConcentration float64
	ConcentrationRatio        float64
	InOutRatio                float64
	FlowAsymmetry             float64
	DominantFlowDirection     string
	FlowDirectionEntropy      float64
	CounterpartyOverlapRatio  float64

	RoundNumberRatio      float64
	UnusualTimingScore    float64
	StructuringScore      float64
	SmallTransactionRatio float64

	PageRank              float64
	Betweenness           float64
	Closeness             float64
	ClusteringCoefficient float64
	KCore                 int64
	CommunityID           int64
	CentralityScore       float64
	Degree                int64

	Khop1Count     int64
	Khop1VolumeUSD decimal.Decimal `gorm:"type:decimal(38,8)"`
	Khop2Count     int64
	Khop2VolumeUSD decimal.Decimal `gorm:"type:decimal(38,8)"`
	Khop3Count     int64
	Khop3VolumeUSD decimal.Decimal `gorm:"type:decimal(38,8)"`

	FlowReciprocityEntropy float64
	CounterpartyStability  float64
	FlowBurstiness         float64
	TransactionRegularity  float64
	AmountPredictability   float64

	TxInCount    int64
	TxOutCount   int64
	TxTotalCount int64
}

func (FeatureRow) TableName() string { return "features" }

// patternHeaderColumns are the columns common to every pattern table,
// embedded into each type-specific row (spec §3/§4.5).
type patternHeaderColumns struct {
	ID                       uint   `gorm:"primaryKey"`
	Network                  string `gorm:"index:idx_pattern_partition"`
	WindowDays               int64  `gorm:"index:idx_pattern_partition"`
	ProcessingDate           string `gorm:"index:idx_pattern_partition"`
	PatternID                string `gorm:"index"`
	PatternType              string
	PatternHash              string
	AddressesInvolved        datatypes.JSON
	AddressRoles             datatypes.JSON
	DetectionTimestamp       int64
	EvidenceTransactionCount int64
	EvidenceVolumeUSD        decimal.Decimal `gorm:"type:decimal(38,8)"`
	DetectionMethod          string
}

type CyclePatternRow struct {
	patternHeaderColumns
	CyclePath      datatypes.JSON
	CycleLength    int
	CycleVolumeUSD decimal.Decimal `gorm:"type:decimal(38,8)"`
}

func (CyclePatternRow) TableName() string { return "patterns_cycle" }

type LayeringPatternRow struct {
	patternHeaderColumns
	PathDepth          int
	SourceAddress      string
	DestinationAddress string
	AmountCV           float64
}

func (LayeringPatternRow) TableName() string { return "patterns_layering" }

type NetworkPatternRow struct {
	patternHeaderColumns
	SubTag         string
	NetworkMembers datatypes.JSON
	NetworkSize    int
	NetworkDensity float64
	HubAddresses   datatypes.JSON
	SeverityScore  float64
}

func (NetworkPatternRow) TableName() string { return "patterns_network" }

type ProximityPatternRow struct {
	patternHeaderColumns
	RiskSource           string
	Suspect              string
	DistanceToRisk       int
	RiskPropagationScore float64
	SeverityScore        float64
}

func (ProximityPatternRow) TableName() string { return "patterns_proximity" }

type MotifPatternRow struct {
	patternHeaderColumns
	MotifType             string
	MotifCenterAddress    string
	MotifParticipantCount int
}

func (MotifPatternRow) TableName() string { return "patterns_motif" }

type BurstPatternRow struct {
	patternHeaderColumns
	BurstAddress          string
	BurstStartTimestamp   int64
	BurstEndTimestamp     int64
	BurstDurationSeconds  int64
	BurstTransactionCount int64
	BurstVolumeUSD        decimal.Decimal `gorm:"type:decimal(38,8)"`
	NormalTxRate          float64
	BurstTxRate           float64
	BurstIntensity        float64
	ZScore                float64
	HourlyDistribution    datatypes.JSON
	PeakHours             datatypes.JSON
}

func (BurstPatternRow) TableName() string { return "patterns_burst" }

type ThresholdPatternRow struct {
	patternHeaderColumns
	ThresholdType             string
	ThresholdValue            decimal.Decimal `gorm:"type:decimal(38,8)"`
	TransactionsNearThreshold int64
	ClusteringScore           float64
	SizeConsistency           float64
	AvoidanceScore            float64
	PrimaryAddress            string
}

func (ThresholdPatternRow) TableName() string { return "patterns_threshold" }

// AlertRow is the GORM mapping of spec §3's Alert.
type AlertRow struct {
	ID                   uint   `gorm:"primaryKey"`
	Network              string `gorm:"index:idx_alert_partition"`
	WindowDays           int64  `gorm:"index:idx_alert_partition"`
	ProcessingDate       string `gorm:"index:idx_alert_partition"`
	AlertID              string `gorm:"uniqueIndex"`
	Address              string `gorm:"index"`
	TypologyType         string
	ConfidenceScore      float64
	Severity             string
	SuspectedAddressType string
	Description          string
	VolumeUSD            decimal.Decimal `gorm:"type:decimal(38,8)"`
	Evidence             datatypes.JSON
	RiskIndicators       datatypes.JSON
	RelatedAddresses     datatypes.JSON
}

func (AlertRow) TableName() string { return "alerts" }

// AlertClusterRow is the GORM mapping of spec §3's AlertCluster.
type AlertClusterRow struct {
	ID                uint   `gorm:"primaryKey"`
	Network           string `gorm:"index:idx_cluster_partition"`
	WindowDays        int64  `gorm:"index:idx_cluster_partition"`
	ProcessingDate    string `gorm:"index:idx_cluster_partition"`
	ClusterID         string `gorm:"uniqueIndex"`
	ClusterType       string
	PrimaryAlertID    string
	RelatedAlertIDs   datatypes.JSON
	AddressesInvolved datatypes.JSON
	TotalAlerts       int64
	TotalVolumeUSD    decimal.Decimal `gorm:"type:decimal(38,8)"`
	SeverityMax       string
	ConfidenceAvg     float64
}

func (AlertClusterRow) TableName() string { return "alert_clusters" }

// AddressLabelRow is the address-label table spec §4.4's trust/fraud
// predicates read from (supplemented from original_source's
// address_label_repository.py, spec §4 SPEC_FULL addendum).
type AddressLabelRow struct {
	ID          uint   `gorm:"primaryKey"`
	Network     string `gorm:"uniqueIndex:idx_label_unique"`
	Address     string `gorm:"uniqueIndex:idx_label_unique"`
	TrustLevel  string
	AddressType string
	Source      string
}

func (AddressLabelRow) TableName() string { return "address_labels" }

// AuditRow is the computation_audit table, spec §4.7 step 6 / §7: exactly
// one row is written per successful run.
type AuditRow struct {
	ID             uint `gorm:"primaryKey"`
	Network        string
	WindowDays     int64
	ProcessingDate string
	StartedAt      int64
	EndedAt        int64
	DurationS      float64
}

func (AuditRow) TableName() string { return "computation_audit" }

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&TransferRow{}, &FlowRow{}, &FeatureRow{},
		&CyclePatternRow{}, &LayeringPatternRow{}, &NetworkPatternRow{},
		&ProximityPatternRow{}, &MotifPatternRow{}, &BurstPatternRow{}, &ThresholdPatternRow{},
		&AlertRow{}, &AlertClusterRow{}, &AddressLabelRow{}, &AuditRow{},
	}
}
