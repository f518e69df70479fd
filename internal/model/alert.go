package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// SeverityFromConfidence applies the closed mapping from spec §4.6:
// >=0.9 critical, >=0.75 high, >=0.6 medium, else low.
func SeverityFromConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.9:
		return SeverityCritical
	case confidence >= 0.75:
		return SeverityHigh
	case confidence >= 0.6:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// MaxSeverity returns the higher-ranked of two severities by the ordinal
// low<medium<high<critical (used by alert clustering, spec §4.6).
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// AlertID is UUIDv5(DNS, address-typology-processing_date), stable across
// reruns of the same partition (spec §3/§8(9)).
func AlertID(address, typologyType, processingDate string) string {
	name := address + "-" + typologyType + "-" + processingDate
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

type Alert struct {
	AlertID               string
	Address                string
	Network                string
	WindowDays             int64
	ProcessingDate         string
	TypologyType           string
	ConfidenceScore        float64
	Severity               Severity
	SuspectedAddressType   string
	Description            string
	VolumeUSD              decimal.Decimal
	Evidence               map[string]any
	RiskIndicators         []string
	RelatedAddresses       []string
}

type AlertCluster struct {
	ClusterID        string
	ClusterType       string
	PrimaryAlertID    string
	RelatedAlertIDs   []string
	AddressesInvolved []string
	TotalAlerts       int64
	TotalVolumeUSD    decimal.Decimal
	SeverityMax       Severity
	ConfidenceAvg     float64
}
