package model

import "github.com/ethereum/go-ethereum/common"

// NormalizeAddress canonicalizes an address string for a given network's
// encoding. Addresses are otherwise opaque per the glossary; EVM networks
// are checksummed the way the teacher's AddressRow.EVM() did, so the same
// address spelled with different letter-casing collapses to one node.
func NormalizeAddress(network, address string) string {
	switch network {
	case "ethereum", "bsc", "polygon", "arbitrum", "optimism", "base":
		if common.IsHexAddress(address) {
			return common.HexToAddress(address).Hex()
		}
		return address
	default:
		return address
	}
}

// TrustLevel and AddressType are the closed vocabularies spec §4.4 uses to
// decide whether a labeled address is trusted or fraudulent.
type TrustLevel string

const (
	TrustVerified    TrustLevel = "verified"
	TrustOfficial    TrustLevel = "official"
	TrustUnknown     TrustLevel = "unknown"
	TrustBlacklisted TrustLevel = "blacklisted"
)

type AddressType string

const (
	AddressExchange     AddressType = "exchange"
	AddressInstitutional AddressType = "institutional"
	AddressStaking       AddressType = "staking"
	AddressValidator     AddressType = "validator"
	AddressMixer         AddressType = "mixer"
	AddressScam          AddressType = "scam"
	AddressDarkMarket    AddressType = "dark_market"
	AddressSanctioned    AddressType = "sanctioned"
	AddressWallet        AddressType = "wallet"
	AddressUnknown       AddressType = "unknown"
)

// AddressLabel is a row from the address-label table (spec §4.1, §4.4).
type AddressLabel struct {
	Address     string
	Network     string
	TrustLevel  TrustLevel
	AddressType AddressType
	Source      string
}

var trustedTypes = map[AddressType]bool{
	AddressExchange:      true,
	AddressInstitutional: true,
	AddressStaking:       true,
	AddressValidator:     true,
}

var fraudulentTypes = map[AddressType]bool{
	AddressMixer:      true,
	AddressScam:       true,
	AddressDarkMarket: true,
	AddressSanctioned: true,
}

// IsTrusted implements spec §4.4's trust predicate: verified/official
// trust level AND an institutional-grade address type.
func (l AddressLabel) IsTrusted() bool {
	return (l.TrustLevel == TrustVerified || l.TrustLevel == TrustOfficial) && trustedTypes[l.AddressType]
}

// IsFraudulent implements spec §4.4's fraud predicate: a risky address
// type, or an explicit blacklist trust level.
func (l AddressLabel) IsFraudulent() bool {
	return fraudulentTypes[l.AddressType] || l.TrustLevel == TrustBlacklisted
}

// LabelCache is the read-only, populate-once-per-run cache spec §5 calls
// for. It is safe for concurrent reads from multiple detector goroutines
// once Load has completed.
type LabelCache struct {
	byAddress map[string]AddressLabel
}

func NewLabelCache(labels []AddressLabel) *LabelCache {
	c := &LabelCache{byAddress: make(map[string]AddressLabel, len(labels))}
	for _, l := range labels {
		c.byAddress[l.Address] = l
	}
	return c
}

func (c *LabelCache) Lookup(address string) (AddressLabel, bool) {
	l, ok := c.byAddress[address]
	return l, ok
}

// TrustFraudFraction computes the trusted and fraudulent fraction among a
// set of participant addresses, used by §4.4's severity adjustment.
func (c *LabelCache) TrustFraudFraction(addresses []string) (trustedFrac, fraudulentFrac float64) {
	if len(addresses) == 0 {
		return 0, 0
	}
	var trusted, fraudulent int
	for _, a := range addresses {
		if l, ok := c.byAddress[a]; ok {
			if l.IsTrusted() {
				trusted++
			}
			if l.IsFraudulent() {
				fraudulent++
			}
		}
	}
	n := float64(len(addresses))
	return float64(trusted) / n, float64(fraudulent) / n
}

// AdjustSeverity applies spec §4.4's trust/fraud adjustment: reduce
// proportionally to the trusted fraction, amplify by the fraudulent
// fraction, clipped to [0,1].
func AdjustSeverity(base float64, trustedFrac, fraudulentFrac float64) float64 {
	adjusted := base*(1-trustedFrac) + base*fraudulentFrac
	if adjusted > 1 {
		return 1
	}
	if adjusted < 0 {
		return 0
	}
	return adjusted
}
