// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package ethscription

// ChainConfig carries the block heights at which the versioned protocol
// rules activate. A nil height means the rule never activates. Activation is
// monotonic: once a rule is live at height B it applies to every block >= B.
type ChainConfig struct {
	// Esip1Block enables event-based transfers
	// (ethscriptions_protocol_TransferEthscription).
	Esip1Block *uint64
	// Esip2Block enables event-based transfers carrying the previous owner.
	Esip2Block *uint64
	// Esip3Block enables event-based creation.
	Esip3Block *uint64
	// Esip5Block enables multiple 32-byte transfer ids in one input.
	Esip5Block *uint64
	// Esip6Block enables duplicate-content creates flagged with rule=esip6.
	Esip6Block *uint64
	// Esip7Block enables gzip-compressed content.
	Esip7Block *uint64
}

func newUint64(v uint64) *uint64 { return &v }

// MainnetChainConfig is the Ethereum mainnet activation schedule.
var MainnetChainConfig = &ChainConfig{
	Esip1Block: newUint64(17672762),
	Esip2Block: newUint64(17764910),
	Esip3Block: newUint64(18130000),
	Esip5Block: newUint64(18330000),
	Esip6Block: newUint64(17478950),
	Esip7Block: newUint64(19376500),
}

// AllEsipsChainConfig activates every rule from genesis; used in tests.
var AllEsipsChainConfig = &ChainConfig{
	Esip1Block: newUint64(0),
	Esip2Block: newUint64(0),
	Esip3Block: newUint64(0),
	Esip5Block: newUint64(0),
	Esip6Block: newUint64(0),
	Esip7Block: newUint64(0),
}

func isActive(activation *uint64, block uint64) bool {
	return activation != nil && *activation <= block
}

func (c *ChainConfig) IsEsip1(block uint64) bool { return isActive(c.Esip1Block, block) }
func (c *ChainConfig) IsEsip2(block uint64) bool { return isActive(c.Esip2Block, block) }
func (c *ChainConfig) IsEsip3(block uint64) bool { return isActive(c.Esip3Block, block) }
func (c *ChainConfig) IsEsip5(block uint64) bool { return isActive(c.Esip5Block, block) }
func (c *ChainConfig) IsEsip6(block uint64) bool { return isActive(c.Esip6Block, block) }
func (c *ChainConfig) IsEsip7(block uint64) bool { return isActive(c.Esip7Block, block) }
