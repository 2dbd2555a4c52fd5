// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

// Package predeploys holds the well-known addresses of the L2 system
// contracts the indexer drives.
package predeploys

import "github.com/ethereum/go-ethereum/common"

const (
	Ethscriptions       = "0x3300000000000000000000000000000000000001"
	TokenManager        = "0x3300000000000000000000000000000000000002"
	EthscriptionsERC20  = "0x3300000000000000000000000000000000000003"
	CollectionsManager  = "0x3300000000000000000000000000000000000004"
	EthscriptionsProver = "0x3300000000000000000000000000000000000005"
	L1Block             = "0x4200000000000000000000000000000000000015"

	// L1InfoDepositor is the synthetic sender of the L1-attributes deposit.
	L1InfoDepositor = "0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001"
)

var (
	EthscriptionsAddr       = common.HexToAddress(Ethscriptions)
	TokenManagerAddr        = common.HexToAddress(TokenManager)
	EthscriptionsERC20Addr  = common.HexToAddress(EthscriptionsERC20)
	CollectionsManagerAddr  = common.HexToAddress(CollectionsManager)
	EthscriptionsProverAddr = common.HexToAddress(EthscriptionsProver)
	L1BlockAddr             = common.HexToAddress(L1Block)
	L1InfoDepositorAddr     = common.HexToAddress(L1InfoDepositor)
)
