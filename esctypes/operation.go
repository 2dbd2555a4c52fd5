// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package esctypes

import (
	"github.com/ethereum/go-ethereum/common"
)

type OperationKind uint8

const (
	OperationCreate OperationKind = iota
	OperationTransfer
	OperationTransferForPreviousOwner
)

func (k OperationKind) String() string {
	switch k {
	case OperationCreate:
		return "create"
	case OperationTransfer:
		return "transfer"
	case OperationTransferForPreviousOwner:
		return "transfer_for_previous_owner"
	default:
		return "unknown"
	}
}

// CreationSource records whether a create operation came from the
// transaction input or from an ethscriptions_protocol_CreateEthscription
// event.
type CreationSource uint8

const (
	SourceInput CreationSource = iota
	SourceEvent
)

// Operation is one protocol operation detected in an L1 transaction. It is a
// tagged variant: which fields are meaningful depends on Kind.
type Operation struct {
	Kind OperationKind

	// Create fields.
	TxHash       common.Hash
	Creator      common.Address
	InitialOwner common.Address
	ContentURI   string
	Mimetype     string
	Esip6        bool
	Gzipped      bool
	Source       CreationSource

	// Transfer fields. EthscriptionID is the L1 tx hash of the transferred
	// ethscription. PreviousOwner is only set for
	// OperationTransferForPreviousOwner.
	EthscriptionID common.Hash
	From           common.Address
	To             common.Address
	PreviousOwner  common.Address

	// TransferIndex is the position of the 32-byte chunk within the calldata
	// for input-based transfers; EventLogIndex is the originating log index
	// for event-based operations.
	TransferIndex *uint64
	EventLogIndex *uint64
}

// NewCreate builds a create operation. Addresses and hashes are stored in
// their binary form; hex rendering is always lowercase via go-ethereum.
func NewCreate(txHash common.Hash, creator, initialOwner common.Address, contentURI, mimetype string, esip6, gzipped bool, source CreationSource) *Operation {
	return &Operation{
		Kind:         OperationCreate,
		TxHash:       txHash,
		Creator:      creator,
		InitialOwner: initialOwner,
		ContentURI:   contentURI,
		Mimetype:     mimetype,
		Esip6:        esip6,
		Gzipped:      gzipped,
		Source:       source,
	}
}

func NewTransfer(id common.Hash, from, to common.Address) *Operation {
	return &Operation{
		Kind:           OperationTransfer,
		EthscriptionID: id,
		From:           from,
		To:             to,
	}
}

func NewTransferForPreviousOwner(id common.Hash, from, to, previousOwner common.Address) *Operation {
	return &Operation{
		Kind:           OperationTransferForPreviousOwner,
		EthscriptionID: id,
		From:           from,
		To:             to,
		PreviousOwner:  previousOwner,
	}
}
