// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package ethscription

import (
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
)

// Protocol event signatures.
var (
	CreateEthscriptionEventID = crypto.Keccak256Hash(
		[]byte("ethscriptions_protocol_CreateEthscription(address,string)"))
	TransferEthscriptionEventID = crypto.Keccak256Hash(
		[]byte("ethscriptions_protocol_TransferEthscription(address,bytes32)"))
	TransferForPreviousOwnerEventID = crypto.Keccak256Hash(
		[]byte("ethscriptions_protocol_TransferEthscriptionForPreviousOwner(address,address,bytes32)"))
)

var stringArguments abi.Arguments

func init() {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	stringArguments = abi.Arguments{{Type: stringType}}
}

// Detector turns one L1 transaction into its ordered operation list.
type Detector struct {
	config *ChainConfig
}

func NewDetector(config *ChainConfig) *Detector {
	return &Detector{config: config}
}

// Detect produces the ordered operations of a single successful transaction.
// Ordering is fixed: the input-based create (or the input-based transfers,
// the two are mutually exclusive on the same input) come first, then every
// event-based operation in ascending log-index order. Failed transactions
// yield nothing. Malformed content never aborts detection; it just emits no
// operation.
func (d *Detector) Detect(tx *esctypes.L1Transaction) []*esctypes.Operation {
	if tx.Status != 1 {
		return nil
	}

	blockNumber := uint64(tx.BlockNumber)
	var ops []*esctypes.Operation
	createSeen := false

	if tx.To != nil {
		if create := d.detectInputCreate(tx); create != nil {
			ops = append(ops, create)
			createSeen = true
		} else {
			ops = append(ops, d.detectInputTransfers(tx)...)
		}
	}

	logs := make([]*types.Log, 0, len(tx.Logs))
	for _, l := range tx.Logs {
		if l == nil || l.Removed {
			continue
		}
		logs = append(logs, l)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Index < logs[j].Index })

	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case CreateEthscriptionEventID:
			if !d.config.IsEsip3(blockNumber) || len(l.Topics) != 2 {
				continue
			}
			// At most one create per transaction; an input create wins.
			if createSeen {
				log.Debug("skipping duplicate create event", "tx", tx.Hash, "logIndex", l.Index)
				continue
			}
			op := d.detectEventCreate(tx, l)
			if op == nil {
				continue
			}
			ops = append(ops, op)
			createSeen = true
		case TransferEthscriptionEventID:
			if !d.config.IsEsip1(blockNumber) || len(l.Topics) != 3 {
				continue
			}
			op := esctypes.NewTransfer(l.Topics[2], l.Address, common.BytesToAddress(l.Topics[1].Bytes()))
			logIndex := uint64(l.Index)
			op.EventLogIndex = &logIndex
			ops = append(ops, op)
		case TransferForPreviousOwnerEventID:
			if !d.config.IsEsip2(blockNumber) || len(l.Topics) != 4 {
				continue
			}
			op := esctypes.NewTransferForPreviousOwner(
				l.Topics[3],
				l.Address,
				common.BytesToAddress(l.Topics[2].Bytes()),
				common.BytesToAddress(l.Topics[1].Bytes()),
			)
			logIndex := uint64(l.Index)
			op.EventLogIndex = &logIndex
			ops = append(ops, op)
		}
	}

	return ops
}

// detectInputCreate returns a create operation when the transaction input
// decodes to a valid content URI, nil otherwise.
func (d *Detector) detectInputCreate(tx *esctypes.L1Transaction) *esctypes.Operation {
	blockNumber := uint64(tx.BlockNumber)
	data, gzipped := DecodeInput(tx.Input, d.config.IsEsip7(blockNumber))
	if !ValidUTF8String(data) {
		return nil
	}
	contentURI := string(data)
	uri, err := ParseDataURI(contentURI)
	if err != nil {
		return nil
	}
	esip6 := d.config.IsEsip6(blockNumber) && Esip6(contentURI)
	return esctypes.NewCreate(tx.Hash, tx.From, *tx.To, contentURI, uri.Mimetype, esip6, gzipped, esctypes.SourceInput)
}

// detectEventCreate decodes an ESIP-3 CreateEthscription log. The emitting
// contract is the creator and topic 1 carries the initial owner.
func (d *Detector) detectEventCreate(tx *esctypes.L1Transaction, l *types.Log) *esctypes.Operation {
	decoded, err := stringArguments.Unpack(l.Data)
	if err != nil {
		log.Debug("undecodable create event data", "tx", tx.Hash, "logIndex", l.Index, "err", err)
		return nil
	}
	contentURI, ok := decoded[0].(string)
	if !ok {
		return nil
	}
	uri, err := ParseDataURI(contentURI)
	if err != nil {
		return nil
	}
	blockNumber := uint64(tx.BlockNumber)
	esip6 := d.config.IsEsip6(blockNumber) && Esip6(contentURI)
	op := esctypes.NewCreate(
		tx.Hash, l.Address, common.BytesToAddress(l.Topics[1].Bytes()),
		contentURI, uri.Mimetype, esip6, false, esctypes.SourceEvent,
	)
	logIndex := uint64(l.Index)
	op.EventLogIndex = &logIndex
	return op
}

// detectInputTransfers scans the input for 32-byte ethscription ids.
// Before ESIP-5 the input must be exactly one id; afterwards any non-empty
// whole multiple of 32 bytes is a batch.
func (d *Detector) detectInputTransfers(tx *esctypes.L1Transaction) []*esctypes.Operation {
	input := tx.Input
	if len(input) == 0 || len(input)%32 != 0 {
		return nil
	}
	if !d.config.IsEsip5(uint64(tx.BlockNumber)) && len(input) != 32 {
		return nil
	}
	ops := make([]*esctypes.Operation, 0, len(input)/32)
	for i := 0; i*32 < len(input); i++ {
		op := esctypes.NewTransfer(common.BytesToHash(input[i*32:(i+1)*32]), tx.From, *tx.To)
		transferIndex := uint64(i)
		op.TransferIndex = &transferIndex
		ops = append(ops, op)
	}
	return ops
}
