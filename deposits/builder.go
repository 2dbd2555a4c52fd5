// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package deposits

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/esctypes"
	"github.com/ethscriptions-protocol/esc-node/predeploys"
)

// BuildOperationDeposits maps a transaction's detected operations to deposit
// transactions, in operation order. The source hash of deposit i is a pure
// function of (l1 tx hash, i), so re-deriving the same transaction always
// yields byte-identical deposits.
func BuildOperationDeposits(l1TxHash common.Hash, operations []*esctypes.Operation) ([]*DepositTx, error) {
	out := make([]*DepositTx, 0, len(operations))
	for i, op := range operations {
		var (
			data []byte
			from common.Address
			err  error
		)
		switch op.Kind {
		case esctypes.OperationCreate:
			from = op.Creator
			data, err = CreateCalldata(op.TxHash, op.InitialOwner, op.ContentURI, op.Esip6)
		case esctypes.OperationTransfer:
			from = op.From
			data, err = TransferCalldata(op.To, op.EthscriptionID)
		case esctypes.OperationTransferForPreviousOwner:
			from = op.From
			data, err = TransferForPreviousOwnerCalldata(op.To, op.EthscriptionID, op.PreviousOwner)
		default:
			err = errors.Errorf("unknown operation kind %d", op.Kind)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "building deposit %d of tx %s", i, l1TxHash)
		}
		out = append(out, &DepositTx{
			SourceHash: OperationSourceHash(l1TxHash, uint64(i)),
			From:       from,
			To:         predeploys.EthscriptionsAddr,
			GasLimit:   OperationGasLimit,
			Data:       data,
		})
	}
	return out, nil
}
