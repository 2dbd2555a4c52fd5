// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package deposits

import (
	"crypto/sha256"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/ethscription"
	"github.com/ethscriptions-protocol/esc-node/extractor"
)

// ErrAbiEncoding wraps calldata construction failures. These surface as
// errors instead of being swallowed: a create we detected but cannot encode
// is a bug, not a malformed inscription.
var ErrAbiEncoding = errors.New("abi encoding failed")

const ethscriptionsContractABI = `[
	{"name":"createEthscription","type":"function","inputs":[
		{"name":"params","type":"tuple","components":[
			{"name":"transactionHash","type":"bytes32"},
			{"name":"contentUriHash","type":"bytes32"},
			{"name":"initialOwner","type":"address"},
			{"name":"content","type":"bytes"},
			{"name":"mimetype","type":"string"},
			{"name":"mediaType","type":"string"},
			{"name":"mimeSubtype","type":"string"},
			{"name":"wasBase64","type":"bool"},
			{"name":"esip6","type":"bool"},
			{"name":"tokenParams","type":"tuple","components":[
				{"name":"op","type":"string"},
				{"name":"protocol","type":"string"},
				{"name":"tick","type":"string"},
				{"name":"id","type":"uint256"},
				{"name":"max","type":"uint256"},
				{"name":"amt","type":"uint256"}]}]}]},
	{"name":"transferEthscription","type":"function","inputs":[
		{"name":"to","type":"address"},
		{"name":"ethscriptionId","type":"bytes32"}]},
	{"name":"transferEthscriptionForPreviousOwner","type":"function","inputs":[
		{"name":"to","type":"address"},
		{"name":"ethscriptionId","type":"bytes32"},
		{"name":"previousOwner","type":"address"}]}
]`

var ethscriptionsABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(ethscriptionsContractABI))
	if err != nil {
		panic(err)
	}
	ethscriptionsABI = parsed
}

type abiTokenParams struct {
	Op       string
	Protocol string
	Tick     string
	Id       *big.Int
	Max      *big.Int
	Amt      *big.Int
}

type abiCreateParams struct {
	TransactionHash common.Hash
	ContentUriHash  common.Hash
	InitialOwner    common.Address
	Content         []byte
	Mimetype        string
	MediaType       string
	MimeSubtype     string
	WasBase64       bool
	Esip6           bool
	TokenParams     abiTokenParams
}

// CreateCalldata encodes the createEthscription call for a create operation.
// The content URI hash covers the verbatim URI string: it is the protocol's
// uniqueness key.
func CreateCalldata(txHash common.Hash, initialOwner common.Address, contentURI string, esip6 bool) ([]byte, error) {
	uri, err := ethscription.ParseDataURI(contentURI)
	if err != nil {
		return nil, errors.Wrap(ErrAbiEncoding, err.Error())
	}
	tokenParams := extractor.ExtractTokenParams(uri.Data)
	if tokenParams == nil {
		tokenParams = extractor.ZeroTokenParams()
	}
	params := abiCreateParams{
		TransactionHash: txHash,
		ContentUriHash:  common.Hash(sha256.Sum256([]byte(contentURI))),
		InitialOwner:    initialOwner,
		Content:         uri.Data,
		Mimetype:        uri.Mimetype,
		MediaType:       uri.MediaType,
		MimeSubtype:     uri.MimeSubtype,
		WasBase64:       uri.Base64,
		Esip6:           esip6,
		TokenParams: abiTokenParams{
			Op:       tokenParams.Op,
			Protocol: tokenParams.Protocol,
			Tick:     tokenParams.Tick,
			Id:       tokenParams.ID,
			Max:      tokenParams.Max,
			Amt:      tokenParams.Amt,
		},
	}
	data, err := ethscriptionsABI.Pack("createEthscription", params)
	if err != nil {
		return nil, errors.Wrap(ErrAbiEncoding, err.Error())
	}
	return data, nil
}

// TransferCalldata encodes the transferEthscription call.
func TransferCalldata(to common.Address, ethscriptionID common.Hash) ([]byte, error) {
	data, err := ethscriptionsABI.Pack("transferEthscription", to, [32]byte(ethscriptionID))
	if err != nil {
		return nil, errors.Wrap(ErrAbiEncoding, err.Error())
	}
	return data, nil
}

// TransferForPreviousOwnerCalldata encodes the three-argument transfer call.
func TransferForPreviousOwnerCalldata(to common.Address, ethscriptionID common.Hash, previousOwner common.Address) ([]byte, error) {
	data, err := ethscriptionsABI.Pack("transferEthscriptionForPreviousOwner", to, [32]byte(ethscriptionID), previousOwner)
	if err != nil {
		return nil, errors.Wrap(ErrAbiEncoding, err.Error())
	}
	return data, nil
}
