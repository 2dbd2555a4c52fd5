// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package deposits

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestSelectors(t *testing.T) {
	for method, signature := range map[string]string{
		"createEthscription":                   "createEthscription((bytes32,bytes32,address,bytes,string,string,string,bool,bool,(string,string,string,uint256,uint256,uint256)))",
		"transferEthscription":                 "transferEthscription(address,bytes32)",
		"transferEthscriptionForPreviousOwner": "transferEthscriptionForPreviousOwner(address,bytes32,address)",
	} {
		expected := crypto.Keccak256([]byte(signature))[:4]
		require.Equal(t, expected, ethscriptionsABI.Methods[method].ID, method)
	}
}

func TestCreateCalldata(t *testing.T) {
	txHash := common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
	owner := common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	contentURI := "data:,hello world"

	data, err := CreateCalldata(txHash, owner, contentURI, false)
	require.NoError(t, err)
	require.Equal(t, ethscriptionsABI.Methods["createEthscription"].ID, data[:4])

	values, err := ethscriptionsABI.Methods["createEthscription"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	params := values[0].(struct {
		TransactionHash [32]byte `json:"transactionHash"`
		ContentUriHash  [32]byte `json:"contentUriHash"`
		InitialOwner    common.Address `json:"initialOwner"`
		Content         []byte   `json:"content"`
		Mimetype        string   `json:"mimetype"`
		MediaType       string   `json:"mediaType"`
		MimeSubtype     string   `json:"mimeSubtype"`
		WasBase64       bool     `json:"wasBase64"`
		Esip6           bool     `json:"esip6"`
		TokenParams     struct {
			Op       string   `json:"op"`
			Protocol string   `json:"protocol"`
			Tick     string   `json:"tick"`
			Id       *big.Int `json:"id"`
			Max      *big.Int `json:"max"`
			Amt      *big.Int `json:"amt"`
		} `json:"tokenParams"`
	})
	require.Equal(t, [32]byte(txHash), params.TransactionHash)
	require.Equal(t, [32]byte(sha256.Sum256([]byte(contentURI))), params.ContentUriHash)
	require.Equal(t, owner, params.InitialOwner)
	require.Equal(t, []byte("hello world"), params.Content)
	require.Equal(t, "", params.Mimetype)
	require.False(t, params.WasBase64)
	require.False(t, params.Esip6)
	require.Equal(t, "", params.TokenParams.Op)
	require.Equal(t, 0, params.TokenParams.Id.Sign())
}

func TestCreateCalldataTokenParams(t *testing.T) {
	txHash := common.HexToHash("0x01")
	owner := common.HexToAddress("0x02")
	contentURI := `data:,{"p":"erc-20","op":"mint","tick":"punk","id":"1","amt":"100"}`

	data, err := CreateCalldata(txHash, owner, contentURI, false)
	require.NoError(t, err)

	values, err := ethscriptionsABI.Methods["createEthscription"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	// Walk down to the nested token tuple via reflection-free re-pack: the
	// easiest stable check is that packing the same inputs reproduces the
	// calldata, and that the tick appears in the payload.
	require.Contains(t, string(data), "punk")
	require.NotEmpty(t, values)

	again, err := CreateCalldata(txHash, owner, contentURI, false)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestCreateCalldataInvalidURI(t *testing.T) {
	_, err := CreateCalldata(common.Hash{}, common.Address{}, "not a data uri", false)
	require.ErrorIs(t, err, ErrAbiEncoding)
}

func TestTransferCalldata(t *testing.T) {
	to := common.HexToAddress("0xabcdabcdabcdabcdabcdabcdabcdabcdabcdabab")
	id := common.HexToHash("0xdeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddeaddead")

	data, err := TransferCalldata(to, id)
	require.NoError(t, err)
	require.Equal(t, ethscriptionsABI.Methods["transferEthscription"].ID, data[:4])
	require.Len(t, data, 4+32+32)

	values, err := ethscriptionsABI.Methods["transferEthscription"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, to, values[0].(common.Address))
	require.Equal(t, [32]byte(id), values[1].([32]byte))
}

func TestTransferForPreviousOwnerCalldata(t *testing.T) {
	to := common.HexToAddress("0x01")
	id := common.HexToHash("0x02")
	previous := common.HexToAddress("0x03")

	data, err := TransferForPreviousOwnerCalldata(to, id, previous)
	require.NoError(t, err)
	require.Equal(t, ethscriptionsABI.Methods["transferEthscriptionForPreviousOwner"].ID, data[:4])
	require.Len(t, data, 4+32+32+32)
}
