// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"math/big"
	"regexp"
)

// The token tier is a byte-exact match: key order, quoting and the absence
// of whitespace are all part of the template. Any deviation falls through to
// the next tier.
var (
	tokenDeployRegexp = regexp.MustCompile(
		`^\{"p":"erc-20","op":"deploy","tick":"([a-z0-9]{1,28})","max":"(0|[1-9][0-9]*)","lim":"(0|[1-9][0-9]*)"\}$`)
	tokenMintRegexp = regexp.MustCompile(
		`^\{"p":"erc-20","op":"mint","tick":"([a-z0-9]{1,28})","id":"(0|[1-9][0-9]*)","amt":"(0|[1-9][0-9]*)"\}$`)
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TokenParams is the decoded token payload, in the shape of the contract's
// (op, protocol, tick, id, max, amt) tuple. Mint fills (id, 0, amt); deploy
// fills (0, max, lim).
type TokenParams struct {
	Op       string
	Protocol string
	Tick     string
	ID       *big.Int
	Max      *big.Int
	Amt      *big.Int
}

// ZeroTokenParams is embedded into create calldata when the content is not a
// token operation.
func ZeroTokenParams() *TokenParams {
	return &TokenParams{ID: new(big.Int), Max: new(big.Int), Amt: new(big.Int)}
}

// Tuple renders the params as an ABI value for encoding.
func (p *TokenParams) Tuple() *Value {
	return TupleValue(
		StringValue(p.Op),
		StringValue(p.Protocol),
		StringValue(p.Tick),
		UintValue(p.ID),
		UintValue(p.Max),
		UintValue(p.Amt),
	)
}

// ExtractTokenParams matches the content against the two token templates.
// It returns nil when the content is not a byte-exact token operation.
func ExtractTokenParams(content []byte) *TokenParams {
	if m := tokenMintRegexp.FindSubmatch(content); m != nil {
		id, ok1 := parseUint256Literal(string(m[2]))
		amt, ok2 := parseUint256Literal(string(m[3]))
		if !ok1 || !ok2 {
			return nil
		}
		return &TokenParams{
			Op:       "mint",
			Protocol: "erc-20",
			Tick:     string(m[1]),
			ID:       id,
			Max:      new(big.Int),
			Amt:      amt,
		}
	}
	if m := tokenDeployRegexp.FindSubmatch(content); m != nil {
		max, ok1 := parseUint256Literal(string(m[2]))
		lim, ok2 := parseUint256Literal(string(m[3]))
		if !ok1 || !ok2 {
			return nil
		}
		return &TokenParams{
			Op:       "deploy",
			Protocol: "erc-20",
			Tick:     string(m[1]),
			ID:       new(big.Int),
			Max:      max,
			Amt:      lim,
		}
	}
	return nil
}

// parseUint256Literal parses a canonical decimal literal (no leading zeros)
// bounded by uint256 max.
func parseUint256Literal(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.Cmp(maxUint256) > 0 {
		return nil, false
	}
	return v, true
}

// extractToken is the first extraction tier.
func extractToken(content []byte) (string, string, []byte, bool) {
	params := ExtractTokenParams(content)
	if params == nil {
		return "", "", nil, false
	}
	return params.Protocol, params.Op, Encode(params.Tuple()), true
}
