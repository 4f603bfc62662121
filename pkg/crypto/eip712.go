package crypto

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/trading-ducky/params"
)

// EIP712Domain represents the domain separator for EIP-712 typed data
// This prevents replay attacks across different chains/contracts
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address // zero for off-chain signing
}

// DefaultDomain returns the domain trading actions are signed under.
func DefaultDomain() EIP712Domain {
	return EIP712Domain{
		Name:              "HotstuffCore",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: common.Address{},
	}
}

// DomainFromConfig builds the domain from configuration, falling back to the
// default for any unset field.
func DomainFromConfig(cfg params.Signing) EIP712Domain {
	d := DefaultDomain()
	if cfg.DomainName != "" {
		d.Name = cfg.DomainName
	}
	if cfg.DomainVersion != "" {
		d.Version = cfg.DomainVersion
	}
	if cfg.ChainID != 0 {
		d.ChainID = big.NewInt(cfg.ChainID)
	}
	if common.IsHexAddress(cfg.VerifyingContract) {
		d.VerifyingContract = common.HexToAddress(cfg.VerifyingContract)
	}
	return d
}

// Action is the typed envelope an API wallet signs. The action body itself
// is committed to through actionHash, so the typed schema stays fixed for
// every action type.
type Action struct {
	ActionType   string
	ActionHash   common.Hash // keccak256 of the action's JSON
	Nonce        uint64      // epoch milliseconds at signing time
	ExpiresAfter int64       // epoch milliseconds
}

var actionTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Action": []apitypes.Type{
		{Name: "actionType", Type: "string"},
		{Name: "actionHash", Type: "bytes32"},
		{Name: "nonce", Type: "uint256"},
		{Name: "expiresAfter", Type: "uint256"},
	},
}

// ActionSigner hashes and signs trading actions with EIP-712
type ActionSigner struct {
	domain EIP712Domain
}

func NewActionSigner(domain EIP712Domain) *ActionSigner {
	return &ActionSigner{domain: domain}
}

func (e *ActionSigner) Domain() EIP712Domain { return e.domain }

// NewAction commits to body by hashing its JSON encoding.
func NewAction(actionType string, body any, nonce uint64, expiresAfter int64) (Action, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Action{}, fmt.Errorf("failed to encode action: %w", err)
	}
	return Action{
		ActionType:   actionType,
		ActionHash:   crypto.Keccak256Hash(raw),
		Nonce:        nonce,
		ExpiresAfter: expiresAfter,
	}, nil
}

func (e *ActionSigner) typedData(a Action) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       actionTypes,
		PrimaryType: "Action",
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"actionType":   a.ActionType,
			"actionHash":   a.ActionHash.Hex(),
			"nonce":        new(big.Int).SetUint64(a.Nonce).String(),
			"expiresAfter": big.NewInt(a.ExpiresAfter).String(),
		},
	}
}

// HashAction returns the EIP-712 digest that should be signed
func (e *ActionSigner) HashAction(a Action) ([]byte, error) {
	typedData := e.typedData(a)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// keccak256("\x19\x01" || domainSeparator || typedDataHash)
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	return crypto.Keccak256Hash(rawData).Bytes(), nil
}

// SignAction signs an action and returns the 65-byte signature
func (e *ActionSigner) SignAction(signer *Signer, a Action) ([]byte, error) {
	hash, err := e.HashAction(a)
	if err != nil {
		return nil, fmt.Errorf("failed to hash action: %w", err)
	}

	signature, err := signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign action: %w", err)
	}
	return signature, nil
}

// RecoverActionSigner recovers the address that signed an action
func (e *ActionSigner) RecoverActionSigner(a Action, signature []byte) (common.Address, error) {
	hash, err := e.HashAction(a)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash action: %w", err)
	}
	return RecoverAddress(hash, signature)
}

// TypedDataJSON renders the action in the eth_signTypedData_v4 layout, for
// inspection or for signing in an external wallet.
func (e *ActionSigner) TypedDataJSON(a Action) (string, error) {
	jsonBytes, err := json.MarshalIndent(e.typedData(a), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}
