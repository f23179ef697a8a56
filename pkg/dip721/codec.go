package dip721

import (
	"fmt"

	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
)

const (
	MethodSupportedInterfaces = "supportedInterfacesDip721"
	MethodMint                = "mintDip721"
)

type metadataVal struct {
	TextContent  *string  `ic:"TextContent,variant"`
	BlobContent  *[]byte  `ic:"BlobContent,variant"`
	NatContent   *idl.Nat `ic:"NatContent,variant"`
	Nat8Content  *uint8   `ic:"Nat8Content,variant"`
	Nat16Content *uint16  `ic:"Nat16Content,variant"`
	Nat32Content *uint32  `ic:"Nat32Content,variant"`
	Nat64Content *uint64  `ic:"Nat64Content,variant"`
}

type metadataPurpose struct {
	Preview  *idl.Null `ic:"Preview,variant"`
	Rendered *idl.Null `ic:"Rendered,variant"`
}

type metadataKeyVal struct {
	Field0 string      `ic:"0" json:"0"`
	Field1 metadataVal `ic:"1" json:"1"`
}

type metadataPart struct {
	Purpose    metadataPurpose  `ic:"purpose" json:"purpose"`
	KeyValData []metadataKeyVal `ic:"key_val_data" json:"key_val_data"`
	Data       []byte           `ic:"data" json:"data"`
}

type interfaceID struct {
	Approval             *idl.Null `ic:"Approval,variant"`
	TransactionHistory   *idl.Null `ic:"TransactionHistory,variant"`
	Mint                 *idl.Null `ic:"Mint,variant"`
	Burn                 *idl.Null `ic:"Burn,variant"`
	TransferNotification *idl.Null `ic:"TransferNotification,variant"`
}

type mintReceiptPart struct {
	ID      idl.Nat `ic:"id" json:"id"`
	TokenID uint64  `ic:"token_id" json:"token_id"`
}

type mintError struct {
	Unauthorized *idl.Null `ic:"Unauthorized,variant"`
}

type mintResult struct {
	Ok  *mintReceiptPart `ic:"Ok,variant"`
	Err *mintError       `ic:"Err,variant"`
}

func encodeEmptyArgs() ([]byte, error) {
	return idl.Marshal([]any{})
}

func encodeMintArgs(owner principal.Principal, record MetadataRecord, data []byte) ([]byte, error) {
	keyVals := make([]metadataKeyVal, 0, record.Len())
	for _, entry := range record.Entries() {
		encoded, err := metadataCandidValue(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", entry.Key, err)
		}
		keyVals = append(keyVals, metadataKeyVal{Field0: entry.Key, Field1: encoded})
	}
	if data == nil {
		data = []byte{}
	}

	part := metadataPart{
		Purpose:    metadataPurpose{Rendered: &idl.Null{}},
		KeyValData: keyVals,
		Data:       data,
	}
	return idl.Marshal([]any{owner, []metadataPart{part}, data})
}

func metadataCandidValue(value MetadataValue) (metadataVal, error) {
	switch value.Kind() {
	case ValueText:
		text := value.Text()
		return metadataVal{TextContent: &text}, nil
	case ValueBlob:
		blob := value.Blob()
		return metadataVal{BlobContent: &blob}, nil
	case ValueNat:
		nat := idl.NewBigNat(value.Nat())
		return metadataVal{NatContent: &nat}, nil
	case ValueNat8:
		small := uint8(value.Uint())
		return metadataVal{Nat8Content: &small}, nil
	case ValueNat16:
		small := uint16(value.Uint())
		return metadataVal{Nat16Content: &small}, nil
	case ValueNat32:
		small := uint32(value.Uint())
		return metadataVal{Nat32Content: &small}, nil
	case ValueNat64:
		wide := value.Uint()
		return metadataVal{Nat64Content: &wide}, nil
	default:
		return metadataVal{}, fmt.Errorf("unsupported metadata value kind %d", value.Kind())
	}
}

func (id interfaceID) capability() (Capability, bool) {
	switch {
	case id.Approval != nil:
		return CapabilityApproval, true
	case id.TransactionHistory != nil:
		return CapabilityTransactionHistory, true
	case id.Mint != nil:
		return CapabilityMint, true
	case id.Burn != nil:
		return CapabilityBurn, true
	case id.TransferNotification != nil:
		return CapabilityTransferNotification, true
	default:
		return "", false
	}
}

func decodeCapabilities(reply []byte) (CapabilitySet, error) {
	var ids []interfaceID
	if err := idl.Unmarshal(reply, []any{&ids}); err != nil {
		return nil, err
	}

	set := CapabilitySet{}
	for index, id := range ids {
		capability, ok := id.capability()
		if !ok {
			return nil, fmt.Errorf("interface id %d has no known case", index)
		}
		set[capability] = struct{}{}
	}
	return set, nil
}

func decodeMintReply(reply []byte) (MintOutcome, error) {
	var result mintResult
	if err := idl.Unmarshal(reply, []any{&result}); err != nil {
		return MintOutcome{}, err
	}

	switch {
	case result.Ok != nil:
		id := result.Ok.ID.BigInt()
		if id == nil {
			return MintOutcome{}, fmt.Errorf("mint receipt id must be a nat")
		}
		return succeeded(result.Ok.TokenID, id), nil
	case result.Err != nil:
		if result.Err.Unauthorized != nil {
			return denied(DenialUnauthorized), nil
		}
		return MintOutcome{}, fmt.Errorf("mint error has no known case")
	default:
		return MintOutcome{}, fmt.Errorf("mint reply is not a result variant")
	}
}
