package dip721

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/ledger"
	"github.com/ipfs/go-cid"
)

const testCanister = "ryjl3-tyaaa-aaaaa-aaaba-cai"

type fakeCall struct {
	kind   string
	target string
	method string
	arg    []byte
}

type fakeTransport struct {
	calls       []fakeCall
	queryReply  []byte
	queryErr    error
	updateReply []byte
	updateErr   error
}

func (f *fakeTransport) Query(_ context.Context, target string, method string, arg []byte) ([]byte, error) {
	f.calls = append(f.calls, fakeCall{kind: "query", target: target, method: method, arg: arg})
	return f.queryReply, f.queryErr
}

func (f *fakeTransport) UpdateAndWait(_ context.Context, target string, method string, arg []byte) ([]byte, error) {
	f.calls = append(f.calls, fakeCall{kind: "update", target: target, method: method, arg: arg})
	return f.updateReply, f.updateErr
}

func (f *fakeTransport) updates() int {
	count := 0
	for _, call := range f.calls {
		if call.kind == "update" {
			count++
		}
	}
	return count
}

// The wide types carry cases the decoder does not know to exercise the
// closed variant handling.
type wideInterfaceID struct {
	Approval             *idl.Null `ic:"Approval,variant"`
	TransactionHistory   *idl.Null `ic:"TransactionHistory,variant"`
	Mint                 *idl.Null `ic:"Mint,variant"`
	Burn                 *idl.Null `ic:"Burn,variant"`
	TransferNotification *idl.Null `ic:"TransferNotification,variant"`
	Royalty              *idl.Null `ic:"Royalty,variant"`
}

type wideMintError struct {
	Unauthorized *idl.Null `ic:"Unauthorized,variant"`
	Other        *idl.Null `ic:"Other,variant"`
}

type wideMintResult struct {
	Ok  *mintReceiptPart `ic:"Ok,variant"`
	Err *wideMintError   `ic:"Err,variant"`
}

func capabilitiesReply(t *testing.T, names ...string) []byte {
	t.Helper()
	ids := make([]wideInterfaceID, 0, len(names))
	for _, name := range names {
		var id wideInterfaceID
		switch name {
		case "Approval":
			id.Approval = &idl.Null{}
		case "TransactionHistory":
			id.TransactionHistory = &idl.Null{}
		case "Mint":
			id.Mint = &idl.Null{}
		case "Burn":
			id.Burn = &idl.Null{}
		case "TransferNotification":
			id.TransferNotification = &idl.Null{}
		case "Royalty":
			id.Royalty = &idl.Null{}
		default:
			t.Fatalf("unknown interface %q", name)
		}
		ids = append(ids, id)
	}
	encoded, err := idl.Marshal([]any{ids})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return encoded
}

func mintOkReply(t *testing.T, id int64, tokenID uint64) []byte {
	t.Helper()
	result := wideMintResult{Ok: &mintReceiptPart{ID: idl.NewBigNat(big.NewInt(id)), TokenID: tokenID}}
	encoded, err := idl.Marshal([]any{result})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return encoded
}

func mintErrReply(t *testing.T, reason string) []byte {
	t.Helper()
	var mintErr wideMintError
	switch reason {
	case "Unauthorized":
		mintErr.Unauthorized = &idl.Null{}
	case "Other":
		mintErr.Other = &idl.Null{}
	default:
		t.Fatalf("unknown reason %q", reason)
	}
	encoded, err := idl.Marshal([]any{wideMintResult{Err: &mintErr}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return encoded
}

type mintArgs struct {
	owner principal.Principal
	parts []metadataPart
	data  []byte
}

func decodeMintArgs(t *testing.T, encoded []byte) mintArgs {
	t.Helper()
	var args mintArgs
	if err := idl.Unmarshal(encoded, []any{&args.owner, &args.parts, &args.data}); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	return args
}

func mustHex(t *testing.T, text string) []byte {
	t.Helper()
	decoded, err := hex.DecodeString(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return decoded
}

func newTestClient(t *testing.T, transport Transport) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{Transport: transport})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func expectValidation(t *testing.T, err error, sentinel error, code ErrorCode) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Code != code {
		t.Fatalf("expected validation error with code %s, got %v", code, err)
	}
}

func TestScenarioNoLocationNoFile(t *testing.T) {
	location, err := ResolveLocation(NoLocation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record, err := AssembleMetadata(MetadataOptions{Location: location})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(record.Keys(), []string{KeyLocationType, KeyContentType}) {
		t.Fatalf("unexpected keys: %v", record.Keys())
	}
	locationType, _ := record.Get(KeyLocationType)
	if !locationType.Equal(Nat8Value(4)) {
		t.Fatalf("unexpected locationType: %v", locationType)
	}
	contentType, _ := record.Get(KeyContentType)
	if contentType.Text() != DefaultContentType {
		t.Fatalf("unexpected contentType: %v", contentType)
	}
}

func TestScenarioExternalURIWithHash(t *testing.T) {
	location, err := ResolveLocation(ExternalURI("https://example.com/a.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record, err := AssembleMetadata(MetadataOptions{Location: location, ContentHash: "deadbeef"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantKeys := []string{KeyLocationType, KeyLocation, KeyContentHash, KeyContentType}
	if !reflect.DeepEqual(record.Keys(), wantKeys) {
		t.Fatalf("unexpected keys: %v", record.Keys())
	}
	checks := map[string]MetadataValue{
		KeyLocationType: Nat8Value(3),
		KeyLocation:     TextValue("https://example.com/a.png"),
		KeyContentHash:  BlobValue([]byte{0xde, 0xad, 0xbe, 0xef}),
		KeyContentType:  TextValue(DefaultContentType),
	}
	for key, want := range checks {
		got, ok := record.Get(key)
		if !ok || !got.Equal(want) {
			t.Fatalf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestScenarioCapabilityMissingAbortsBeforeMint(t *testing.T) {
	transport := &fakeTransport{queryReply: capabilitiesReply(t, "Approval", "Burn")}
	client := newTestClient(t, transport)

	_, err := client.MintToken(context.Background(), MintRequest{
		Canister:    testCanister,
		Owner:       principal.AnonymousID,
		ContentType: "text/plain",
	})
	var missing *CapabilityMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected capability missing error, got %v", err)
	}
	if missing.Capability != CapabilityMint || !strings.Contains(err.Error(), "does not support minting") {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.updates() != 0 {
		t.Fatalf("mint call must not be attempted")
	}
}

func TestScenarioDeniedIsOutcomeNotError(t *testing.T) {
	transport := &fakeTransport{
		queryReply:  capabilitiesReply(t, "Mint"),
		updateReply: mintErrReply(t, "Unauthorized"),
	}
	client := newTestClient(t, transport)

	result, err := client.MintToken(context.Background(), MintRequest{
		Canister: testCanister,
		Owner:    principal.AnonymousID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome.Succeeded() {
		t.Fatalf("expected denial")
	}
	reason, ok := result.Outcome.Denial()
	if !ok || reason != DenialUnauthorized {
		t.Fatalf("unexpected denial: %q %v", reason, ok)
	}
	if reason.Message() != "You aren't authorized as a custodian of that canister." {
		t.Fatalf("unexpected message: %s", reason.Message())
	}
}

func TestMintTokenSuccess(t *testing.T) {
	transport := &fakeTransport{
		queryReply:  capabilitiesReply(t, "Mint", "Burn"),
		updateReply: mintOkReply(t, 99, 42),
	}
	client := newTestClient(t, transport)
	owner := principal.MustDecode(testCanister)

	result, err := client.MintToken(context.Background(), MintRequest{
		Canister: testCanister,
		Owner:    owner,
		AutoHash: true,
		File:     &File{Name: "art.png", Data: []byte("pixels")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	receipt, ok := result.Outcome.Receipt()
	if !ok || receipt.TokenID != 42 || receipt.TransactionID.Int64() != 99 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	if len(transport.calls) != 2 || transport.calls[0].method != MethodSupportedInterfaces || transport.calls[1].method != MethodMint {
		t.Fatalf("unexpected call sequence: %+v", transport.calls)
	}
	if !bytes.Equal(transport.calls[0].arg, []byte("DIDL\x00\x00")) {
		t.Fatalf("probe must send empty arguments, got %x", transport.calls[0].arg)
	}

	args := decodeMintArgs(t, transport.calls[1].arg)
	if !bytes.Equal(args.owner.Raw, owner.Raw) {
		t.Fatalf("unexpected owner %x", args.owner.Raw)
	}
	if !bytes.Equal(args.data, []byte("pixels")) {
		t.Fatalf("unexpected data argument %q", args.data)
	}
	if len(args.parts) != 1 {
		t.Fatalf("expected one metadata part")
	}
	part := args.parts[0]
	if part.Purpose.Rendered == nil || part.Purpose.Preview != nil {
		t.Fatalf("expected Rendered purpose")
	}
	if !bytes.Equal(part.Data, []byte("pixels")) {
		t.Fatalf("unexpected part data %q", part.Data)
	}
	var keys []string
	for _, keyVal := range part.KeyValData {
		keys = append(keys, keyVal.Field0)
	}
	if !reflect.DeepEqual(keys, []string{KeyLocationType, KeyContentHash, KeyContentType}) {
		t.Fatalf("unexpected metadata keys: %v", keys)
	}
	contentType := part.KeyValData[2].Field1.TextContent
	if contentType == nil {
		t.Fatalf("contentType must be text")
	}
	if *contentType != "image/png" {
		t.Fatalf("unexpected content type %q", *contentType)
	}
	hash, _ := result.Metadata.Get(KeyContentHash)
	if !bytes.Equal(hash.Blob(), HashContent([]byte("pixels"))) {
		t.Fatalf("unexpected content hash")
	}
}

func TestLocationOptionsAtMostOne(t *testing.T) {
	cases := []LocationOptions{
		{ContentAddress: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", URI: "https://example.com"},
		{ContentAddress: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", ContainerReference: testCanister},
		{ContainerReference: testCanister, URI: "https://example.com"},
		{ContentAddress: "x", ContainerReference: "y", URI: "z"},
	}
	for _, options := range cases {
		_, err := LocationFromOptions(options)
		expectValidation(t, err, ErrConflictingLocation, ErrorCodeConflictingLocation)
	}

	source, err := LocationFromOptions(LocationOptions{})
	if err != nil || source.Type() != LocationNone {
		t.Fatalf("expected no location, got %v %v", source.Type(), err)
	}
}

func TestContainerReferenceLocation(t *testing.T) {
	source, err := LocationFromOptions(LocationOptions{ContainerReference: testCanister})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	location, err := ResolveLocation(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if location.Type != LocationContainer || !location.Value.Equal(TextValue(testCanister)) {
		t.Fatalf("unexpected location: %+v", location)
	}

	_, err = LocationFromOptions(LocationOptions{ContainerReference: "not-a-principal"})
	expectValidation(t, err, ErrMalformedIdentifier, ErrorCodeMalformedIdentifier)
}

func TestContentAddressLocation(t *testing.T) {
	location, err := ResolveLocation(ContentAddress("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blob := location.Value.Blob()
	if location.Type != LocationContentAddress || len(blob) != 34 || blob[0] != 0x12 || blob[1] != 0x20 {
		t.Fatalf("unexpected CIDv0 bytes %x", blob)
	}

	derived, err := ContentAddressFor([]byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	location, err = ResolveLocation(ContentAddress(derived))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := cid.Decode(derived)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(location.Value.Blob(), parsed.Bytes()) {
		t.Fatalf("location must hold the binary CID")
	}
	want := append([]byte{0x01, 0x55, 0x12, 0x20}, HashContent([]byte("hello"))...)
	if !bytes.Equal(location.Value.Blob(), want) {
		t.Fatalf("unexpected CIDv1 bytes %x", location.Value.Blob())
	}

	_, err = ResolveLocation(ContentAddress("not-a-cid"))
	expectValidation(t, err, ErrMalformedIdentifier, ErrorCodeMalformedIdentifier)
}

func TestURIValidation(t *testing.T) {
	for _, valid := range []string{"https://example.com/a.png", "ipfs://bafy/x", "mailto:art@example.com"} {
		if _, err := ResolveLocation(ExternalURI(valid)); err != nil {
			t.Fatalf("expected %q to be valid, got %v", valid, err)
		}
	}
	for _, invalid := range []string{"example.com/a.png", "https://exa mple.com", "://nothing", "1http://x"} {
		_, err := ResolveLocation(ExternalURI(invalid))
		expectValidation(t, err, ErrInvalidURI, ErrorCodeInvalidURI)
	}
}

func TestURIRequiresHash(t *testing.T) {
	uris := []string{"https://example.com/a.png", "https://example.com/b", "ftp://files.example.com/c"}
	for _, uri := range uris {
		transport := &fakeTransport{queryReply: capabilitiesReply(t, "Mint")}
		client := newTestClient(t, transport)
		_, err := client.MintToken(context.Background(), MintRequest{
			Canister: testCanister,
			Owner:    principal.AnonymousID,
			Location: ExternalURI(uri),
		})
		expectValidation(t, err, ErrHashRequired, ErrorCodeHashRequired)
		if len(transport.calls) != 0 {
			t.Fatalf("no remote call may happen for an invalid request")
		}
	}

	location, _ := ResolveLocation(ExternalURI("https://example.com/a.png"))
	_, err := AssembleMetadata(MetadataOptions{Location: location})
	expectValidation(t, err, ErrHashRequired, ErrorCodeHashRequired)

	record, err := AssembleMetadata(MetadataOptions{
		Location: location,
		AutoHash: true,
		File:     &File{Name: "a.png", Data: []byte{1}},
	})
	if err != nil {
		t.Fatalf("automatic hash must satisfy the hash requirement: %v", err)
	}
	if _, ok := record.Get(KeyContentHash); !ok {
		t.Fatalf("expected contentHash")
	}
}

func TestConflictingLocationRejectedBeforeRemoteCall(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(t, transport)
	_, err := client.MintToken(context.Background(), MintRequest{
		Canister: testCanister,
		Owner:    principal.AnonymousID,
		Location: ContentAddress("not-a-cid"),
	})
	expectValidation(t, err, ErrMalformedIdentifier, ErrorCodeMalformedIdentifier)
	if len(transport.calls) != 0 {
		t.Fatalf("no remote call may happen for an invalid request")
	}
}

func TestHashOptions(t *testing.T) {
	_, err := AssembleMetadata(MetadataOptions{ContentHash: "zz"})
	expectValidation(t, err, ErrMalformedHash, ErrorCodeMalformedHash)

	_, err = AssembleMetadata(MetadataOptions{ContentHash: "abc"})
	expectValidation(t, err, ErrMalformedHash, ErrorCodeMalformedHash)

	_, err = AssembleMetadata(MetadataOptions{ContentHash: "00", AutoHash: true, File: &File{}})
	expectValidation(t, err, ErrConflictingHash, ErrorCodeConflictingHash)

	_, err = AssembleMetadata(MetadataOptions{AutoHash: true})
	expectValidation(t, err, ErrMissingContent, ErrorCodeMissingContent)

	record, err := AssembleMetadata(MetadataOptions{ContentHash: "0xDEADBEEF"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hash, _ := record.Get(KeyContentHash)
	if hex.EncodeToString(hash.Blob()) != "deadbeef" {
		t.Fatalf("unexpected hash %x", hash.Blob())
	}

	record, err = AssembleMetadata(MetadataOptions{File: &File{Name: "a.txt", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := record.Get(KeyContentHash); ok {
		t.Fatalf("contentHash must be absent when neither given nor requested")
	}
}

func TestHashIsDeterministic(t *testing.T) {
	first := HashContent([]byte("abc"))
	second := HashContent([]byte("abc"))
	if !bytes.Equal(first, second) || len(first) != 32 {
		t.Fatalf("hash must be deterministic and 32 bytes")
	}
	if hex.EncodeToString(first) != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256: %x", first)
	}
	if len(HashContent(nil)) != 32 {
		t.Fatalf("empty content must hash to 32 bytes")
	}
}

func TestContentTypeResolution(t *testing.T) {
	cases := []struct {
		name    string
		options MetadataOptions
		want    string
	}{
		{"override wins", MetadataOptions{ContentType: "text/markdown", File: &File{Name: "a.png"}}, "text/markdown"},
		{"inferred from name", MetadataOptions{File: &File{Name: "a.PNG"}}, "image/png"},
		{"unknown extension", MetadataOptions{File: &File{Name: "a.nosuchext"}}, DefaultContentType},
		{"no file", MetadataOptions{}, DefaultContentType},
		{"custom lookup", MetadataOptions{File: &File{Name: "a.bin"}, TypeLookup: func(string) string { return "x/y" }}, "x/y"},
		{"empty lookup", MetadataOptions{File: &File{Name: "a.png"}, TypeLookup: func(string) string { return "" }}, DefaultContentType},
	}
	for _, tc := range cases {
		record, err := AssembleMetadata(tc.options)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		got, _ := record.Get(KeyContentType)
		if got.Text() != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got.Text(), tc.want)
		}
	}
}

func TestRecordAlwaysHasRequiredKeys(t *testing.T) {
	sources := []LocationSource{
		NoLocation(),
		ContentAddress("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"),
		ContainerReference(principal.MustDecode(testCanister)),
		ExternalURI("https://example.com/a"),
	}
	for _, source := range sources {
		location, err := ResolveLocation(source)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		record, err := AssembleMetadata(MetadataOptions{Location: location, ContentHash: "00"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := record.Get(KeyLocationType); !ok {
			t.Fatalf("locationType missing")
		}
		if _, ok := record.Get(KeyContentType); !ok {
			t.Fatalf("contentType missing")
		}
		_, hasLocation := record.Get(KeyLocation)
		if hasLocation == (location.Type == LocationNone) {
			t.Fatalf("location presence wrong for type %d", location.Type)
		}
	}
}

func TestNatValueBounds(t *testing.T) {
	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	value, err := NatValue(limit)
	if err != nil || value.Nat().Cmp(limit) != 0 {
		t.Fatalf("expected 2^128-1 to be accepted: %v", err)
	}
	if _, err := NatValue(new(big.Int).Add(limit, big.NewInt(1))); err == nil {
		t.Fatalf("expected overflow to be rejected")
	}
	if _, err := NatValue(big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative to be rejected")
	}
}

func TestMetadataValuesEncode(t *testing.T) {
	nat, _ := NatValue(big.NewInt(1 << 40))
	values := []MetadataValue{
		TextValue("t"), BlobValue([]byte{1}), nat,
		Nat8Value(8), Nat16Value(16), Nat32Value(32), Nat64Value(64),
	}
	selected := []func(metadataVal) bool{
		func(v metadataVal) bool { return v.TextContent != nil && *v.TextContent == "t" },
		func(v metadataVal) bool { return v.BlobContent != nil && bytes.Equal(*v.BlobContent, []byte{1}) },
		func(v metadataVal) bool { return v.NatContent != nil && v.NatContent.BigInt().Int64() == 1<<40 },
		func(v metadataVal) bool { return v.Nat8Content != nil && *v.Nat8Content == 8 },
		func(v metadataVal) bool { return v.Nat16Content != nil && *v.Nat16Content == 16 },
		func(v metadataVal) bool { return v.Nat32Content != nil && *v.Nat32Content == 32 },
		func(v metadataVal) bool { return v.Nat64Content != nil && *v.Nat64Content == 64 },
	}
	for index, value := range values {
		encoded, err := metadataCandidValue(value)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !selected[index](encoded) {
			t.Fatalf("value %v encoded as wrong case: %+v", value, encoded)
		}
	}
	if _, err := metadataCandidValue(MetadataValue{}); err == nil {
		t.Fatalf("expected zero value to be rejected")
	}
}

func TestProbeDestinationInvalidIsUnsupportedService(t *testing.T) {
	transport := &fakeTransport{queryErr: &ledger.Rejection{
		Code:    ledger.RejectDestinationInvalid,
		Message: "Canister has no query method 'supportedInterfacesDip721'",
	}}
	err := RequireCapability(context.Background(), transport, testCanister, CapabilityMint)
	if !IsKind(err, KindUnsupportedService) {
		t.Fatalf("expected unsupported service, got %v", err)
	}
	if IsKind(err, KindProtocol) {
		t.Fatalf("must not be reported as a protocol error")
	}
	if !strings.Contains(err.Error(), "does not appear to be a DIP-721 NFT canister") ||
		!strings.Contains(err.Error(), "has no query method") {
		t.Fatalf("error must carry hint and original message: %v", err)
	}
	rejection, ok := ledger.AsRejection(err)
	if !ok || rejection.Code != ledger.RejectDestinationInvalid {
		t.Fatalf("original rejection must stay reachable")
	}
}

func TestProbeOtherRejectionIsProtocolError(t *testing.T) {
	for _, code := range []ledger.RejectCode{ledger.RejectSysFatal, ledger.RejectSysTransient, ledger.RejectCanisterReject, ledger.RejectCanisterError} {
		transport := &fakeTransport{queryErr: &ledger.Rejection{Code: code, Message: "boom"}}
		_, err := SupportedCapabilities(context.Background(), transport, testCanister)
		if !IsKind(err, KindProtocol) {
			t.Fatalf("code %d: expected protocol error, got %v", code, err)
		}
	}

	transport := &fakeTransport{queryErr: errors.New("connection refused")}
	_, err := SupportedCapabilities(context.Background(), transport, testCanister)
	if !IsKind(err, KindProtocol) {
		t.Fatalf("transport failure must be a protocol error, got %v", err)
	}
}

// The replica also returns code 3 for failures unrelated to a missing method,
// so those are reported as unsupported as well.
func TestDestinationInvalidAmbiguityIsMisclassified(t *testing.T) {
	rejection := &ledger.Rejection{Code: ledger.RejectDestinationInvalid, Message: "Canister is stopped"}
	err := ClassifyRejection(rejection, probeContext(testCanister))
	if err.Kind != KindUnsupportedService {
		t.Fatalf("expected classification by code only, got %s", err.Kind)
	}
	if errors.Unwrap(err) != rejection {
		t.Fatalf("classifier must preserve the original error")
	}
}

func TestMintDestinationInvalidIsUnsupportedOperation(t *testing.T) {
	transport := &fakeTransport{updateErr: &ledger.Rejection{Code: ledger.RejectDestinationInvalid, Message: "no update method"}}
	_, err := Mint(context.Background(), transport, testCanister, principal.AnonymousID, MetadataRecord{}, nil)
	if !IsKind(err, KindUnsupportedOperation) || !strings.Contains(err.Error(), "does not support minting") {
		t.Fatalf("expected unsupported operation, got %v", err)
	}

	transport = &fakeTransport{updateErr: &ledger.Rejection{Code: ledger.RejectCanisterError, Message: "trapped"}}
	_, err = Mint(context.Background(), transport, testCanister, principal.AnonymousID, MetadataRecord{}, nil)
	if !IsKind(err, KindProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestMintDecodeErrors(t *testing.T) {
	transport := &fakeTransport{updateReply: []byte("garbage")}
	_, err := Mint(context.Background(), transport, testCanister, principal.AnonymousID, MetadataRecord{}, nil)
	if !IsKind(err, KindDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}

	transport = &fakeTransport{updateReply: mintErrReply(t, "Other")}
	_, err = Mint(context.Background(), transport, testCanister, principal.AnonymousID, MetadataRecord{}, nil)
	if !IsKind(err, KindDecode) {
		t.Fatalf("unknown denial reason must be a decode error, got %v", err)
	}
}

func TestCapabilitiesDecode(t *testing.T) {
	transport := &fakeTransport{queryReply: capabilitiesReply(t, "Mint", "TransferNotification")}
	set, err := SupportedCapabilities(context.Background(), transport, testCanister)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(set.List(), []Capability{CapabilityMint, CapabilityTransferNotification}) {
		t.Fatalf("unexpected capabilities: %v", set)
	}
	if set.String() != "[Mint, TransferNotification]" {
		t.Fatalf("unexpected string: %s", set.String())
	}

	transport = &fakeTransport{queryReply: []byte("DIDL\x00\x01\x71\x00")}
	if _, err := SupportedCapabilities(context.Background(), transport, testCanister); !IsKind(err, KindDecode) {
		t.Fatalf("expected decode error for non-vector reply, got %v", err)
	}
}

func TestUnknownCapabilityIsDecodeError(t *testing.T) {
	transport := &fakeTransport{queryReply: capabilitiesReply(t, "Royalty", "Mint")}
	_, err := SupportedCapabilities(context.Background(), transport, testCanister)
	if !IsKind(err, KindDecode) {
		t.Fatalf("expected decode error for an interface outside the known set, got %v", err)
	}
}

func TestNewClientRequiresTransport(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected error")
	}
	client := newTestClient(t, &fakeTransport{})
	if _, err := client.MintToken(context.Background(), MintRequest{}); err == nil {
		t.Fatalf("expected canister required error")
	}
}

// Reference encodings for an anonymous owner and no content. Byte order of the
// type table may differ between encoders, so both sides are compared after
// decoding.
const (
	goldenMintArgsNoLocation   = "4449444c076d016c03aaac8d930402e88ab7830c039ea3bfb90e066d7b6d046c02007101056b07bac9b11278f98acdb80179a2b3c5f9017bf8f4b6ae057df3f7e8af057abcca9cdc0902ecbfa8c90d716b02e88fb0497fd582b6e4087f036800020101040100020c6c6f636174696f6e5479706502040b636f6e74656e745479706506186170706c69636174696f6e2f6f637465742d73747265616d0100"
	goldenMintArgsExternalURI  = "4449444c076d016c03aaac8d930402e88ab7830c039ea3bfb90e066d7b6d046c02007101056b07bac9b11278f98acdb80179a2b3c5f9017bf8f4b6ae057df3f7e8af057abcca9cdc0902ecbfa8c90d716b02e88fb0497fd582b6e4087f036800020101040100040c6c6f636174696f6e547970650203086c6f636174696f6e061968747470733a2f2f6578616d706c652e636f6d2f612e706e670b636f6e74656e74486173680504deadbeef0b636f6e74656e745479706506186170706c69636174696f6e2f6f637465742d73747265616d0100"
	goldenCapabilitiesMintBurn = "4449444c026d016b05ef80e5df027fc2f5d599037fa38ec8e4067fb6eed4a60a7fd6e5d7f40e7f0100020100"
	goldenMintOk               = "4449444c036b02bc8a0101c5fed201026c02dbb7017da1a1c1da02786b01d4b4c59a097f010000632a00000000000000"
	goldenMintErrUnauthorized  = "4449444c036b02bc8a0101c5fed201026c02dbb7017da1a1c1da02786b01d4b4c59a097f01000100"
)

func TestMintArgsMatchReferenceEncoding(t *testing.T) {
	noLocation, err := ResolveLocation(NoLocation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	external, err := ResolveLocation(ExternalURI("https://example.com/a.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []struct {
		name    string
		options MetadataOptions
		golden  string
		keys    []string
	}{
		{
			name:    "no location",
			options: MetadataOptions{Location: noLocation},
			golden:  goldenMintArgsNoLocation,
			keys:    []string{KeyLocationType, KeyContentType},
		},
		{
			name:    "external uri",
			options: MetadataOptions{Location: external, ContentHash: "deadbeef", ContentType: DefaultContentType},
			golden:  goldenMintArgsExternalURI,
			keys:    []string{KeyLocationType, KeyLocation, KeyContentHash, KeyContentType},
		},
	}
	for _, tc := range cases {
		record, err := AssembleMetadata(tc.options)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		encoded, err := encodeMintArgs(principal.AnonymousID, record, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !bytes.HasPrefix(encoded, []byte("DIDL")) {
			t.Fatalf("%s: missing magic: %x", tc.name, encoded)
		}

		got := decodeMintArgs(t, encoded)
		want := decodeMintArgs(t, mustHex(t, tc.golden))
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: encoding differs from reference\n got %+v\nwant %+v", tc.name, got, want)
		}

		if !bytes.Equal(want.owner.Raw, []byte{0x04}) || len(want.data) != 0 || len(want.parts) != 1 {
			t.Fatalf("%s: unexpected reference arguments %+v", tc.name, want)
		}
		var keys []string
		for _, keyVal := range want.parts[0].KeyValData {
			keys = append(keys, keyVal.Field0)
		}
		if !reflect.DeepEqual(keys, tc.keys) {
			t.Fatalf("%s: unexpected keys %v", tc.name, keys)
		}
		locationType := want.parts[0].KeyValData[0].Field1.Nat8Content
		if locationType == nil || *locationType != uint8(tc.options.Location.Type) {
			t.Fatalf("%s: unexpected locationType %+v", tc.name, want.parts[0].KeyValData[0].Field1)
		}
	}
}

func TestReplyReferenceDecoding(t *testing.T) {
	set, err := decodeCapabilities(mustHex(t, goldenCapabilitiesMintBurn))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(set.List(), []Capability{CapabilityMint, CapabilityBurn}) {
		t.Fatalf("unexpected capabilities: %v", set)
	}

	outcome, err := decodeMintReply(mustHex(t, goldenMintOk))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	receipt, ok := outcome.Receipt()
	if !ok || receipt.TokenID != 42 || receipt.TransactionID.Int64() != 99 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	outcome, err = decodeMintReply(mustHex(t, goldenMintErrUnauthorized))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reason, ok := outcome.Denial()
	if !ok || reason != DenialUnauthorized {
		t.Fatalf("unexpected denial: %q %v", reason, ok)
	}
}

func TestMintRequestRequiresOwner(t *testing.T) {
	transport := &fakeTransport{queryReply: capabilitiesReply(t, "Mint")}
	client := newTestClient(t, transport)
	_, err := client.MintToken(context.Background(), MintRequest{Canister: testCanister})

	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Code != ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if !strings.Contains(err.Error(), "owner is required") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transport.calls) != 0 {
		t.Fatalf("no remote call may happen for an invalid request")
	}
}

func TestGuessContentTypeUsesFixedTable(t *testing.T) {
	cases := map[string]string{
		"a.avif":    "image/avif",
		"model.GLB": "model/gltf-binary",
		"a.xml":     "",
		"a.tar":     "",
		"README":    "",
	}
	for name, want := range cases {
		if got := GuessContentType(name); got != want {
			t.Fatalf("%s: got %q want %q", name, got, want)
		}
	}

	record, err := AssembleMetadata(MetadataOptions{File: &File{Name: "notes.xml"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	contentType, _ := record.Get(KeyContentType)
	if contentType.Text() != DefaultContentType {
		t.Fatalf("unlisted extension must fall back to %s, got %q", DefaultContentType, contentType.Text())
	}
}
