package dip721

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocationType is the numeric code stored under the locationType key.
type LocationType uint8

const (
	LocationContentAddress LocationType = 1
	LocationContainer      LocationType = 2
	LocationExternalURI    LocationType = 3
	LocationNone           LocationType = 4
)

func (t LocationType) String() string {
	switch t {
	case LocationContentAddress:
		return "content-address"
	case LocationContainer:
		return "container"
	case LocationExternalURI:
		return "uri"
	case LocationNone:
		return "none"
	default:
		return "unknown"
	}
}

// LocationSource selects where the token content lives. The zero value is
// NoLocation.
type LocationSource struct {
	kind      LocationType
	text      string
	container principal.Principal
}

func NoLocation() LocationSource {
	return LocationSource{kind: LocationNone}
}

// ContentAddress references content by its CID text.
func ContentAddress(cidText string) LocationSource {
	return LocationSource{kind: LocationContentAddress, text: strings.TrimSpace(cidText)}
}

// ContainerReference references content held by an asset canister.
func ContainerReference(container principal.Principal) LocationSource {
	return LocationSource{kind: LocationContainer, container: container}
}

func ExternalURI(uri string) LocationSource {
	return LocationSource{kind: LocationExternalURI, text: strings.TrimSpace(uri)}
}

func (s LocationSource) Type() LocationType {
	if s.kind == 0 {
		return LocationNone
	}
	return s.kind
}

// LocationOptions mirrors the separate optional inputs a caller may have.
// At most one field may be set.
type LocationOptions struct {
	ContentAddress     string
	ContainerReference string
	URI                string
}

// LocationFromOptions builds the single LocationSource selected by options.
func LocationFromOptions(options LocationOptions) (LocationSource, error) {
	contentAddress := strings.TrimSpace(options.ContentAddress)
	container := strings.TrimSpace(options.ContainerReference)
	uri := strings.TrimSpace(options.URI)

	selected := 0
	for _, value := range []string{contentAddress, container, uri} {
		if value != "" {
			selected++
		}
	}
	if selected > 1 {
		return LocationSource{}, validationError(
			ErrorCodeConflictingLocation,
			ErrConflictingLocation,
			"choose one of content address, container reference or URI",
		)
	}

	switch {
	case contentAddress != "":
		return ContentAddress(contentAddress), nil
	case container != "":
		parsed, err := principal.Decode(container)
		if err != nil {
			return LocationSource{}, validationError(
				ErrorCodeMalformedIdentifier,
				ErrMalformedIdentifier,
				"invalid container reference %q: %v", container, err,
			)
		}
		return ContainerReference(parsed), nil
	case uri != "":
		return ExternalURI(uri), nil
	default:
		return NoLocation(), nil
	}
}

// Location is a resolved (locationType, location) pair. Value is nil for
// LocationNone.
type Location struct {
	Type  LocationType
	Value *MetadataValue
}

// ResolveLocation parses the source into its canonical metadata form. It does
// not check that the content is reachable.
func ResolveLocation(source LocationSource) (Location, error) {
	switch source.Type() {
	case LocationContentAddress:
		parsed, err := cid.Decode(source.text)
		if err != nil {
			return Location{}, validationError(
				ErrorCodeMalformedIdentifier,
				ErrMalformedIdentifier,
				"invalid content address %q: %v", source.text, err,
			)
		}
		value := BlobValue(parsed.Bytes())
		return Location{Type: LocationContentAddress, Value: &value}, nil
	case LocationContainer:
		value := TextValue(source.container.String())
		return Location{Type: LocationContainer, Value: &value}, nil
	case LocationExternalURI:
		if err := validateURI(source.text); err != nil {
			return Location{}, err
		}
		value := TextValue(source.text)
		return Location{Type: LocationExternalURI, Value: &value}, nil
	default:
		return Location{Type: LocationNone}, nil
	}
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

func validateURI(raw string) error {
	invalid := func(reason string) error {
		return validationError(ErrorCodeInvalidURI, ErrInvalidURI, "invalid URI %q: %s", raw, reason)
	}
	if raw == "" {
		return invalid("URI is required")
	}
	if strings.IndexFunc(raw, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return invalid("contains whitespace or control characters")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid(err.Error())
	}
	if !schemePattern.MatchString(parsed.Scheme) {
		return invalid("scheme is required")
	}
	if parsed.Opaque == "" && parsed.Host == "" && parsed.Path == "" {
		return invalid("URI has no hierarchical part")
	}
	return nil
}

// ContentAddressFor derives the CIDv1 (raw codec, sha2-256) of data.
func ContentAddressFor(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
