// Package source defines the narrow interfaces the pipeline depends on for
// external data, plus adapters from the concrete API clients. The core never
// sees a provider's wire format, only these normalized shapes.
package source

import (
	"context"
	"encoding/json"

	"github.com/sells-group/verify-cli/internal/model"
)

// MetadataResponse is one provider's view of a number, pre-normalization.
type MetadataResponse struct {
	Source      string
	Valid       bool
	CountryCode string
	CountryName string
	Carrier     string
	LineType    string
	Formatted   string
	Raw         json.RawMessage
}

// Metadata is a phone metadata provider. Implementations must be safe for
// concurrent use.
type Metadata interface {
	Name() string
	Lookup(ctx context.Context, number string, creds model.Credentials) (*MetadataResponse, error)
}

// PresenceResponse is a messaging platform's view of a number.
type PresenceResponse struct {
	Registered   bool
	Verified     bool
	BusinessHint bool
	ProfileName  string
	LastSeenHint string
}

// Presence is a messaging-presence provider.
type Presence interface {
	Name() string
	Lookup(ctx context.Context, number string, creds model.Credentials) (*PresenceResponse, error)
}

// CarrierStatusResponse reports carrier-level reachability.
type CarrierStatusResponse struct {
	Reachable bool
	Active    bool
	Ported    bool
}

// CarrierStatus is a carrier reachability provider.
type CarrierStatus interface {
	Name() string
	Status(ctx context.Context, number string, creds model.Credentials) (*CarrierStatusResponse, error)
}
