package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/pkg/numcheck"
	"github.com/sells-group/verify-cli/pkg/twilio"
	"github.com/sells-group/verify-cli/pkg/wachat"
)

// SourceNumcheck and SourceTwilio are the metadata source identifiers used
// in plans and provenance.
const (
	SourceNumcheck = "numcheck"
	SourceTwilio   = "twilio"
	SourceWachat   = "wachat"
)

// codeForStatus maps an HTTP status to the shared error taxonomy.
func codeForStatus(status int) resilience.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return resilience.CodeAuthError
	case status == http.StatusTooManyRequests:
		return resilience.CodeRateLimit
	case status == http.StatusNotFound:
		return resilience.CodeNoData
	case resilience.TransientHTTPStatus(status):
		return resilience.CodeNetworkError
	default:
		return resilience.CodeNonRecoverable
	}
}

// NumcheckMetadata adapts the numcheck client to the Metadata interface.
type NumcheckMetadata struct {
	Client numcheck.Client
}

func (a *NumcheckMetadata) Name() string { return SourceNumcheck }

func (a *NumcheckMetadata) Lookup(ctx context.Context, number string, creds model.Credentials) (*MetadataResponse, error) {
	resp, err := a.Client.Lookup(ctx, number, creds.Key)
	if err != nil {
		var apiErr *numcheck.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.WithCode(codeForStatus(apiErr.StatusCode), err)
		}
		return nil, err
	}

	raw, _ := json.Marshal(resp)
	return &MetadataResponse{
		Source:      SourceNumcheck,
		Valid:       resp.Valid,
		CountryCode: resp.CountryCode,
		CountryName: resp.CountryName,
		Carrier:     resp.Carrier,
		LineType:    resp.LineType,
		Formatted:   resp.InternationalFormat,
		Raw:         raw,
	}, nil
}

// TwilioMetadata adapts Twilio Lookup v2 to the Metadata interface.
type TwilioMetadata struct {
	Client twilio.Client
}

func (a *TwilioMetadata) Name() string { return SourceTwilio }

func (a *TwilioMetadata) Lookup(ctx context.Context, number string, creds model.Credentials) (*MetadataResponse, error) {
	resp, err := a.Client.Lookup(ctx, number, creds.Key, creds.Secret)
	if err != nil {
		var apiErr *twilio.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.WithCode(codeForStatus(apiErr.StatusCode), err)
		}
		return nil, err
	}

	raw, _ := json.Marshal(resp)
	return &MetadataResponse{
		Source:      SourceTwilio,
		Valid:       resp.Valid,
		CountryCode: resp.CountryCode,
		Carrier:     resp.LineTypeIntelligence.CarrierName,
		LineType:    resp.LineTypeIntelligence.Type,
		Formatted:   resp.PhoneNumber,
		Raw:         raw,
	}, nil
}

// TwilioCarrierStatus adapts the Twilio status endpoint to CarrierStatus.
type TwilioCarrierStatus struct {
	Client twilio.Client
}

func (a *TwilioCarrierStatus) Name() string { return SourceTwilio }

func (a *TwilioCarrierStatus) Status(ctx context.Context, number string, creds model.Credentials) (*CarrierStatusResponse, error) {
	resp, err := a.Client.Status(ctx, number, creds.Key, creds.Secret)
	if err != nil {
		var apiErr *twilio.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.WithCode(codeForStatus(apiErr.StatusCode), err)
		}
		return nil, err
	}
	return &CarrierStatusResponse{
		Reachable: resp.Reachable,
		Active:    resp.Active,
		Ported:    resp.Ported,
	}, nil
}

// WachatPresence adapts the wachat client to the Presence interface.
type WachatPresence struct {
	Client wachat.Client
}

func (a *WachatPresence) Name() string { return SourceWachat }

func (a *WachatPresence) Lookup(ctx context.Context, number string, creds model.Credentials) (*PresenceResponse, error) {
	resp, err := a.Client.Lookup(ctx, number, creds.Key)
	if err != nil {
		var apiErr *wachat.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.WithCode(codeForStatus(apiErr.StatusCode), err)
		}
		return nil, err
	}
	return &PresenceResponse{
		Registered:   resp.Registered,
		Verified:     resp.Verified,
		BusinessHint: resp.BusinessHint,
		ProfileName:  resp.ProfileName,
		LastSeenHint: resp.LastSeenHint,
	}, nil
}
