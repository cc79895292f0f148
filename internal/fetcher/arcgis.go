package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

// featureServiceResponse is the ArcGIS feature-service query envelope. Only
// the attribute maps are consumed; geometry is ignored.
type featureServiceResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	Error *featureServiceError `json:"error"`
}

// featureServiceError is the in-band error the feature service returns with
// an HTTP 200 status.
type featureServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// DecodeFeatureService decodes an ArcGIS feature-service query response into
// raw permit records. The service reports failures in-band with HTTP 200, so
// the error member is checked before the feature array.
func DecodeFeatureService(r io.Reader) ([]model.RawPermit, error) {
	var resp featureServiceResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode feature service response")
	}

	if resp.Error != nil {
		return nil, eris.Errorf("fetcher: feature service error %d: %s",
			resp.Error.Code, resp.Error.Message)
	}

	raw := make([]model.RawPermit, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Attributes) == 0 {
			continue
		}
		raw = append(raw, model.RawPermit(f.Attributes))
	}

	zap.L().Info("fetcher: decoded feature service response",
		zap.Int("features", len(resp.Features)),
		zap.Int("records", len(raw)),
	)

	return raw, nil
}
