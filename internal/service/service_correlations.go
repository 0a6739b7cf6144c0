package service

import (
	"context"
	"strings"

	"github.com/skywatch/drone-ops/internal/apierr"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/store"
	"github.com/skywatch/drone-ops/pkg/types"
)

// RefreshCorrelations unions the current WiFi and Bluetooth device
// snapshots, pairs them, and persists a wifi_bt_correlation for any pair
// where one side's MAC matches an already-known detection identifier. The
// other side becomes the operator-side identifier for that pairing. Returns
// the deduplicated correlation list at minConfidence afterward.
func (s *Service) RefreshCorrelations(ctx context.Context, minConfidence float64) ([]types.Correlation, error) {
	wifiDevices, err := s.devices.WiFiDevices(ctx)
	if err != nil {
		return nil, apierr.Internal("loading wifi device snapshot", err)
	}
	btDevices, err := s.devices.BTDevices(ctx)
	if err != nil {
		return nil, apierr.Internal("loading bluetooth device snapshot", err)
	}

	pairs := s.pairSource.Pairs(wifiDevices, btDevices, minConfidence, true)

	knownIdentifiers, err := s.knownDetectionIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	for _, pair := range pairs {
		wifiUpper := strings.ToUpper(pair.WiFiMAC)
		btUpper := strings.ToUpper(pair.BTMAC)

		var droneID, operatorID string
		switch {
		case knownIdentifiers[wifiUpper]:
			droneID, operatorID = wifiUpper, btUpper
		case knownIdentifiers[btUpper]:
			droneID, operatorID = btUpper, wifiUpper
		default:
			continue
		}

		correlation := &types.Correlation{
			DroneIdentifier:    droneID,
			OperatorIdentifier: operatorID,
			Method:             types.MethodWiFiBTCorrelation,
			Confidence:         pair.Confidence,
			Evidence: map[string]any{
				"wifi_mac": pair.WiFiMAC, "bt_mac": pair.BTMAC, "confidence": pair.Confidence,
			},
		}
		if err := s.store.AddDroneCorrelation(ctx, correlation); err != nil {
			s.logger.Warn("refresh_correlations: dropping pairing", "error", err, "wifi_mac", pair.WiFiMAC, "bt_mac", pair.BTMAC)
		}
	}

	refreshed, err := s.store.ListDroneCorrelations(ctx, minConfidence, config.DefaultPaginationLimit*4)
	if err != nil {
		return nil, apierr.Internal("listing correlations", err)
	}
	return refreshed, nil
}

// knownDetectionIdentifiers returns the set of upper-cased identifiers seen
// at or above config.KnownDetectionConfidenceFloor, the bar a candidate pair
// must clear on at least one side to be treated as drone-side evidence
// rather than two unrelated devices that happen to share a vendor prefix.
func (s *Service) knownDetectionIdentifiers(ctx context.Context) (map[string]bool, error) {
	detections, err := s.store.ListDroneDetections(ctx, store.DetectionListParams{
		MinConfidence: config.KnownDetectionConfidenceFloor,
		Limit:         config.StatusCountCap,
	})
	if err != nil {
		return nil, apierr.Internal("listing known detections", err)
	}

	known := make(map[string]bool, len(detections))
	for _, detection := range detections {
		known[strings.ToUpper(detection.Identifier)] = true
	}
	return known, nil
}

// ListCorrelations returns the deduplicated correlation list without
// triggering a refresh.
func (s *Service) ListCorrelations(ctx context.Context, minConfidence float64, limit int) ([]types.Correlation, error) {
	correlations, err := s.store.ListDroneCorrelations(ctx, minConfidence, limit)
	if err != nil {
		return nil, apierr.Internal("listing correlations", err)
	}
	return correlations, nil
}

// GetCorrelations serves GET /drone-ops/correlations. When refresh is
// false it answers from the short-TTL response cache if present, falling
// back to a plain list on a cache miss; when true it runs a full refresh
// pass and invalidates the cache so the next refresh=false read picks up
// the new rows.
func (s *Service) GetCorrelations(ctx context.Context, minConfidence float64, refresh bool) ([]types.Correlation, error) {
	if !refresh {
		var cached []types.Correlation
		found, err := s.devices.CachedCorrelations(ctx, minConfidence, &cached)
		if err != nil {
			s.logger.Warn("correlations cache read failed", "error", err)
		} else if found {
			return cached, nil
		}
		return s.ListCorrelations(ctx, minConfidence, config.DefaultPaginationLimit*4)
	}

	correlations, err := s.RefreshCorrelations(ctx, minConfidence)
	if err != nil {
		return nil, err
	}
	if err := s.devices.InvalidateCorrelations(ctx); err != nil {
		s.logger.Warn("correlations cache invalidate failed", "error", err)
	}
	if err := s.devices.StoreCorrelations(ctx, minConfidence, correlations, config.CorrelationsCacheTTL); err != nil {
		s.logger.Warn("correlations cache write failed", "error", err)
	}
	return correlations, nil
}
