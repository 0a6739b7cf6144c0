package cache

import (
	"context"
	"fmt"
	"time"
)

// Device snapshot namespaces. WiFi networks (access points) and WiFi clients
// are tracked separately because they're sighted through different signal
// paths, but refresh_correlations unions them before pairing against
// Bluetooth devices.
const (
	wifiNetworksKey = "devices:wifi_networks"
	wifiClientsKey  = "devices:wifi_clients"
	btDevicesKey    = "devices:bt_devices"
)

// DeviceCache is the Redis-backed WiFi/BT device-sighting snapshot consumed
// by correlation refresh. Sightings are written through the Record* methods,
// which the ingest path does not call; the correlation pass reads the
// current snapshot rather than replaying history.
type DeviceCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDeviceCache wraps a Cache with the device-sighting snapshot namespaces.
func NewDeviceCache(cache *Cache, snapshotTTL time.Duration) *DeviceCache {
	return &DeviceCache{cache: cache, ttl: snapshotTTL}
}

// RecordWiFiNetwork upserts a sighted access point's last-known attributes,
// keyed by MAC, into the wifi_networks snapshot.
func (d *DeviceCache) RecordWiFiNetwork(ctx context.Context, mac string, attrs map[string]any) error {
	return d.mergeDevice(ctx, wifiNetworksKey, mac, attrs)
}

// RecordWiFiClient upserts a sighted client station's attributes, keyed by
// MAC, into the wifi_clients snapshot.
func (d *DeviceCache) RecordWiFiClient(ctx context.Context, mac string, attrs map[string]any) error {
	return d.mergeDevice(ctx, wifiClientsKey, mac, attrs)
}

// RecordBTDevice upserts a sighted Bluetooth device's attributes, keyed by
// MAC, into the bt_devices snapshot.
func (d *DeviceCache) RecordBTDevice(ctx context.Context, mac string, attrs map[string]any) error {
	return d.mergeDevice(ctx, btDevicesKey, mac, attrs)
}

func (d *DeviceCache) mergeDevice(ctx context.Context, namespace, mac string, attrs map[string]any) error {
	snapshot, err := d.readNamespace(ctx, namespace)
	if err != nil {
		return err
	}
	snapshot[mac] = attrs
	return d.cache.SetJSON(ctx, namespace, snapshot, d.ttl)
}

func (d *DeviceCache) readNamespace(ctx context.Context, namespace string) (map[string]map[string]any, error) {
	snapshot := make(map[string]map[string]any)
	found, err := d.cache.GetJSON(ctx, namespace, &snapshot)
	if err != nil {
		return nil, err
	}
	if !found {
		return make(map[string]map[string]any), nil
	}
	return snapshot, nil
}

// WiFiDevices returns the union of wifi_networks and wifi_clients, keyed by
// MAC, as consumed by refresh_correlations. A MAC present in both namespaces
// always takes its attributes from wifi_clients, whichever was written last.
func (d *DeviceCache) WiFiDevices(ctx context.Context) (map[string]map[string]any, error) {
	networks, err := d.readNamespace(ctx, wifiNetworksKey)
	if err != nil {
		return nil, err
	}
	clients, err := d.readNamespace(ctx, wifiClientsKey)
	if err != nil {
		return nil, err
	}

	union := make(map[string]map[string]any, len(networks)+len(clients))
	for mac, attrs := range networks {
		union[mac] = attrs
	}
	for mac, attrs := range clients {
		union[mac] = attrs
	}
	return union, nil
}

// BTDevices returns the current bt_devices snapshot, keyed by MAC.
func (d *DeviceCache) BTDevices(ctx context.Context) (map[string]map[string]any, error) {
	return d.readNamespace(ctx, btDevicesKey)
}

// CachedCorrelations retrieves a previously cached GET /drone-ops/correlations
// response body for the given min_confidence bucket, if one hasn't expired.
func (d *DeviceCache) CachedCorrelations(ctx context.Context, minConfidence float64, out any) (bool, error) {
	return d.cache.GetJSON(ctx, correlationsCacheKey(minConfidence), out)
}

// StoreCorrelations caches a GET /drone-ops/correlations response body under
// the given min_confidence bucket for ttl.
func (d *DeviceCache) StoreCorrelations(ctx context.Context, minConfidence float64, v any, ttl time.Duration) error {
	return d.cache.SetJSON(ctx, correlationsCacheKey(minConfidence), v, ttl)
}

// InvalidateCorrelations drops all cached correlation responses, called
// after a refresh persists new correlation rows.
func (d *DeviceCache) InvalidateCorrelations(ctx context.Context) error {
	return d.cache.DeletePattern(ctx, "correlations:*")
}

// correlationsCacheKey buckets to two decimal places so 0.6 and 0.60 share
// a cache entry.
func correlationsCacheKey(minConfidence float64) string {
	return fmt.Sprintf("correlations:%04d", int(minConfidence*100+0.5))
}
