package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/policyvoice/corroborate/internal/model"
)

// DefaultDatasetTTL is how long a live dataset is reused
const DefaultDatasetTTL = 15 * time.Minute

// Datasets memoizes live source datasets by adapter and geography.
// Degraded datasets are never stored so a recovered upstream is retried.
type Datasets struct {
	store Cache
	ttl   time.Duration
}

// NewDatasets wraps a byte cache. A non-positive ttl uses DefaultDatasetTTL.
func NewDatasets(store Cache, ttl time.Duration) *Datasets {
	if ttl <= 0 {
		ttl = DefaultDatasetTTL
	}
	return &Datasets{store: store, ttl: ttl}
}

// DatasetKey returns the cache key for an adapter's dataset
func DatasetKey(adapter string, g model.Geography) string {
	return Key("dataset", adapter, g.Key())
}

// Get returns a cached dataset. Undecodable entries are dropped and miss.
func (d *Datasets) Get(adapter string, g model.Geography) (model.SourceDataset, bool) {
	key := DatasetKey(adapter, g)
	raw, ok := d.store.Get(key)
	if !ok {
		return model.SourceDataset{}, false
	}

	var ds model.SourceDataset
	if err := json.Unmarshal(raw, &ds); err != nil || ds.Payload == nil || ds.Adapter != adapter {
		_ = d.store.Delete(key)
		return model.SourceDataset{}, false
	}
	return ds, true
}

// Put stores a dataset unless it is degraded or has no payload.
// It reports whether the dataset was stored.
func (d *Datasets) Put(ds model.SourceDataset) (bool, error) {
	if ds.Degraded || ds.Payload == nil {
		return false, nil
	}
	raw, err := json.Marshal(ds)
	if err != nil {
		return false, fmt.Errorf("encode %s dataset: %w", ds.Adapter, err)
	}
	if err := d.store.Set(DatasetKey(ds.Adapter, ds.Geography), raw, d.ttl); err != nil {
		return false, fmt.Errorf("store %s dataset: %w", ds.Adapter, err)
	}
	return true, nil
}
