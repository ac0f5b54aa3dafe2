package cache

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/policyvoice/corroborate/internal/model"
)

func TestKey(t *testing.T) {
	if Key("a", "bc") == Key("ab", "c") {
		t.Error("Key should separate parts")
	}
	if Key("dataset", "housing", "TX") != Key("dataset", "housing", "TX") {
		t.Error("Key should be deterministic")
	}
	if DatasetKey("housing", model.Geography{State: "TX"}) == DatasetKey("housing", model.Geography{State: "TX", ZIP: "78701"}) {
		t.Error("ZIP should change the dataset key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("hello")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value[0] = 'j'

	got, ok := c.Get("k")
	if !ok || string(got) != "hello" {
		t.Errorf("Get = %q, %v; want stored copy", got, ok)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := Key("disk")
	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := c.Get(key); !ok || string(got) != "payload" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to miss")
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of removed entry: %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := c.slow.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("disk Set: %v", err)
	}
	if _, ok := c.fast.Get("k"); ok {
		t.Fatal("memory layer should start empty")
	}
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.fast.Get("k"); !ok {
		t.Error("disk hit should be promoted to memory")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after Clear")
	}
}

func TestDatasets(t *testing.T) {
	store := NewMemoryCache(time.Minute, time.Minute)
	d := NewDatasets(store, 0)
	g := model.Geography{State: "TX"}

	live := model.SourceDataset{
		Adapter:    model.AdapterHousing,
		Geography:  g,
		Vintage:    "FY2025",
		Provenance: "HUD Fair Market Rents",
		FetchedAt:  time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Payload:    &model.HousingData{Year: 2025, FairMarketRent2BR: 1300, MedianGrossRent: 1250, RentBurdenRatio: 42.2},
	}

	stored, err := d.Put(live)
	if err != nil || !stored {
		t.Fatalf("Put(live) = %v, %v", stored, err)
	}

	got, ok := d.Get(model.AdapterHousing, g)
	if !ok {
		t.Fatal("expected cached dataset")
	}
	if diff := cmp.Diff(live, got); diff != "" {
		t.Errorf("cached dataset mismatch (-want +got):\n%s", diff)
	}

	if _, ok := d.Get(model.AdapterEnergy, g); ok {
		t.Error("other adapters should miss")
	}

	degraded := live
	degraded.Geography = model.Geography{State: "OH"}
	degraded.Degraded = true
	if stored, err := d.Put(degraded); err != nil || stored {
		t.Errorf("Put(degraded) = %v, %v; want not stored", stored, err)
	}
	if _, ok := d.Get(model.AdapterHousing, degraded.Geography); ok {
		t.Error("degraded dataset must not be cached")
	}
}

func TestDatasets_DropsCorruptEntries(t *testing.T) {
	store := NewMemoryCache(time.Minute, time.Minute)
	d := NewDatasets(store, time.Minute)
	g := model.Geography{State: "TX"}

	_ = store.Set(DatasetKey(model.AdapterHousing, g), []byte("{not json"), 0)
	if _, ok := d.Get(model.AdapterHousing, g); ok {
		t.Fatal("corrupt entry should miss")
	}
	if store.Len() != 0 {
		t.Errorf("corrupt entry should be deleted, have %d entries", store.Len())
	}
}
