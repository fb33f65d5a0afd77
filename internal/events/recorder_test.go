package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pixelbridge/pixelbridge-backend/pkg/errors"
	"github.com/pixelbridge/pixelbridge-backend/pkg/kv"
)

// fakeStore mirrors the redis semantics the recorder relies on: the
// push+trim+increment block is atomic under the mutex, exactly like the
// client's MULTI/EXEC.
type fakeStore struct {
	mu     sync.Mutex
	lists  map[string][]string
	hashes map[string]map[string]string
	keys   map[string]bool
	fail   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists:  map[string][]string{},
		hashes: map[string]map[string]string{},
		keys:   map[string]bool{},
	}
}

func (s *fakeStore) PushEventAndCount(_ context.Context, eventsKey, statsKey string, payload []byte, cap int64, typeField string, at time.Time) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]string{string(payload)}, s.lists[eventsKey]...)
	if int64(len(list)) > cap {
		list = list[:cap]
	}
	s.lists[eventsKey] = list

	if s.hashes[statsKey] == nil {
		s.hashes[statsKey] = map[string]string{}
	}
	s.incr(statsKey, kv.StatsFieldTotal)
	s.incr(statsKey, typeField)
	s.hashes[statsKey][kv.StatsFieldLastEventAt] = at.UTC().Format(time.RFC3339Nano)
	return nil
}

func (s *fakeStore) incr(key, field string) {
	n, _ := strconv.ParseInt(s.hashes[key][field], 10, 64)
	s.hashes[key][field] = strconv.FormatInt(n+1, 10)
}

func (s *fakeStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	if start >= int64(len(list)) {
		return nil, nil
	}
	if stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	out := make([]string, 0, stop-start+1)
	out = append(out, list[start:stop+1]...)
	return out, nil
}

func (s *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	if s.fail != nil {
		return false, s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return true, nil
	}
	_, hasList := s.lists[key]
	_, hasHash := s.hashes[key]
	return hasList || hasHash, nil
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.lists, key)
		delete(s.hashes, key)
		delete(s.keys, key)
	}
	return nil
}

const testShop = "demo-shop.myshopify.com"

func newTestRecorder(t *testing.T, cap int64) (*Recorder, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	recorder, err := NewRecorder(RecorderParams{Store: store, ListCap: cap, DefaultLimit: 50, MaxLimit: 100})
	require.NoError(t, err)
	return recorder, store
}

func TestRecordAssignsIDTimestampStatus(t *testing.T) {
	recorder, _ := newTestRecorder(t, 100)

	value := decimal.RequireFromString("99.99")
	event, err := recorder.Record(context.Background(), testShop, RecordInput{
		EventType:     TypePurchase,
		Value:         &value,
		Currency:      "USD",
		TransactionID: "t1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.False(t, event.Timestamp.IsZero())
	require.Equal(t, StatusSuccess, event.Status)

	events, err := recorder.List(context.Background(), testShop, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "t1", events[0].TransactionID)
	require.True(t, events[0].Value.Equal(value))

	stats, err := recorder.Stats(context.Background(), testShop)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.TotalEvents)
	require.EqualValues(t, 1, stats.PurchaseEvents)
	require.NotNil(t, stats.LastEventAt)
}

func TestRecordRejectsUnknownType(t *testing.T) {
	recorder, store := newTestRecorder(t, 100)

	_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: "page_view"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Empty(t, store.lists)
	require.Empty(t, store.hashes)
}

func TestRecordRejectsUninstalledShop(t *testing.T) {
	recorder, store := newTestRecorder(t, 100)
	store.keys[kv.ShopTombstoneKey(testShop)] = true

	_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: TypePurchase})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	// the purged keys must not come back
	require.Empty(t, store.lists)
	require.Empty(t, store.hashes)
}

func TestCapEvictsOldestButStatsCountAll(t *testing.T) {
	const cap, n = 10, 25
	recorder, _ := newTestRecorder(t, cap)

	for i := 0; i < n; i++ {
		_, err := recorder.Record(context.Background(), testShop, RecordInput{
			EventType:     TypePurchase,
			TransactionID: fmt.Sprintf("t%d", i),
		})
		require.NoError(t, err)
	}

	events, err := recorder.List(context.Background(), testShop, 100)
	require.NoError(t, err)
	require.Len(t, events, cap)
	// most recent first; the oldest survivors are the last cap inserts
	require.Equal(t, fmt.Sprintf("t%d", n-1), events[0].TransactionID)
	require.Equal(t, fmt.Sprintf("t%d", n-cap), events[cap-1].TransactionID)

	stats, err := recorder.Stats(context.Background(), testShop)
	require.NoError(t, err)
	require.EqualValues(t, n, stats.TotalEvents)
	require.EqualValues(t, n, stats.PurchaseEvents)
}

func TestConcurrentRecordsLoseNoUpdates(t *testing.T) {
	const k = 64
	recorder, _ := newTestRecorder(t, 1000)

	var wg sync.WaitGroup
	errs := make(chan error, k)
	types := []EventType{TypePurchase, TypeAddToCart, TypeBeginCheckout}
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: types[i%len(types)]})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := recorder.Stats(context.Background(), testShop)
	require.NoError(t, err)
	require.EqualValues(t, k, stats.TotalEvents)
	require.EqualValues(t, stats.TotalEvents,
		stats.PurchaseEvents+stats.AddToCartEvents+stats.BeginCheckoutEvents)
}

func TestListEmptyShopReturnsEmptySlice(t *testing.T) {
	recorder, _ := newTestRecorder(t, 100)

	events, err := recorder.List(context.Background(), "never-seen.myshopify.com", 0)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestListClampsLimit(t *testing.T) {
	recorder, _ := newTestRecorder(t, 1000)
	for i := 0; i < 150; i++ {
		_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: TypePurchase})
		require.NoError(t, err)
	}

	events, err := recorder.List(context.Background(), testShop, 500)
	require.NoError(t, err)
	require.Len(t, events, 100)

	events, err = recorder.List(context.Background(), testShop, 0)
	require.NoError(t, err)
	require.Len(t, events, 50)
}

func TestListSkipsUndecodableEntries(t *testing.T) {
	recorder, store := newTestRecorder(t, 100)
	_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: TypePurchase})
	require.NoError(t, err)

	key := "shop:" + testShop + ":events"
	store.lists[key] = append([]string{"{not json"}, store.lists[key]...)

	events, err := recorder.List(context.Background(), testShop, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestStatsZeroInitialized(t *testing.T) {
	recorder, _ := newTestRecorder(t, 100)

	stats, err := recorder.Stats(context.Background(), testShop)
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.TotalEvents)
	require.Nil(t, stats.LastEventAt)
}

func TestStorageFailurePropagatesAsDependency(t *testing.T) {
	recorder, store := newTestRecorder(t, 100)
	store.fail = fmt.Errorf("connection refused")

	_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: TypePurchase})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	require.True(t, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable)
}

func TestPurgeDropsListAndStats(t *testing.T) {
	recorder, store := newTestRecorder(t, 100)
	_, err := recorder.Record(context.Background(), testShop, RecordInput{EventType: TypePurchase})
	require.NoError(t, err)

	require.NoError(t, recorder.Purge(context.Background(), testShop))
	require.Empty(t, store.lists)
	require.Empty(t, store.hashes)
}

func TestEventJSONShape(t *testing.T) {
	value := decimal.RequireFromString("12.50")
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	event := ConversionEvent{
		ID:        "evt_1_abc",
		Shop:      testShop,
		EventType: TypeAddToCart,
		Timestamp: at,
		Value:     &value,
		Currency:  "EUR",
		Status:    StatusSuccess,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"eventType":"add_to_cart"`)
	require.Contains(t, string(payload), `"value":"12.5"`)
}
