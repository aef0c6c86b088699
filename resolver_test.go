package schwab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeAccountSource serves canned account-number listings and counts
// transport calls.
type fakeAccountSource struct {
	mu       sync.Mutex
	calls    int
	payloads []string // successive raw responses; the last one repeats
	err      error
	delay    time.Duration
}

func (f *fakeAccountSource) accountNumbers(_ context.Context) (accountNumberListing, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	err := f.err
	var payload string
	if len(f.payloads) > 0 {
		if n >= len(f.payloads) {
			n = len(f.payloads) - 1
		}
		payload = f.payloads[n]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return accountNumberListing{}, err
	}

	var listing accountNumberListing
	if err := json.Unmarshal([]byte(payload), &listing); err != nil {
		return accountNumberListing{}, err
	}
	return listing, nil
}

func (f *fakeAccountSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const bareListing = `[{"accountNumber":"123456789","hashValue":"ABC123XYZ"}]`

func TestResolvePassThrough(t *testing.T) {
	ctx := context.Background()

	// A failing source proves pass-through never touches the transport.
	source := &fakeAccountSource{err: errors.New("transport must not be called")}
	r := newAccountResolver(source)

	for _, id := range []string{"ABC123XYZ", "abc", "A1", "ABC123", "Z9Z9Z9Z9"} {
		got, err := r.Resolve(ctx, id)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", id, err)
		}
		if got != id {
			t.Errorf("Resolve(%q) = %q, want pass-through", id, got)
		}
	}

	if n := source.callCount(); n != 0 {
		t.Errorf("transport called %d times for encrypted identifiers, want 0", n)
	}
	if r.Loaded() {
		t.Error("resolver reports loaded without any load")
	}
}

func TestResolvePlaintext(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{bareListing}}
	r := newAccountResolver(source)

	got, err := r.Resolve(ctx, "123456789")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ABC123XYZ" {
		t.Errorf("Resolve = %q, want %q", got, "ABC123XYZ")
	}
	if n := source.callCount(); n != 1 {
		t.Errorf("transport called %d times, want 1", n)
	}
	if !r.Loaded() {
		t.Error("resolver not loaded after successful resolve")
	}

	// Second resolve is served from cache.
	if _, err := r.Resolve(ctx, "123456789"); err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if n := source.callCount(); n != 1 {
		t.Errorf("transport called %d times after cached hit, want 1", n)
	}
}

func TestIsEncryptedAccountID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"ABC123XYZ", true},
		{"abc", true},
		{"A", true},
		{"ABC123", true}, // no minimum length, deliberately
		{"123456789", false},
		{"0", false},
		{"", false},
		{"ABC-123", false},
		{"ABC 123", false},
		{"ABC123é", false},
	}
	for _, tt := range tests {
		if got := isEncryptedAccountID(tt.id); got != tt.want {
			t.Errorf("isEncryptedAccountID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestResolveMissReloadsOnce(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{bareListing}}
	r := newAccountResolver(source)

	_, err := r.Resolve(ctx, "999888777")
	if err == nil {
		t.Fatal("Resolve of unknown account succeeded")
	}

	// Initial load plus exactly one reload on miss.
	if n := source.callCount(); n != 2 {
		t.Errorf("transport called %d times, want 2", n)
	}

	var notFound *AccountNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error is %T, want *AccountNotFoundError", err)
	}
	if notFound.AccountNumber != "999888777" {
		t.Errorf("error names %q, want the requested identifier", notFound.AccountNumber)
	}
	if len(notFound.Known) != 1 || notFound.Known[0] != "123456789" {
		t.Errorf("error lists known accounts %v, want [123456789]", notFound.Known)
	}
}

func TestResolveResponseShapes(t *testing.T) {
	ctx := context.Background()
	wrapped := `{"accounts":` + bareListing + `}`

	for name, payload := range map[string]string{
		"bare array": bareListing,
		"wrapped":    wrapped,
	} {
		source := &fakeAccountSource{payloads: []string{payload}}
		r := newAccountResolver(source)

		got, err := r.Resolve(ctx, "123456789")
		if err != nil {
			t.Fatalf("%s: Resolve: %v", name, err)
		}
		if got != "ABC123XYZ" {
			t.Errorf("%s: Resolve = %q, want %q", name, got, "ABC123XYZ")
		}
	}
}

func TestResolveSnakeCaseFields(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{
		`[{"account_number":"111222333","hash_value":"SNAKE1HASH"}]`,
	}}
	r := newAccountResolver(source)

	got, err := r.Resolve(ctx, "111222333")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "SNAKE1HASH" {
		t.Errorf("Resolve = %q, want %q", got, "SNAKE1HASH")
	}
}

func TestLoadSkipsIncompleteRecords(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{`[
		{"accountNumber":"123456789","hashValue":"ABC123XYZ"},
		{"accountNumber":"555555555"},
		{"hashValue":"ORPHAN1HASH"},
		{}
	]`}}
	r := newAccountResolver(source)

	mappings, err := r.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("got %d mappings, want 1 (incomplete records skipped): %v", len(mappings), mappings)
	}
	if mappings["123456789"] != "ABC123XYZ" {
		t.Errorf("mappings[123456789] = %q, want ABC123XYZ", mappings["123456789"])
	}
}

func TestMappingsDefensiveCopy(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{bareListing}}
	r := newAccountResolver(source)

	first, err := r.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings: %v", err)
	}
	first["123456789"] = "TAMPERED"
	first["extra"] = "ENTRY"

	second, err := r.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings: %v", err)
	}
	if second["123456789"] != "ABC123XYZ" {
		t.Errorf("internal state mutated through returned copy: %v", second)
	}
	if _, ok := second["extra"]; ok {
		t.Error("entry added to returned copy leaked into internal state")
	}

	got, err := r.Resolve(ctx, "123456789")
	if err != nil || got != "ABC123XYZ" {
		t.Errorf("Resolve after tampering = %q, %v; want ABC123XYZ", got, err)
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{
		bareListing,
		`[{"accountNumber":"111222333","hashValue":"NEW123HASH"}]`,
	}}
	r := newAccountResolver(source)

	if _, err := r.Resolve(ctx, "123456789"); err != nil {
		t.Fatalf("initial Resolve: %v", err)
	}

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mappings, err := r.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings: %v", err)
	}
	want := map[string]string{"111222333": "NEW123HASH"}
	if len(mappings) != 1 || mappings["111222333"] != "NEW123HASH" {
		t.Errorf("mappings after refresh = %v, want %v", mappings, want)
	}

	// The stale number misses, reloads once, and fails.
	_, err = r.Resolve(ctx, "123456789")
	var notFound *AccountNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("stale Resolve error is %T (%v), want *AccountNotFoundError", err, err)
	}
}

func TestConcurrentResolveSingleLoad(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{
		payloads: []string{bareListing},
		delay:    20 * time.Millisecond,
	}
	r := newAccountResolver(source)

	const goroutines = 10
	results := make([]string, goroutines)
	errs := make([]error, goroutines)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer done.Done()
			start.Wait()
			results[n], errs[n] = r.Resolve(ctx, "123456789")
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if results[i] != "ABC123XYZ" {
			t.Errorf("goroutine %d resolved %q, want ABC123XYZ", i, results[i])
		}
	}

	if n := source.callCount(); n != 1 {
		t.Errorf("transport called %d times under contention, want 1", n)
	}
}

func TestConcurrentPassThroughDoesNotBlockOnLoad(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{
		payloads: []string{bareListing},
		delay:    200 * time.Millisecond,
	}
	r := newAccountResolver(source)

	// Start a slow load.
	loadDone := make(chan struct{})
	go func() {
		defer close(loadDone)
		if _, err := r.Resolve(ctx, "123456789"); err != nil {
			t.Errorf("plaintext Resolve: %v", err)
		}
	}()

	// Pass-through must complete while the load is still in flight.
	passDone := make(chan struct{})
	go func() {
		defer close(passDone)
		if got, err := r.Resolve(ctx, "ABC123XYZ"); err != nil || got != "ABC123XYZ" {
			t.Errorf("pass-through Resolve = %q, %v", got, err)
		}
	}()

	select {
	case <-passDone:
	case <-loadDone:
		t.Error("load finished before pass-through; pass-through appears to block on the lock")
	case <-time.After(5 * time.Second):
		t.Fatal("pass-through did not complete")
	}
	<-loadDone
}

func TestLoadFailureLeavesResolverUnloaded(t *testing.T) {
	ctx := context.Background()
	transportErr := errors.New("connection refused")
	source := &fakeAccountSource{err: transportErr}
	r := newAccountResolver(source)

	if _, err := r.Resolve(ctx, "123456789"); !errors.Is(err, transportErr) {
		t.Fatalf("Resolve error = %v, want wrapped transport error", err)
	}
	if r.Loaded() {
		t.Error("resolver reports loaded after failed load")
	}

	// The next call tries to load again and succeeds.
	source.mu.Lock()
	source.err = nil
	source.payloads = []string{bareListing}
	source.calls = 0
	source.mu.Unlock()

	got, err := r.Resolve(ctx, "123456789")
	if err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
	if got != "ABC123XYZ" {
		t.Errorf("Resolve = %q, want ABC123XYZ", got)
	}
}

func TestRefreshFailurePreservesMappings(t *testing.T) {
	ctx := context.Background()
	source := &fakeAccountSource{payloads: []string{bareListing}}
	r := newAccountResolver(source)

	if _, err := r.Resolve(ctx, "123456789"); err != nil {
		t.Fatalf("initial Resolve: %v", err)
	}

	transportErr := errors.New("gateway timeout")
	source.mu.Lock()
	source.err = transportErr
	source.mu.Unlock()

	if err := r.Refresh(ctx); !errors.Is(err, transportErr) {
		t.Fatalf("Refresh error = %v, want transport error", err)
	}

	// A failed refresh forces a reload on the next call; old content is
	// not served as loaded.
	if r.Loaded() {
		t.Error("resolver reports loaded after failed refresh")
	}

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()

	got, err := r.Resolve(ctx, "123456789")
	if err != nil || got != "ABC123XYZ" {
		t.Errorf("Resolve after failed refresh = %q, %v; want ABC123XYZ", got, err)
	}
}

func TestResolveEmptyIdentifier(t *testing.T) {
	r := newAccountResolver(&fakeAccountSource{payloads: []string{bareListing}})
	if _, err := r.Resolve(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Resolve(\"\") error = %v, want ErrInvalidRequest", err)
	}
}
