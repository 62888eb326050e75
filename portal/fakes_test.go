package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/portal-login/browser"
	"github.com/yllada/portal-login/common"
	"github.com/yllada/portal-login/history"
)

const (
	testTarget     = "https://192.168.1.9/userlogin/"
	testProcessing = "https://192.168.1.9/userSense/status"
	testSuccess    = "https://www.simulanis.com/"
)

// fakeHandle scripts a page. Elements not listed in present are missing.
type fakeHandle struct {
	mu sync.Mutex

	navigateErr error
	present     map[string]bool
	clickErr    map[string]error
	urls        []string
	source      string

	clicks []string
	typed  map[string]string
	closes int
}

func newFakeHandle(urls ...string) *fakeHandle {
	return &fakeHandle{
		present: map[string]bool{
			common.ElementUsername: true,
			common.ElementPassword: true,
			common.ElementSubmit:   true,
		},
		clickErr: map[string]error{},
		urls:     urls,
		typed:    map[string]string{},
	}
}

func (h *fakeHandle) withInterstitial() *fakeHandle {
	h.present[common.ElementDetailsButton] = true
	h.present[common.ElementProceedLink] = true
	return h
}

func (h *fakeHandle) missing(id string) error {
	return fmt.Errorf("%w: #%s", browser.ErrElementNotFound, id)
}

func (h *fakeHandle) Navigate(ctx context.Context, url string) error {
	return h.navigateErr
}

func (h *fakeHandle) WaitPresent(ctx context.Context, id string, timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.present[id] {
		return h.missing(id)
	}
	return nil
}

func (h *fakeHandle) Click(ctx context.Context, id string, timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.clickErr[id]; err != nil {
		return err
	}
	if !h.present[id] {
		return h.missing(id)
	}
	h.clicks = append(h.clicks, id)
	return nil
}

func (h *fakeHandle) Clear(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.present[id] {
		return h.missing(id)
	}
	delete(h.typed, id)
	return nil
}

func (h *fakeHandle) SendKeys(ctx context.Context, id, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.present[id] {
		return h.missing(id)
	}
	h.typed[id] += text
	return nil
}

// CurrentURL returns the scripted URLs in order, repeating the last one.
func (h *fakeHandle) CurrentURL(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.urls) == 0 {
		return "", errors.New("no page loaded")
	}
	url := h.urls[0]
	if len(h.urls) > 1 {
		h.urls = h.urls[1:]
	}
	return url, nil
}

func (h *fakeHandle) PageSource(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source, nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

func (h *fakeHandle) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// fakeDriver hands out handles built by page, one per Open.
type fakeDriver struct {
	mu      sync.Mutex
	page    func() *fakeHandle
	openErr error
	opened  chan struct{}
	release chan struct{}
	handles []*fakeHandle
}

func driverFor(page func() *fakeHandle) *fakeDriver {
	return &fakeDriver{page: page}
}

func (d *fakeDriver) Open(ctx context.Context, opts browser.Options) (browser.Handle, error) {
	if d.opened != nil {
		d.opened <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	h := d.page()
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

func (d *fakeDriver) opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}

// fakeSecrets is an in-memory SecretStore counting writes.
type fakeSecrets struct {
	mu      sync.Mutex
	data    map[string]string
	sets    int
	deletes int
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{data: map[string]string{}}
}

func (s *fakeSecrets) Get(service, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[service+"/"+user]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func (s *fakeSecrets) Set(service, user, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.data[service+"/"+user] = secret
	return nil
}

func (s *fakeSecrets) Delete(service, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := service + "/" + user
	if _, ok := s.data[key]; !ok {
		return errors.New("secret not found")
	}
	s.deletes++
	delete(s.data, key)
	return nil
}

// memJournal collects entries.
type memJournal struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (j *memJournal) Record(ctx context.Context, e history.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]history.Entry(nil), j.entries...), nil
}

func (j *memJournal) Close() error { return nil }

// sleepRecorder replaces real sleeps.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}

func newTestSession(d browser.Driver) (*Session, *sleepRecorder) {
	rec := &sleepRecorder{}
	s := NewSession(d)
	s.sleep = rec.sleep
	return s, rec
}

var testCreds = Credentials{Username: "alice", Password: "s3cret"}
