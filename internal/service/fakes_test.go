package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func pngBase64(t *testing.T) string {
	return base64.StdEncoding.EncodeToString(pngBytes(t, 100, 50))
}

type fakeDetector struct {
	result *ai.Result
	err    error
	calls  int
}

func (d *fakeDetector) Detect(context.Context, []byte) (*ai.Result, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func (d *fakeDetector) Name() string { return "fake" }
func (d *fakeDetector) Close() error { return nil }

type annotatingDetector struct {
	fakeDetector
	got []ai.Object
}

func (d *annotatingDetector) Annotate(_ context.Context, img []byte, objects []ai.Object) ([]byte, error) {
	d.got = objects
	return []byte("jpeg"), nil
}

type fakeLogs struct {
	mu        sync.Mutex
	entries   map[int64]*model.DetectionLog
	nextID    int64
	insertErr error
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{entries: map[int64]*model.DetectionLog{}}
}

func (f *fakeLogs) Insert(_ context.Context, l *model.DetectionLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	cp := *l
	cp.ID = f.nextID
	cp.CreatedAt = time.Date(2026, 1, 1, 0, 0, int(f.nextID), 0, time.UTC)
	f.entries[cp.ID] = &cp
	return cp.ID, nil
}

func owned(l *model.DetectionLog, userID int64) bool {
	return l.UserID != nil && *l.UserID == userID
}

func (f *fakeLogs) GetByID(_ context.Context, userID, id int64) (*model.DetectionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.entries[id]
	if !ok || !owned(l, userID) {
		return nil, common.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLogs) byUser(userID int64) []model.DetectionLog {
	var out []model.DetectionLog
	for _, l := range f.entries {
		if owned(l, userID) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeLogs) ListByUser(_ context.Context, userID int64, limit, offset int) ([]model.DetectionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.byUser(userID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeLogs) CountByUser(_ context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byUser(userID)), nil
}

func (f *fakeLogs) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeLogs) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.entries[id]
	if !ok || !owned(l, userID) {
		return common.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeLogs) DeleteAllByUser(_ context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for id, l := range f.entries {
		if owned(l, userID) {
			if l.ImageKey != "" {
				keys = append(keys, l.ImageKey)
			}
			delete(f.entries, id)
		}
	}
	return keys, nil
}

type fakeArchive struct {
	objects map[string][]byte
	putErr  error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}}
}

func (a *fakeArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	if a.putErr != nil {
		return a.putErr
	}
	a.objects[key] = data
	return nil
}

func (a *fakeArchive) Get(_ context.Context, key string) ([]byte, string, error) {
	data, ok := a.objects[key]
	if !ok {
		return nil, "", common.ErrNotFound
	}
	return data, "image/png", nil
}

func (a *fakeArchive) Delete(_ context.Context, key string) error {
	delete(a.objects, key)
	return nil
}

func (a *fakeArchive) Name() string { return "fake" }

type presigningArchive struct {
	*fakeArchive
}

func (a presigningArchive) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://bucket.example/" + key, nil
}

type fakePublisher struct {
	events []dto.DetectionEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e dto.DetectionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Name() string { return "fake" }

type fakeUsers struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return common.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}
