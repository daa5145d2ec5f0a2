package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/services"
	"github.com/desertthunder/qlink/internal/shared"
)

func respond(status int, body string) *services.APIResponse {
	return services.Classify(status, http.Header{}, []byte(body))
}

func track(id string, artists ...string) models.Track {
	return models.Track{ID: id, Name: "Song " + id, Artists: artists, URI: "spotify:track:" + id}
}

// fakePlayer answers each endpoint from a script, repeating the last entry.
type fakePlayer struct {
	playing    []*services.APIResponse
	playingErr error
	devices    []*services.APIResponse
	devicesErr error
	queue      *services.APIResponse
	queueErr   error

	playingCalls int
	deviceCalls  int
	queued       []string
}

func next(script []*services.APIResponse, i int) *services.APIResponse {
	if len(script) == 0 {
		return respond(http.StatusNoContent, "")
	}
	return script[min(i, len(script)-1)]
}

func (f *fakePlayer) Name() string { return "fake" }

func (f *fakePlayer) CurrentlyPlaying(ctx context.Context, cred models.Credential) (*services.APIResponse, error) {
	defer func() { f.playingCalls++ }()
	if f.playingErr != nil {
		return nil, f.playingErr
	}
	return next(f.playing, f.playingCalls), nil
}

func (f *fakePlayer) Devices(ctx context.Context, cred models.Credential) (*services.APIResponse, error) {
	defer func() { f.deviceCalls++ }()
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return next(f.devices, f.deviceCalls), nil
}

func (f *fakePlayer) AddToQueue(ctx context.Context, cred models.Credential, deviceID, uri string) (*services.APIResponse, error) {
	f.queued = append(f.queued, deviceID+" "+uri)
	if f.queueErr != nil {
		return nil, f.queueErr
	}
	if f.queue == nil {
		return respond(http.StatusNoContent, ""), nil
	}
	return f.queue, nil
}

type fakeSupplier struct {
	calls int
	err   error
}

func (f *fakeSupplier) Obtain(ctx context.Context) (models.Credential, error) {
	f.calls++
	if f.err != nil {
		return models.Credential{}, f.err
	}
	return models.Credential{AccessToken: fmt.Sprintf("token-%d", f.calls)}, nil
}

type fakeStore struct {
	mu             sync.Mutex
	links          []*models.Link
	triggerLookups int
	targetLookups  int
	err            error
}

func (f *fakeStore) FindByTriggerID(id string) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggerLookups++
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.links {
		if l.Trigger().ID == id {
			return l, nil
		}
	}
	return nil, shared.ErrLinkNotFound
}

func (f *fakeStore) FindByTargetID(id string) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targetLookups++
	for _, l := range f.links {
		if l.Target().ID == id {
			return l, nil
		}
	}
	return nil, shared.ErrLinkNotFound
}

func (f *fakeStore) Insert(link *models.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, link)
	return nil
}

func (f *fakeStore) All() ([]*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Link(nil), f.links...), nil
}

// scriptedObserver returns its script in order, then cancels the run and reports nothing playing.
type scriptedObserver struct {
	script []models.Observation
	cancel context.CancelFunc
	creds  []models.Credential
}

func (s *scriptedObserver) Observe(ctx context.Context, cred models.Credential) models.Observation {
	s.creds = append(s.creds, cred)
	if len(s.creds) > len(s.script) {
		s.cancel()
		return models.ErrorObservation(models.NoActiveSession, "")
	}
	return s.script[len(s.creds)-1]
}

func (s *scriptedObserver) calls() int { return len(s.creds) }

// scriptedResolver returns its script in order, repeating the last entry.
type scriptedResolver struct {
	script []models.DeviceQueryResult
	creds  []models.Credential
}

func (s *scriptedResolver) ActiveDevice(ctx context.Context, cred models.Credential) models.DeviceQueryResult {
	s.creds = append(s.creds, cred)
	if len(s.script) == 0 {
		return models.ActiveDeviceResult("D1")
	}
	return s.script[min(len(s.creds)-1, len(s.script)-1)]
}

type enqueueCall struct {
	cred     models.Credential
	deviceID string
	track    models.Track
}

type fakeInjector struct {
	calls []enqueueCall
	err   error
}

func (f *fakeInjector) Enqueue(ctx context.Context, cred models.Credential, deviceID string, t models.Track) error {
	f.calls = append(f.calls, enqueueCall{cred: cred, deviceID: deviceID, track: t})
	if f.err != nil {
		return f.err
	}
	return nil
}

var errBoom = errors.New("boom")
