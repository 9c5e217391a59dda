package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

// fakeCaptureSession feeds scripted fragments through the real channel
// contract: the channel closes only once Stop is called.
type fakeCaptureSession struct {
	fragments chan []byte
	stopErr   error

	mu      sync.Mutex
	stopped bool
}

func newFakeCaptureSession() *fakeCaptureSession {
	return &fakeCaptureSession{fragments: make(chan []byte, 64)}
}

func (f *fakeCaptureSession) Fragments() <-chan []byte { return f.fragments }

func (f *fakeCaptureSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.fragments)
	}
	return f.stopErr
}

func (f *fakeCaptureSession) emit(data []byte) { f.fragments <- data }

type fakeCaptureDevice struct {
	err     error
	session *fakeCaptureSession
	starts  int
}

func (f *fakeCaptureDevice) Start(ctx context.Context, cfg repositories.AudioConfig) (repositories.CaptureSession, error) {
	f.starts++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeHandle struct {
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	paused  int
	resumed int
	closed  bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (f *fakeHandle) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return nil
}

func (f *fakeHandle) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

func (f *fakeHandle) Done() <-chan struct{} { return f.done }

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeHandle) finish() { f.once.Do(func() { close(f.done) }) }

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeOutput struct {
	err error

	mu      sync.Mutex
	handles []*fakeHandle
}

func (f *fakeOutput) Play(ctx context.Context, resource *entities.PlayableResource) (repositories.PlaybackHandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	handle := newFakeHandle()
	f.mu.Lock()
	f.handles = append(f.handles, handle)
	f.mu.Unlock()
	return handle, nil
}

func (f *fakeOutput) handle(i int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[i]
}

func (f *fakeOutput) plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

var errNotImplemented = errors.New("not implemented")

// fakeBackend lets each test script only the endpoints it touches.
type fakeBackend struct {
	loginFn        func(ctx context.Context, creds entities.Credentials) (string, error)
	signupFn       func(ctx context.Context, profile entities.SignupProfile) (string, error)
	meFn           func(ctx context.Context) (*entities.User, error)
	updateFn       func(ctx context.Context, user entities.User) (*entities.User, error)
	queriesFn      func(ctx context.Context) ([]entities.QueryRecord, error)
	processAudioFn func(ctx context.Context, wavData []byte, language string) (*entities.QueryResponse, error)
	processTextFn  func(ctx context.Context, text string, language string) (*entities.QueryResponse, error)
	weatherFn      func(ctx context.Context, city string, language string) (*entities.QueryResponse, error)
	cropFn         func(ctx context.Context, crop string, market string, language string) (*entities.QueryResponse, error)
	schemesFn      func(ctx context.Context, topic string, language string) (*entities.QueryResponse, error)
}

var _ repositories.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Login(ctx context.Context, creds entities.Credentials) (string, error) {
	if f.loginFn == nil {
		return "", errNotImplemented
	}
	return f.loginFn(ctx, creds)
}

func (f *fakeBackend) Signup(ctx context.Context, profile entities.SignupProfile) (string, error) {
	if f.signupFn == nil {
		return "", errNotImplemented
	}
	return f.signupFn(ctx, profile)
}

func (f *fakeBackend) Me(ctx context.Context) (*entities.User, error) {
	if f.meFn == nil {
		return nil, errNotImplemented
	}
	return f.meFn(ctx)
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, user entities.User) (*entities.User, error) {
	if f.updateFn == nil {
		return nil, errNotImplemented
	}
	return f.updateFn(ctx, user)
}

func (f *fakeBackend) UserQueries(ctx context.Context) ([]entities.QueryRecord, error) {
	if f.queriesFn == nil {
		return nil, errNotImplemented
	}
	return f.queriesFn(ctx)
}

func (f *fakeBackend) ProcessAudio(ctx context.Context, wavData []byte, language string) (*entities.QueryResponse, error) {
	if f.processAudioFn == nil {
		return nil, errNotImplemented
	}
	return f.processAudioFn(ctx, wavData, language)
}

func (f *fakeBackend) ProcessText(ctx context.Context, text string, language string) (*entities.QueryResponse, error) {
	if f.processTextFn == nil {
		return nil, errNotImplemented
	}
	return f.processTextFn(ctx, text, language)
}

func (f *fakeBackend) Weather(ctx context.Context, city string, language string) (*entities.QueryResponse, error) {
	if f.weatherFn == nil {
		return nil, errNotImplemented
	}
	return f.weatherFn(ctx, city, language)
}

func (f *fakeBackend) CropPrices(ctx context.Context, crop string, market string, language string) (*entities.QueryResponse, error) {
	if f.cropFn == nil {
		return nil, errNotImplemented
	}
	return f.cropFn(ctx, crop, market, language)
}

func (f *fakeBackend) GovSchemes(ctx context.Context, topic string, language string) (*entities.QueryResponse, error) {
	if f.schemesFn == nil {
		return nil, errNotImplemented
	}
	return f.schemesFn(ctx, topic, language)
}

func (f *fakeBackend) Location(ctx context.Context) (string, error) {
	return "", errNotImplemented
}

func (f *fakeBackend) ReverseGeocode(ctx context.Context, latitude float64, longitude float64) (string, error) {
	return "", errNotImplemented
}

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	mu     sync.Mutex
	token  string
	saves  int
	clears int

	loadErr error
	saveErr error
}

var _ repositories.TokenStore = (*fakeTokenStore)(nil)

func (f *fakeTokenStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return "", f.loadErr
	}
	return f.token, nil
}

func (f *fakeTokenStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = token
	f.saves++
	return nil
}

func (f *fakeTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.clears++
	return nil
}

func (f *fakeTokenStore) stored() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}
