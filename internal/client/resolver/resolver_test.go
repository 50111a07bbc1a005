package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/objecturl"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/cryptox"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/stretchr/testify/require"
)

/*************
 * Fakes
 *************/

type fakeAPI struct {
	mu        sync.Mutex
	viewCalls int
	dlCalls   int

	viewErr  error
	payloads map[string][]byte
	dlErr    error
}

func (f *fakeAPI) GetViewURL(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewCalls++
	if f.viewErr != nil {
		return "", f.viewErr
	}
	return "https://cdn.example/" + id, nil
}

func (f *fakeAPI) DownloadEncrypted(ctx context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dlCalls++
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	p, ok := f.payloads[id]
	if !ok {
		return nil, &client.HTTPError{StatusCode: 404}
	}
	return p, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewCalls + f.dlCalls
}

type fakeSession struct {
	token string
	key   []byte
}

func (s *fakeSession) AccessToken() string { return s.token }

func (s *fakeSession) MasterKey() ([]byte, bool) {
	if s.key == nil {
		return nil, false
	}
	return append([]byte(nil), s.key...), true
}

func testKey() []byte {
	return cryptox.DeriveMasterKey([]byte("passphrase"), []byte("0123456789abcdef"))
}

func newTestResolver(api API) *Resolver {
	return New(api, objecturl.NewRegistry(), logging.Nop())
}

/*************
 * Tests
 *************/

func TestResolve_PlaintextReturnsURL(t *testing.T) {
	api := &fakeAPI{}
	r := newTestResolver(api)

	res, err := r.Resolve(context.Background(), models.MediaItem{ID: "a", Filename: "a.jpg"}, &fakeSession{token: "t"})
	require.NoError(t, err)
	require.Equal(t, models.ResourceKindURL, res.Kind)
	require.Equal(t, "https://cdn.example/a", res.Value)
	require.Equal(t, "image/jpeg", res.MimeType)
	require.Equal(t, 1, api.viewCalls)
}

func TestResolve_EmptyIDIsValidationError(t *testing.T) {
	api := &fakeAPI{}
	_, err := newTestResolver(api).Resolve(context.Background(), models.MediaItem{}, &fakeSession{})
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, api.calls())
}

func TestResolve_EncryptedWithoutKeyMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	r := newTestResolver(api)

	for _, sess := range []SessionContext{nil, &fakeSession{token: "t"}} {
		_, err := r.Resolve(context.Background(), models.MediaItem{ID: "b", Filename: "b.png", IsEncrypted: true}, sess)
		require.ErrorIs(t, err, common.ErrKeyRequired)
	}
	require.Zero(t, api.calls())
}

func TestResolve_EncryptedAfterUnlockReturnsBlob(t *testing.T) {
	key := testKey()
	payload, err := cryptox.EncryptBlob(key, []byte("png-bytes"))
	require.NoError(t, err)

	api := &fakeAPI{payloads: map[string][]byte{"b": payload}}
	r := newTestResolver(api)
	item := models.MediaItem{ID: "b", Filename: "b.png", IsEncrypted: true}
	sess := &fakeSession{token: "t"}

	_, err = r.Resolve(context.Background(), item, sess)
	require.ErrorIs(t, err, common.ErrKeyRequired)

	sess.key = key
	res, err := r.Resolve(context.Background(), item, sess)
	require.NoError(t, err)
	require.Equal(t, models.ResourceKindBlob, res.Kind)
	require.Equal(t, "image/png", res.MimeType)
	require.True(t, objecturl.IsObjectURL(res.Value))

	obj, err := r.Registry().Lookup(res.Value)
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), obj.Data)

	r.Release(res)
	r.Release(res)
	require.Zero(t, r.Registry().Len())
	require.Equal(t, key, sess.key, "session key is not wiped by the resolver")
}

func TestResolve_UnknownExtensionIsOctetStream(t *testing.T) {
	key := testKey()
	payload, err := cryptox.EncryptBlob(key, []byte("x"))
	require.NoError(t, err)

	r := newTestResolver(&fakeAPI{payloads: map[string][]byte{"z": payload}})
	res, err := r.Resolve(context.Background(), models.MediaItem{ID: "z", Filename: "z.xyz", IsEncrypted: true}, &fakeSession{key: key})
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", res.MimeType)
}

func TestResolve_WrongKeyFailsWithoutHandle(t *testing.T) {
	payload, err := cryptox.EncryptBlob(testKey(), []byte("x"))
	require.NoError(t, err)

	r := newTestResolver(&fakeAPI{payloads: map[string][]byte{"b": payload}})
	wrong := cryptox.DeriveMasterKey([]byte("other"), []byte("0123456789abcdef"))

	_, err = r.Resolve(context.Background(), models.MediaItem{ID: "b", Filename: "b.png", IsEncrypted: true}, &fakeSession{key: wrong})
	require.Error(t, err)
	require.Equal(t, StateError, StateFor(err))
	require.Zero(t, r.Registry().Len())
}

func TestStateFor(t *testing.T) {
	require.Equal(t, StateResolved, StateFor(nil))
	require.Equal(t, StateNotFound, StateFor(&client.HTTPError{StatusCode: 404}))
	require.Equal(t, StateUnavailable, StateFor(&client.HTTPError{StatusCode: 500, Code: client.CodeStorageNotConfigured}))
	require.Equal(t, StateUnavailable, StateFor(&client.HTTPError{StatusCode: 503}))
	require.Equal(t, StateError, StateFor(client.ErrNetwork))
	require.Equal(t, StateError, StateFor(errors.New("boom")))

	require.True(t, StateError.Terminal())
	require.False(t, StatePending.Terminal())
}

func TestResolve_ErrorStatesThroughAPI(t *testing.T) {
	r := newTestResolver(&fakeAPI{viewErr: &client.HTTPError{StatusCode: 503}})
	_, err := r.Resolve(context.Background(), models.MediaItem{ID: "a", Filename: "a.jpg"}, &fakeSession{})
	require.ErrorIs(t, err, client.ErrUnavailable)
	require.Equal(t, StateUnavailable, StateFor(err))
}
