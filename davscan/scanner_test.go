package davscan

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/retrodav/davclient"
	"golang.org/x/net/webdav"
)

const sampleBody = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/roms/snes/</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>snes</d:displayname>
        <d:resourcetype><d:collection/></d:resourcetype>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/roms/Game.zip</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>Game.zip</d:displayname>
        <d:getcontentlength>1024</d:getcontentlength>
        <d:resourcetype/>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/roms/My%20Game.zip</d:href>
    <d:propstat>
      <d:prop>
        <d:displayname>My%20Game.zip</d:displayname>
        <d:getcontentlength>2048</d:getcontentlength>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

type fakeClient struct {
	davclient.IClient
	body   string
	err    error
	uris   []string
	bodies []*closeTracker
}

func (f *fakeClient) Propfind(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	f.uris = append(f.uris, uri.String())
	if f.err != nil {
		return nil, f.err
	}
	rc := &closeTracker{Reader: strings.NewReader(f.body)}
	f.bodies = append(f.bodies, rc)
	return rc, nil
}

func mustParse(t *testing.T, s string) *url.URL {
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestListFilesFromSample(t *testing.T) {
	cli := &fakeClient{body: sampleBody}
	s := New(cli)
	files, err := s.ListFiles(context.Background(), mustParse(t, "webdavs://nas.local/roms/"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "Game.zip", files[0].Name)
	assert.Equal(t, int64(1024), files[0].Size)
	assert.Equal(t, "webdavs://nas.local/roms/Game.zip", files[0].URI)
	assert.Nil(t, files[0].ContentHash)
	assert.Equal(t, "My Game.zip", files[1].Name)
	assert.Equal(t, int64(2048), files[1].Size)
	assert.Equal(t, []string{"https://nas.local/roms/"}, cli.uris)
	require.Len(t, cli.bodies, 1)
	assert.True(t, cli.bodies[0].closed)
}

func TestScanFiltersHidden(t *testing.T) {
	body := `<multistatus xmlns="DAV:">
<response><href>/roms/</href><propstat><prop><displayname>roms</displayname><resourcetype><collection/></resourcetype></prop></propstat></response>
<response><href>/roms/.hidden</href><propstat><prop><displayname>.hidden</displayname><getcontentlength>1</getcontentlength></prop></propstat></response>
<response><href>/roms/%2Etrash</href><propstat><prop><displayname>%2Etrash</displayname></prop></propstat></response>
<response><propstat><prop><displayname>nohref.zip</displayname></prop></propstat></response>
<response><href>/roms/Game.zip</href><propstat><prop><displayname>Game.zip</displayname><getcontentlength>7</getcontentlength></prop></propstat></response>
</multistatus>`
	s := New(&fakeClient{body: body})
	var ents []*Entry
	err := s.Scan(context.Background(), mustParse(t, "webdav://nas.local/roms"), func(ctx context.Context, ent *Entry) (bool, error) {
		ents = append(ents, ent)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "Game.zip", ents[0].Name)
	assert.Equal(t, int64(7), ents[0].Size)
	assert.Equal(t, "webdav", ents[0].URI.Scheme)
	assert.Equal(t, "/roms/Game.zip", ents[0].URI.Path)
}

func TestScanNameFallback(t *testing.T) {
	body := `<multistatus xmlns="DAV:">
<response><href>http://nas.local/roms/Tetris%20DX.gb</href><propstat><prop><getcontentlength>9</getcontentlength></prop></propstat></response>
<response><href>sub/</href><propstat><prop><resourcetype><collection/></resourcetype></prop></propstat></response>
</multistatus>`
	s := New(&fakeClient{body: body})
	var ents []*Entry
	err := s.Scan(context.Background(), mustParse(t, "webdav://nas.local/roms/"), func(ctx context.Context, ent *Entry) (bool, error) {
		ents = append(ents, ent)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, "Tetris DX.gb", ents[0].Name)
	assert.Equal(t, "webdav://nas.local/roms/Tetris%20DX.gb", ents[0].URI.String())
	assert.Equal(t, "sub", ents[1].Name)
	assert.True(t, ents[1].IsDir)
	assert.Equal(t, "webdav://nas.local/roms/sub/", ents[1].URI.String())
}

func TestScanStopEarly(t *testing.T) {
	cli := &fakeClient{body: sampleBody}
	s := New(cli)
	cnt := 0
	err := s.Scan(context.Background(), mustParse(t, "webdav://nas.local/roms/"), func(ctx context.Context, ent *Entry) (bool, error) {
		cnt++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
	assert.True(t, cli.bodies[0].closed)
}

func TestScanCallbackError(t *testing.T) {
	cli := &fakeClient{body: sampleBody}
	s := New(cli)
	expect := errors.New("stop")
	err := s.Scan(context.Background(), mustParse(t, "webdav://nas.local/roms/"), func(ctx context.Context, ent *Entry) (bool, error) {
		return false, expect
	})
	assert.ErrorIs(t, err, expect)
	assert.True(t, cli.bodies[0].closed)
}

func TestListFilesNoPartialResult(t *testing.T) {
	truncated := sampleBody[:strings.Index(sampleBody, "My%20Game.zip</d:href>")]
	cli := &fakeClient{body: truncated}
	s := New(cli)
	files, err := s.ListFiles(context.Background(), mustParse(t, "webdav://nas.local/roms/"))
	assert.Error(t, err)
	assert.Nil(t, files)
	assert.True(t, cli.bodies[0].closed)

	s = New(&fakeClient{err: &davclient.StatusError{Code: 500}})
	files, err = s.ListFiles(context.Background(), mustParse(t, "webdav://nas.local/roms/"))
	assert.Error(t, err)
	assert.Nil(t, files)
}

func TestScanUnsupportedRoot(t *testing.T) {
	s := New(&fakeClient{body: sampleBody})
	_, err := s.ListFiles(context.Background(), mustParse(t, "ftp://nas.local/roms/"))
	assert.Error(t, err)
}

func newWebdavServer(t *testing.T) (string, *httptest.Server) {
	dir := t.TempDir()
	write := func(name string, size int) {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, make([]byte, size), 0644))
	}
	write("Game.zip", 10)
	write("My Game.sfc", 20)
	write(".hidden", 1)
	write("gba/Zelda.gba", 30)
	write("gba/deep/Pokemon.gba", 40)
	h := &webdav.Handler{
		FileSystem: webdav.Dir(dir),
		LockSystem: webdav.NewMemLS(),
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return dir, srv
}

func logicalRoot(t *testing.T, srv *httptest.Server) *url.URL {
	u := mustParse(t, srv.URL+"/")
	u.Scheme = "webdav"
	return u
}

func TestListFilesAgainstServer(t *testing.T) {
	_, srv := newWebdavServer(t)
	cli, err := davclient.New()
	require.NoError(t, err)
	s := New(cli)
	files, err := s.ListFiles(context.Background(), logicalRoot(t, srv))
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.True(t, strings.HasPrefix(f.URI, "webdav://"))
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Game.zip", "My Game.sfc"}, names)
}

func TestWalkAgainstServer(t *testing.T) {
	_, srv := newWebdavServer(t)
	cli, err := davclient.New()
	require.NoError(t, err)
	s := New(cli)
	files, err := s.WalkFiles(context.Background(), logicalRoot(t, srv), 0)
	require.NoError(t, err)
	sizes := make(map[string]int64, len(files))
	for _, f := range files {
		sizes[f.Name] = f.Size
	}
	assert.Equal(t, map[string]int64{
		"Game.zip":    10,
		"My Game.sfc": 20,
		"Zelda.gba":   30,
		"Pokemon.gba": 40,
	}, sizes)

	files, err = s.WalkFiles(context.Background(), logicalRoot(t, srv), 2)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanRootWithoutTrailingSlash(t *testing.T) {
	body := `<multistatus xmlns="DAV:">
<response><href>Game.zip</href><propstat><prop><getcontentlength>3</getcontentlength></prop></propstat></response>
<response><href>snes/</href><propstat><prop><resourcetype><collection/></resourcetype></prop></propstat></response>
</multistatus>`
	cli := &fakeClient{body: body}
	s := New(cli)
	var uris []string
	err := s.Scan(context.Background(), mustParse(t, "webdav://nas.local/roms"), func(ctx context.Context, ent *Entry) (bool, error) {
		uris = append(uris, ent.URI.String())
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"webdav://nas.local/roms/Game.zip", "webdav://nas.local/roms/snes/"}, uris)
	assert.Equal(t, []string{"http://nas.local/roms/"}, cli.uris)
}

type treeClient struct {
	davclient.IClient
	dirs  map[string]string
	calls []string
}

func (c *treeClient) Propfind(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	c.calls = append(c.calls, uri.Path)
	body, ok := c.dirs[uri.Path]
	if !ok {
		return nil, davclient.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func dirListing(self string, children ...string) string {
	sb := strings.Builder{}
	sb.WriteString(`<multistatus xmlns="DAV:">`)
	sb.WriteString(`<response><href>` + self + `</href><propstat><prop><resourcetype><collection/></resourcetype></prop></propstat></response>`)
	for _, c := range children {
		trimmed := strings.TrimSuffix(c, "/")
		name := trimmed[strings.LastIndex(trimmed, "/")+1:]
		if len(name) == 0 {
			name = "root"
		}
		if strings.HasSuffix(c, "/") {
			sb.WriteString(`<response><href>` + c + `</href><propstat><prop><displayname>` + name + `</displayname><resourcetype><collection/></resourcetype></prop></propstat></response>`)
			continue
		}
		sb.WriteString(`<response><href>` + c + `</href><propstat><prop><getcontentlength>1</getcontentlength></prop></propstat></response>`)
	}
	sb.WriteString(`</multistatus>`)
	return sb.String()
}

func TestWalkSkipsVisitedDirs(t *testing.T) {
	cli := &treeClient{dirs: map[string]string{
		"/":   dirListing("/", "/a/", "/b/"),
		"/a/": dirListing("/a/", "/"),
		"/b/": dirListing("/b/", "/"),
	}}
	s := New(cli)
	cnt := 0
	err := s.Walk(context.Background(), mustParse(t, "webdav://nas.local/"), 0, func(ctx context.Context, ent *Entry) (bool, error) {
		cnt++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, cnt)
	assert.Equal(t, []string{"/", "/a/", "/b/"}, cli.calls)
}

func TestWalkStaysUnderRoot(t *testing.T) {
	cli := &treeClient{dirs: map[string]string{
		"/roms/":     dirListing("/roms/", "/roms/gba/", "/", "/other/"),
		"/roms/gba/": dirListing("/roms/gba/", "/roms/gba/Zelda.gba", "/roms/", "/roms/gba/../"),
		"/other/":    dirListing("/other/", "/other/Outside.gba"),
		"/":          dirListing("/", "/roms/", "/other/"),
	}}
	s := New(cli)
	files, err := s.WalkFiles(context.Background(), mustParse(t, "webdav://nas.local/roms"), 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "webdav://nas.local/roms/gba/Zelda.gba", files[0].URI)
	assert.Equal(t, []string{"/roms/", "/roms/gba/"}, cli.calls)
}
