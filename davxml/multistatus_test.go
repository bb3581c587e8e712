package davxml

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vendorSample = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
<D:response xmlns:lp1="DAV:" xmlns:lp2="http://apache.org/dav/props/">
<D:href>/roms/</D:href>
<D:propstat>
<D:prop>
<lp1:resourcetype><D:collection/></lp1:resourcetype>
<lp1:creationdate>2025-10-12T12:29:35Z</lp1:creationdate>
<lp1:getlastmodified>Sun, 12 Oct 2025 12:29:35 GMT</lp1:getlastmodified>
<lp1:getetag>"1000-640f54dc19069"</lp1:getetag>
<D:supportedlock>
<D:lockentry>
<D:lockscope><D:exclusive/></D:lockscope>
<D:locktype><D:write/></D:locktype>
</D:lockentry>
</D:supportedlock>
<D:lockdiscovery/>
<D:getcontenttype>httpd/unix-directory</D:getcontenttype>
</D:prop>
<D:status>HTTP/1.1 200 OK</D:status>
</D:propstat>
</D:response>
<D:response xmlns:lp1="DAV:" xmlns:lp2="http://apache.org/dav/props/">
<D:href>/roms/Game.zip</D:href>
<D:propstat>
<D:prop>
<lp1:resourcetype/>
<lp2:executable>F</lp2:executable>
<lp1:getcontentlength>12345</lp1:getcontentlength>
<D:displayname>Game.zip</D:displayname>
</D:prop>
<D:status>HTTP/1.1 200 OK</D:status>
</D:propstat>
</D:response>
</D:multistatus>`

func buildDoc(n int) string {
	sb := &strings.Builder{}
	sb.WriteString(`<?xml version="1.0"?><d:multistatus xmlns:d="DAV:">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(sb, `<d:response><d:href>/f/%d.bin</d:href><d:propstat><d:prop><d:getcontentlength>%d</d:getcontentlength></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`, i, i)
	}
	sb.WriteString(`</d:multistatus>`)
	return sb.String()
}

func TestResponseCountAndOrder(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		rs, err := ReadAll(strings.NewReader(buildDoc(n)))
		require.NoError(t, err)
		require.Len(t, rs, n)
		for i, rsp := range rs {
			require.NotNil(t, rsp.Href)
			assert.Equal(t, fmt.Sprintf("/f/%d.bin", i), *rsp.Href)
			assert.Equal(t, int64(i), rsp.Prop().ContentLength)
		}
	}
}

func TestVendorPropsSkipped(t *testing.T) {
	rs, err := ReadAll(strings.NewReader(vendorSample))
	require.NoError(t, err)
	require.Len(t, rs, 2)

	dir := rs[0]
	assert.Equal(t, "/roms/", *dir.Href)
	assert.True(t, dir.IsCollection())
	assert.Equal(t, "2025-10-12T12:29:35Z", *dir.Prop().CreationDate)
	assert.Nil(t, dir.Prop().DisplayName)
	assert.Equal(t, "HTTP/1.1 200 OK", *dir.PropStat.Status)
	assert.Equal(t, 200, dir.PropStat.StatusCode())

	file := rs[1]
	assert.False(t, file.IsCollection())
	assert.Equal(t, int64(12345), file.Prop().ContentLength)
	assert.Equal(t, "Game.zip", *file.Prop().DisplayName)
}

func TestInterleavedUnknownProp(t *testing.T) {
	doc := `<multistatus xmlns="DAV:" xmlns:x="urn:vendor"><response><href>/a</href><propstat><prop>
<displayname>a.sfc</displayname>
<x:thumbnail><x:data><x:nested>zzz</x:nested></x:data></x:thumbnail>
<getcontentlength>42</getcontentlength>
<quota-used-bytes>100</quota-used-bytes>
<creationdate>2020-01-01T00:00:00Z</creationdate>
</prop></propstat></response></multistatus>`
	rs, err := ReadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	p := rs[0].Prop()
	assert.Equal(t, "a.sfc", *p.DisplayName)
	assert.Equal(t, int64(42), p.ContentLength)
	assert.Equal(t, "2020-01-01T00:00:00Z", *p.CreationDate)
	assert.Nil(t, rs[0].PropStat.Status)
}

func TestContentLength(t *testing.T) {
	tests := []struct {
		prop string
		want int64
	}{
		{`<getcontentlength>12345</getcontentlength>`, 12345},
		{`<getcontentlength> 77 </getcontentlength>`, 77},
		{`<getcontentlength>abc</getcontentlength>`, 0},
		{`<getcontentlength>-5</getcontentlength>`, 0},
		{`<getcontentlength/>`, 0},
		{``, 0},
	}
	for _, tst := range tests {
		doc := `<multistatus xmlns="DAV:"><response><href>/a</href><propstat><prop>` + tst.prop + `</prop></propstat></response></multistatus>`
		rs, err := ReadAll(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, tst.want, rs[0].Prop().ContentLength, tst.prop)
	}
}

func TestResourceType(t *testing.T) {
	tests := []struct {
		prop string
		want ResourceType
	}{
		{`<resourcetype><collection/></resourcetype>`, ResourceTypeCollection},
		{`<resourcetype><collection><x:more xmlns:x="urn:x"/></collection></resourcetype>`, ResourceTypeCollection},
		{`<resourcetype><x:principal xmlns:x="urn:x"/><collection/></resourcetype>`, ResourceTypeCollection},
		{`<resourcetype/>`, ResourceTypeNone},
		{`<resourcetype></resourcetype>`, ResourceTypeNone},
		{`<resourcetype><x:collection xmlns:x="urn:x"/></resourcetype>`, ResourceTypeNone},
		{``, ResourceTypeNone},
	}
	for _, tst := range tests {
		doc := `<multistatus xmlns="DAV:"><response><href>/a</href><propstat><prop>` + tst.prop + `</prop></propstat></response></multistatus>`
		rs, err := ReadAll(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, tst.want, rs[0].Prop().ResourceType, tst.prop)
	}
}

func TestForeignNamespaceIgnored(t *testing.T) {
	doc := `<d:multistatus xmlns:d="DAV:" xmlns:o="urn:other">
<o:response><d:href>/ghost</d:href></o:response>
<d:response>
  <o:href>/wrong</o:href>
  <d:href>/right</d:href>
  <d:propstat><d:prop><o:displayname>wrong</o:displayname><d:displayname>right</d:displayname></d:prop></d:propstat>
</d:response>
</d:multistatus>`
	rs, err := ReadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "/right", *rs[0].Href)
	assert.Equal(t, "right", *rs[0].Prop().DisplayName)
}

func TestMissingHrefAndPropStat(t *testing.T) {
	doc := `<multistatus xmlns="DAV:"><response/><response><href>
	/spaced/path
	</href></response></multistatus>`
	rs, err := ReadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Nil(t, rs[0].Href)
	assert.Nil(t, rs[0].PropStat)
	assert.Nil(t, rs[0].Prop())
	assert.False(t, rs[0].IsCollection())
	assert.Equal(t, "/spaced/path", *rs[1].Href)
}

func TestMultiplePropStatPreferSucc(t *testing.T) {
	doc := `<multistatus xmlns="DAV:"><response><href>/a</href>
<propstat><prop><displayname/></prop><status>HTTP/1.1 404 Not Found</status></propstat>
<propstat><prop><getcontentlength>9</getcontentlength></prop><status>HTTP/1.1 200 OK</status></propstat>
<propstat><prop><quota/></prop><status>HTTP/1.1 403 Forbidden</status></propstat>
</response></multistatus>`
	rs, err := ReadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 200, rs[0].PropStat.StatusCode())
	assert.Equal(t, int64(9), rs[0].Prop().ContentLength)
}

func TestWrongRoot(t *testing.T) {
	_, err := NewMultiStatusReader(strings.NewReader(`<?xml version="1.0"?><d:error xmlns:d="DAV:"/>`))
	assert.ErrorIs(t, err, ErrUnexpectedElement)
	_, err = NewMultiStatusReader(strings.NewReader(`<multistatus xmlns="urn:not-dav"/>`))
	assert.ErrorIs(t, err, ErrUnexpectedElement)
	_, err = NewMultiStatusReader(strings.NewReader(``))
	assert.Error(t, err)
}

func TestTruncatedDocument(t *testing.T) {
	doc := `<multistatus xmlns="DAV:"><response><href>/a</href></response><response><href>/b</hr`
	ms, err := NewMultiStatusReader(strings.NewReader(doc))
	require.NoError(t, err)
	rsp, err := ms.Next()
	require.NoError(t, err)
	assert.Equal(t, "/a", *rsp.Href)
	_, err = ms.Next()
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
	// 出错后保持同一个错误
	_, err2 := ms.Next()
	assert.Equal(t, err, err2)
}

func TestExhaustedReturnsEOF(t *testing.T) {
	ms, err := NewMultiStatusReader(strings.NewReader(buildDoc(1)))
	require.NoError(t, err)
	_, err = ms.Next()
	require.NoError(t, err)
	_, err = ms.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = ms.Next()
	assert.ErrorIs(t, err, io.EOF)
}

type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if len(p) > 64 {
		p = p[:64]
	}
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func TestLazyPartialConsume(t *testing.T) {
	doc := buildDoc(2000)
	cr := &countingReader{r: strings.NewReader(doc)}
	ms, err := NewMultiStatusReader(cr)
	require.NoError(t, err)
	cnt := 0
	for rsp, err := range ms.All() {
		require.NoError(t, err)
		require.NotNil(t, rsp)
		cnt++
		if cnt == 3 {
			break
		}
	}
	assert.Equal(t, 3, cnt)
	// 只消费了前几个response, 底层流远没有被读完
	assert.Less(t, cr.read, len(doc)/10)
	// 继续拉取从第4个开始
	rsp, err := ms.Next()
	require.NoError(t, err)
	assert.Equal(t, "/f/3.bin", *rsp.Href)
}

func TestUnknownTopLevelSkipped(t *testing.T) {
	doc := `<multistatus xmlns="DAV:"><sync-token>abc</sync-token><response><href>/a</href></response><responsedescription>x<b/></responsedescription></multistatus>`
	rs, err := ReadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rs, 1)
}
