package davxml

import (
	"encoding/xml"
	"errors"
	"io"
	"iter"
	"strconv"
	"strings"
)

// 部分结构参考: https://github.com/emersion/go-webdav

const (
	NS = "DAV:"
)

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeCollection
)

func (r ResourceType) String() string {
	if r == ResourceTypeCollection {
		return "collection"
	}
	return "none"
}

// Response 对应一个 <D:response>, 构建后不再修改
type Response struct {
	Href     *string
	PropStat *PropStat
}

type PropStat struct {
	Prop   *Prop
	Status *string
}

// StatusCode 解析 "HTTP/1.1 200 OK" 形式的状态行, 无状态或无法解析时返回0
func (p *PropStat) StatusCode() int {
	if p.Status == nil {
		return 0
	}
	fields := strings.Fields(*p.Status)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

func (p *PropStat) isSucc() bool {
	code := p.StatusCode()
	return code == 0 || (code >= 200 && code < 300)
}

type Prop struct {
	CreationDate  *string
	DisplayName   *string
	ContentLength int64
	ResourceType  ResourceType
}

func (r *Response) Prop() *Prop {
	if r.PropStat == nil {
		return nil
	}
	return r.PropStat.Prop
}

func (r *Response) IsCollection() bool {
	p := r.Prop()
	return p != nil && p.ResourceType == ResourceTypeCollection
}

// MultiStatusReader 按文档顺序逐个产出 response, 只能遍历一次
type MultiStatusReader struct {
	cur *Cursor
	err error
}

// NewMultiStatusReader 读取到根节点并校验其为 DAV:multistatus, 不会预读任何 response
func NewMultiStatusReader(r io.Reader) (*MultiStatusReader, error) {
	cur := NewCursor(r)
	if _, err := cur.NextTag(); err != nil {
		return nil, unexpectedEOF(err)
	}
	if err := cur.Require(NS, "multistatus"); err != nil {
		return nil, err
	}
	return &MultiStatusReader{cur: cur}, nil
}

// Next 返回下一个 response, 读到 multistatus 结束标签后返回 io.EOF
// 出错后的所有调用都返回同一个错误
func (m *MultiStatusReader) Next() (*Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	for {
		tok, err := m.cur.Next()
		if err != nil {
			m.err = unexpectedEOF(err)
			return nil, m.err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			m.err = io.EOF
			return nil, m.err
		case xml.StartElement:
			if davName(t.Name) != "response" {
				if err := m.cur.Skip(); err != nil {
					m.err = err
					return nil, err
				}
				continue
			}
			rsp, err := readResponse(m.cur)
			if err != nil {
				m.err = err
				return nil, err
			}
			return rsp, nil
		}
	}
}

// All 以 range-over-func 的方式暴露 Next, 共享同一个游标状态
func (m *MultiStatusReader) All() iter.Seq2[*Response, error] {
	return func(yield func(*Response, error) bool) {
		for {
			rsp, err := m.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rsp, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll 一次性读取全部 response, 仅适合小文档
func ReadAll(r io.Reader) ([]*Response, error) {
	ms, err := NewMultiStatusReader(r)
	if err != nil {
		return nil, err
	}
	rs := make([]*Response, 0, 16)
	for rsp, err := range ms.All() {
		if err != nil {
			return nil, err
		}
		rs = append(rs, rsp)
	}
	return rs, nil
}

// davName 只识别 DAV: 命名空间下的元素, 其它命名空间统一视为未知
func davName(name xml.Name) string {
	if name.Space != NS {
		return ""
	}
	return name.Local
}

func readResponse(c *Cursor) (*Response, error) {
	if err := c.Require(NS, "response"); err != nil {
		return nil, err
	}
	rsp := &Response{}
	err := c.EachChild(func(se xml.StartElement) error {
		switch davName(se.Name) {
		case "href":
			text, err := c.ReadText()
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			rsp.Href = &text
		case "propstat":
			ps, err := readPropStat(c)
			if err != nil {
				return err
			}
			// 服务端可能针对不同状态返回多个propstat, 优先保留成功的那个
			if rsp.PropStat == nil || !rsp.PropStat.isSucc() {
				rsp.PropStat = ps
			}
		default:
			return c.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rsp, nil
}

func readPropStat(c *Cursor) (*PropStat, error) {
	if err := c.Require(NS, "propstat"); err != nil {
		return nil, err
	}
	ps := &PropStat{}
	err := c.EachChild(func(se xml.StartElement) error {
		switch davName(se.Name) {
		case "prop":
			p, err := readProp(c)
			if err != nil {
				return err
			}
			ps.Prop = p
		case "status":
			text, err := c.ReadText()
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			ps.Status = &text
		default:
			return c.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ps, nil
}

func readProp(c *Cursor) (*Prop, error) {
	if err := c.Require(NS, "prop"); err != nil {
		return nil, err
	}
	p := &Prop{}
	err := c.EachChild(func(se xml.StartElement) error {
		switch davName(se.Name) {
		case "creationdate":
			text, err := c.ReadText()
			if err != nil {
				return err
			}
			p.CreationDate = &text
		case "displayname":
			text, err := c.ReadText()
			if err != nil {
				return err
			}
			p.DisplayName = &text
		case "getcontentlength":
			text, err := c.ReadText()
			if err != nil {
				return err
			}
			p.ContentLength = parseContentLength(text)
		case "resourcetype":
			rt, err := readResourceType(c)
			if err != nil {
				return err
			}
			p.ResourceType = rt
		default:
			return c.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseContentLength(text string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func readResourceType(c *Cursor) (ResourceType, error) {
	if err := c.Require(NS, "resourcetype"); err != nil {
		return ResourceTypeNone, err
	}
	rt := ResourceTypeNone
	err := c.EachChild(func(se xml.StartElement) error {
		if davName(se.Name) == "collection" {
			rt = ResourceTypeCollection
		}
		return c.Skip()
	})
	if err != nil {
		return ResourceTypeNone, err
	}
	return rt, nil
}
