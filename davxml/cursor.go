package davxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

var (
	ErrUnexpectedElement = errors.New("unexpected xml element")
)

// Cursor 基于 xml.Decoder 的拉取式游标, 只保留当前token, 非并发安全
type Cursor struct {
	dec *xml.Decoder
	tok xml.Token
}

func NewCursor(r io.Reader) *Cursor {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return &Cursor{dec: dec}
}

func (c *Cursor) Token() xml.Token {
	return c.tok
}

func (c *Cursor) pos() string {
	line, col := c.dec.InputPos()
	return fmt.Sprintf("%d:%d", line, col)
}

func (c *Cursor) Next() (xml.Token, error) {
	tok, err := c.dec.Token()
	if err != nil {
		c.tok = nil
		return nil, err
	}
	c.tok = tok
	return tok, nil
}

// NextTag 前进到下一个开始或结束标签, 跳过空白/注释/声明, 遇到非空白文本返回错误
func (c *Cursor) NextTag() (xml.Token, error) {
	for {
		tok, err := c.Next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			return tok, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("text found when expecting tag, pos:%s, err:%w", c.pos(), ErrUnexpectedElement)
			}
		}
	}
}

// Require 要求当前token为指定命名空间及名字的开始标签
func (c *Cursor) Require(space, local string) error {
	se, ok := c.tok.(xml.StartElement)
	if !ok {
		return fmt.Errorf("expect start tag {%s}%s, got %T, pos:%s, err:%w", space, local, c.tok, c.pos(), ErrUnexpectedElement)
	}
	if se.Name.Space != space || se.Name.Local != local {
		return fmt.Errorf("expect start tag {%s}%s, got {%s}%s, pos:%s, err:%w", space, local, se.Name.Space, se.Name.Local, c.pos(), ErrUnexpectedElement)
	}
	return nil
}

func (c *Cursor) requireStart() error {
	if _, ok := c.tok.(xml.StartElement); !ok {
		return fmt.Errorf("cursor not on start tag, got %T, pos:%s, err:%w", c.tok, c.pos(), ErrUnexpectedElement)
	}
	return nil
}

// Skip 消费当前开始标签的整棵子树, 结束后游标停在对应的结束标签上
func (c *Cursor) Skip() error {
	if err := c.requireStart(); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		tok, err := c.Next()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// ReadText 读取当前元素的直接文本内容, 嵌套的子元素会被整体跳过
func (c *Cursor) ReadText() (string, error) {
	if err := c.requireStart(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		tok, err := c.Next()
		if err != nil {
			return "", unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

// EachChild 遍历当前元素的直接子元素, 直到遇到当前元素的结束标签
// fn 必须完整消费传入的子元素(停在其结束标签上)
func (c *Cursor) EachChild(fn func(se xml.StartElement) error) error {
	if err := c.requireStart(); err != nil {
		return err
	}
	for {
		tok, err := c.Next()
		if err != nil {
			return unexpectedEOF(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		}
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
