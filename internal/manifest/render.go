package manifest

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
)

const dataURIPrefix = "data:application/dash+xml;charset=utf-8;base64,"

// Render writes n as a UTF-8 XML document, prolog included.
func Render(w io.Writer, n *Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write prolog: %w", err)
	}
	enc := xml.NewEncoder(w)
	if err := encode(enc, n); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return nil
}

func encode(enc *xml.Encoder, n *Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode %s: %w", n.Name, err)
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return fmt.Errorf("encode %s text: %w", n.Name, err)
		}
	}
	for _, c := range n.Children {
		if err := encode(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("encode %s: %w", n.Name, err)
	}
	return nil
}

func RenderBytes(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI embeds a rendered document for players that only accept URIs.
func DataURI(doc []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(doc)
}
