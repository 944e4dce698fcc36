package merchants

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the wire form of the merchant dictionary:
//
//	{ "merchants": { group: { merchantName: category } },
//	  "patterns":  { category: { "keywords": [...], "description": "..." } } }
//
// Object key order is significant and is preserved in both directions.
type Document struct {
	Merchants []MerchantGroup
	Patterns  []CategoryPattern
}

// MerchantGroup is one top-level group of merchants.
type MerchantGroup struct {
	Name      string
	Merchants []MerchantEntry
}

// MerchantEntry maps one merchant display name to a category.
type MerchantEntry struct {
	Name     string
	Category string
}

// CategoryPattern lists the keywords that classify a description into a category.
type CategoryPattern struct {
	Category    string   `json:"-"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Merchants json.RawMessage `json:"merchants"`
		Patterns  json.RawMessage `json:"patterns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("merchant document: %w", err)
	}

	var doc Document
	err := eachMember(raw.Merchants, func(group string, body json.RawMessage) error {
		g := MerchantGroup{Name: group}
		err := eachMember(body, func(name string, cat json.RawMessage) error {
			var category string
			if err := json.Unmarshal(cat, &category); err != nil {
				return fmt.Errorf("merchant %q in group %q: %w", name, group, err)
			}
			g.Merchants = append(g.Merchants, MerchantEntry{Name: name, Category: category})
			return nil
		})
		if err != nil {
			return err
		}
		doc.Merchants = append(doc.Merchants, g)
		return nil
	})
	if err != nil {
		return fmt.Errorf("merchant document: merchants: %w", err)
	}

	err = eachMember(raw.Patterns, func(category string, body json.RawMessage) error {
		p := CategoryPattern{Category: category}
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("pattern %q: %w", category, err)
		}
		p.Category = category
		doc.Patterns = append(doc.Patterns, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("merchant document: patterns: %w", err)
	}

	*d = doc
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"merchants":{`)
	for i, g := range d.Merchants {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(&buf, g.Name)
		buf.WriteByte('{')
		for j, m := range g.Merchants {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, m.Name)
			v, _ := json.Marshal(m.Category)
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`},"patterns":{`)
	for i, p := range d.Patterns {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(&buf, p.Category)
		if p.Keywords == nil {
			p.Keywords = []string{}
		}
		v, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}

// eachMember walks the members of a JSON object in document order. A missing
// or null value is treated as an empty object.
func eachMember(data json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}
