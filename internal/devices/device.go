package devices

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Device is one entry of the device file. The file is never validated, so a
// Device remembers the JSON it was decoded from and writes unchanged parts
// back verbatim: unknown keys, non-string values and even entries that are
// not objects at all survive a load/save cycle.
type Device struct {
	Name    string `json:"name"`
	IP      string `json:"ip"`
	Type    string `json:"type"`
	Channel string `json:"channel"`

	src      *source
	assigned bool
}

type source struct {
	raw    json.RawMessage // non-object entry
	keys   []string
	values map[string]json.RawMessage
}

var knownKeys = [...]string{"name", "ip", "type", "channel"}

// New returns a device with all four fields set.
func New(name, ip, typ, channel string) Device {
	return Device{Name: name, IP: ip, Type: typ, Channel: channel}
}

// Assign overwrites all four fields. They are written back as JSON strings
// even when the stored entry held another JSON type.
func (d *Device) Assign(name, ip, typ, channel string) {
	d.Name, d.IP, d.Type, d.Channel = name, ip, typ, channel
	d.assigned = true
}

// Opaque reports whether the entry was not a JSON object. Opaque entries are
// kept in the file but never match a lookup.
func (d Device) Opaque() bool { return d.src != nil && d.src.raw != nil }

func (d *Device) field(key string) *string {
	switch key {
	case "name":
		return &d.Name
	case "ip":
		return &d.IP
	case "type":
		return &d.Type
	case "channel":
		return &d.Channel
	}
	return nil
}

func (d *Device) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = Device{}
	if len(data) == 0 || data[0] != '{' {
		d.src = &source{raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	src := &source{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return err
		}
		if _, seen := src.values[key]; !seen {
			src.keys = append(src.keys, key)
		}
		src.values[key] = val
	}
	d.src = src
	for _, k := range knownKeys {
		if v, ok := src.values[k]; ok {
			*d.field(k) = text(v)
		}
	}
	return nil
}

func (d Device) MarshalJSON() ([]byte, error) {
	if d.src == nil {
		type plain Device
		return json.Marshal(plain(d))
	}
	if d.src.raw != nil {
		return d.src.raw, nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	emit := func(k string, v []byte) {
		if n > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
		n++
	}
	for _, k := range d.src.keys {
		v := d.src.values[k]
		if f := d.field(k); f != nil && (d.assigned || text(v) != *f) {
			v, _ = json.Marshal(*f)
		}
		emit(k, v)
	}
	for _, k := range knownKeys {
		if _, ok := d.src.values[k]; ok {
			continue
		}
		if f := d.field(k); d.assigned || *f != "" {
			v, _ := json.Marshal(*f)
			emit(k, v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// text renders a JSON value the way a template would show it: strings
// unquoted, null empty, anything else as its literal source.
func text(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	t := strings.TrimSpace(string(v))
	if t == "null" {
		return ""
	}
	return t
}
