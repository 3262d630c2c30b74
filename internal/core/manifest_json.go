package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Members modelled by SkillEntry and Manifest. Anything else round-trips
// through Extra so fields written by the update script or other tools survive
// a rewrite.
var (
	skillEntryKeys = []string{"name", "description", "origin", "upstream", "installer", "dependencies", "commands", "local"}
	manifestKeys   = []string{"skills"}
)

type skillEntryFields SkillEntry

type manifestFields Manifest

// UnmarshalJSON implements json.Unmarshaler.
func (e *SkillEntry) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var fields skillEntryFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := unknownMembers(data, skillEntryKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*e = SkillEntry(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e SkillEntry) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(skillEntryFields(e), e.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var fields manifestFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := unknownMembers(data, manifestKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*m = Manifest(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Manifest) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(manifestFields(m), m.Extra)
}

// unknownMembers returns the object members of data whose keys match none of
// known (case-insensitively, like encoding/json field matching).
func unknownMembers(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key := range raw {
		for _, k := range known {
			if strings.EqualFold(key, k) {
				delete(raw, key)
				break
			}
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// marshalWithExtra encodes v and appends the extra members, sorted by key.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	body, err := marshalNoEscape(v)
	if err != nil || len(extra) == 0 {
		return body, err
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(body, []byte("}")))
	needComma := !bytes.Equal(body, []byte("{}"))
	for _, k := range keys {
		if needComma {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(extra[k])
		needComma = true
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape encodes v without HTML escaping, matching the manifest
// writer.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
