package core

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExtractMetadata parses the YAML front matter of a SKILL.md document.
// ok is false when there is no front matter, it does not parse, or name or
// description is missing. Callers treat that the same as a failed fetch.
func ExtractMetadata(content []byte) (meta *SkillMetadata, ok bool) {
	block, found := frontmatterBlock(content)
	if !found {
		return nil, false
	}

	var raw map[string]any
	if err := yaml.Unmarshal(block, &raw); err != nil || raw == nil {
		return nil, false
	}

	name, _ := raw["name"].(string)
	description, _ := raw["description"].(string)
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, false
	}

	meta = &SkillMetadata{
		Name:        name,
		Description: description,
	}
	if v, isBool := raw["user-invocable"].(bool); isBool {
		meta.UserInvocable = &v
	}
	meta.AllowedTools = toolList(raw["allowed-tools"])
	if m, isMap := raw["metadata"].(map[string]any); isMap {
		meta.Metadata = m
	}
	return meta, true
}

// frontmatterBlock returns the lines between the opening and closing "---".
func frontmatterBlock(content []byte) ([]byte, bool) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Look for opening ---
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, false
	}

	var fm bytes.Buffer
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "---" {
			return fm.Bytes(), true
		}
		fm.WriteString(line)
		fm.WriteByte('\n')
	}
	return nil, false
}

// toolList accepts either a YAML sequence of strings or a comma-separated string.
func toolList(v any) []string {
	var tools []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				tools = append(tools, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				tools = append(tools, s)
			}
		}
	}
	return tools
}
