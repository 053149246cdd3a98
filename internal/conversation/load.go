package conversation

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type scriptFile struct {
	Name     string        `yaml:"name"`
	Messages []messageFile `yaml:"messages"`
}

type messageFile struct {
	Role    string   `yaml:"role"`
	Content string   `yaml:"content"`
	Docs    []string `yaml:"docs,omitempty"`
	// Delay is in seconds.
	Delay float64 `yaml:"delay"`
}

// LoadScript reads a single script from disk.
func LoadScript(path string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("script path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	script, err := parseScript(data)
	if err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	script.Source = path
	return script, nil
}

// LoadScriptsFromDir loads all YAML scripts in dir, ordered by file name.
// A missing directory yields no scripts.
func LoadScriptsFromDir(dir string) ([]Script, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scripts dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		script, err := LoadScript(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *script)
	}
	return scripts, nil
}

// LoadLibrary returns the built-in scripts followed by those in dir.
// A script in dir replaces the built-in script with the same name in place.
func LoadLibrary(dir string) (Library, error) {
	builtins, err := LoadBuiltinScripts()
	if err != nil {
		return nil, err
	}
	extra, err := LoadScriptsFromDir(dir)
	if err != nil {
		return nil, err
	}

	lib := append(Library(nil), builtins...)
	index := make(map[string]int, len(lib))
	for i, s := range lib {
		index[s.Name] = i
	}
	for _, s := range extra {
		if i, ok := index[s.Name]; ok {
			lib[i] = s
			continue
		}
		index[s.Name] = len(lib)
		lib = append(lib, s)
	}
	return lib, nil
}

// maxDelaySeconds is the first value that overflows time.Duration.
var maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

func parseScript(data []byte) (*Script, error) {
	var raw scriptFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, fmt.Errorf("script name is required")
	}

	script := &Script{Name: name, Messages: make([]Message, 0, len(raw.Messages))}
	for i, m := range raw.Messages {
		msg, err := m.toMessage()
		if err != nil {
			return nil, fmt.Errorf("script message %d: %w", i+1, err)
		}
		script.Messages = append(script.Messages, msg)
	}
	return script, nil
}

func (m messageFile) toMessage() (Message, error) {
	role, err := ParseRole(m.Role)
	if err != nil {
		return Message{}, err
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return Message{}, fmt.Errorf("message content is required")
	}
	if m.Delay < 0 || math.IsNaN(m.Delay) || math.IsInf(m.Delay, 0) {
		return Message{}, fmt.Errorf("delay must be a non-negative number of seconds")
	}
	if m.Delay >= maxDelaySeconds {
		return Message{}, fmt.Errorf("delay %gs exceeds the maximum duration", m.Delay)
	}

	msg := Message{
		Role:    role,
		Content: content,
		Delay:   time.Duration(m.Delay * float64(time.Second)),
	}
	if role == RoleRetrieval {
		for _, doc := range m.Docs {
			if doc = strings.TrimSpace(doc); doc != "" {
				msg.ReferenceDocs = append(msg.ReferenceDocs, doc)
			}
		}
	}
	return msg, nil
}
