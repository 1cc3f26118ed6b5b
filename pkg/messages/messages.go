package messages

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/pricing"
)

//go:embed default.yaml
var defaultCatalog []byte

// FAQ is one question and its canned answer
type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type catalogFile struct {
	Messages map[string]string `yaml:"messages"`
	FAQs     []FAQ             `yaml:"faqs"`
}

// Catalog is a concurrency safe set of reply templates
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	faqs      []FAQ
}

var funcs = template.FuncMap{
	"money": pricing.Format,
	"join":  strings.Join,
	"upper": strings.ToUpper,
}

var faqClean = regexp.MustCompile(`[^a-z0-9 ]`)

// Default returns a catalog built from the embedded defaults
func Default() *Catalog {
	c, err := parse(defaultCatalog, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog is invalid: %v", err))
	}
	return c
}

// Load returns the defaults overlaid with path. An empty path returns the
// defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile overlays the catalog with the messages and FAQs in path. Keys
// missing from the file keep their current text. On error the catalog is
// unchanged.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read messages file: %w", err)
	}

	c.mu.RLock()
	base := &Catalog{templates: c.templates, faqs: c.faqs}
	c.mu.RUnlock()

	next, err := parse(data, base)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.mu.Lock()
	c.templates = next.templates
	c.faqs = next.faqs
	c.mu.Unlock()
	return nil
}

func parse(data []byte, base *Catalog) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid messages yaml: %w", err)
	}

	out := &Catalog{templates: make(map[string]*template.Template)}
	if base != nil {
		for k, v := range base.templates {
			out.templates[k] = v
		}
		out.faqs = base.faqs
	}

	for key, text := range file.Messages {
		tmpl, err := template.New(key).Funcs(funcs).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("message %q: %w", key, err)
		}
		out.templates[key] = tmpl
	}
	if len(file.FAQs) > 0 {
		out.faqs = file.FAQs
	}
	return out, nil
}

// Has reports whether key is defined
func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.templates[key]
	return ok
}

// Render executes the template for key with data. Unknown keys render as
// the key itself so a missing entry is visible without breaking the reply.
func (c *Catalog) Render(key string, data interface{}) string {
	c.mu.RLock()
	tmpl, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		logger := log.WithComponent("messages")
		logger.Warn().Str("key", key).Msg("unknown message key")
		return key
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logger := log.WithComponent("messages")
		logger.Error().Err(err).Str("key", key).Msg("failed to render message")
		return key
	}
	return buf.String()
}

// FAQAnswer returns the answer for the first FAQ question contained in text
func (c *Catalog) FAQAnswer(text string) (string, bool) {
	key := strings.TrimSpace(faqClean.ReplaceAllString(strings.ToLower(text), ""))
	if key == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.faqs {
		if strings.Contains(key, f.Question) {
			return f.Answer, true
		}
	}
	return "", false
}
