// Package schema builds the element/attribute allowlist used to validate
// .zwo documents from a tag usage map and a descriptions document.
package schema

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSchemaLoad is returned when reference data is missing or malformed.
var ErrSchemaLoad = errors.New("schema load failed")

//go:embed reference/tag_attr_usage.json reference/descriptions.yaml
var reference embed.FS

const (
	defaultUsage        = "reference/tag_attr_usage.json"
	defaultDescriptions = "reference/descriptions.yaml"
)

// Usage is the canonical tag/attribute map.
type Usage struct {
	Elements   []UsageElement   `json:"elements"`
	Attributes []UsageAttribute `json:"attributes"`
}

type UsageElement struct {
	Tag        string   `json:"tag"`
	Attributes []string `json:"attributes"`
}

type UsageAttribute struct {
	Attribute string   `json:"attribute"`
	Tags      []string `json:"tags"`
}

// Descriptions documents elements and attributes. Its text is mined for
// additional names.
type Descriptions struct {
	Elements   map[string]Entry `yaml:"elements"`
	Attributes map[string]Entry `yaml:"attributes"`
}

// Entry is a description value: either plain text or a mapping with the
// text plus explicit attribute or element lists.
type Entry struct {
	Description string   `yaml:"description"`
	Attributes  []string `yaml:"attributes"`
	Elements    []string `yaml:"elements"`
}

func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Description = node.Value
		return nil
	}
	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// ParseUsage decodes tag_attr_usage.json content.
func ParseUsage(data []byte) (Usage, error) {
	var u Usage
	if err := json.Unmarshal(data, &u); err != nil {
		return Usage{}, fmt.Errorf("%w: parsing tag usage: %v", ErrSchemaLoad, err)
	}
	return u, nil
}

// ParseDescriptions decodes descriptions.yaml content.
func ParseDescriptions(data []byte) (Descriptions, error) {
	var d Descriptions
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptions{}, fmt.Errorf("%w: parsing descriptions: %v", ErrSchemaLoad, err)
	}
	return d, nil
}

// Load reads both reference files from disk and builds the allowlist.
func Load(usagePath, descriptionsPath string) (*Allowlist, error) {
	ub, err := os.ReadFile(usagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaLoad, err)
	}
	db, err := os.ReadFile(descriptionsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaLoad, err)
	}
	return build(ub, db)
}

// LoadDefault builds the allowlist from the reference data compiled into
// the binary.
func LoadDefault() (*Allowlist, error) {
	ub, err := reference.ReadFile(defaultUsage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaLoad, err)
	}
	db, err := reference.ReadFile(defaultDescriptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaLoad, err)
	}
	return build(ub, db)
}

func build(usageData, descData []byte) (*Allowlist, error) {
	u, err := ParseUsage(usageData)
	if err != nil {
		return nil, err
	}
	d, err := ParseDescriptions(descData)
	if err != nil {
		return nil, err
	}
	return Build(u, d)
}

// Build merges usage and descriptions into an allowlist.
//
// The element set is every usage tag plus every described element. An
// element permits the attributes listed for it in usage, usage attribute
// entries naming it, attributes listed in its description entry, attributes
// whose entry lists it, known attribute names mentioned in its description
// text, and attributes whose description text mentions it.
func Build(u Usage, d Descriptions) (*Allowlist, error) {
	elements := make(map[string]map[string]struct{})
	addElement := func(name string) {
		if name == "" {
			return
		}
		if _, ok := elements[name]; !ok {
			elements[name] = make(map[string]struct{})
		}
	}
	permit := func(el, attr string) {
		if attrs, ok := elements[el]; ok && attr != "" {
			attrs[attr] = struct{}{}
		}
	}

	for _, e := range u.Elements {
		addElement(e.Tag)
	}
	for name := range d.Elements {
		addElement(name)
	}

	known := make(map[string]struct{})
	for _, e := range u.Elements {
		for _, a := range e.Attributes {
			known[a] = struct{}{}
			permit(e.Tag, a)
		}
	}
	for _, a := range u.Attributes {
		known[a.Attribute] = struct{}{}
		for _, tag := range a.Tags {
			permit(tag, a.Attribute)
		}
	}
	for name, entry := range d.Attributes {
		known[name] = struct{}{}
		for _, el := range entry.Elements {
			permit(el, name)
		}
	}
	for name, entry := range d.Elements {
		for _, a := range entry.Attributes {
			known[a] = struct{}{}
			permit(name, a)
		}
	}

	for name, entry := range d.Elements {
		words := wordSet(entry.Description)
		for attr := range known {
			if _, ok := words[attr]; ok {
				permit(name, attr)
			}
		}
	}
	for attr, entry := range d.Attributes {
		words := wordSet(entry.Description)
		for el := range elements {
			if _, ok := words[el]; ok {
				permit(el, attr)
			}
		}
	}

	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no elements defined", ErrSchemaLoad)
	}
	return newAllowlist(elements), nil
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// wordSet returns the whole words of text.
func wordSet(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(text, -1) {
		words[w] = struct{}{}
	}
	return words
}

// Allowlist maps each permitted element to its permitted attributes. It is
// immutable and safe for concurrent use.
type Allowlist struct {
	elements    map[string]map[string]struct{}
	fingerprint string
}

func newAllowlist(elements map[string]map[string]struct{}) *Allowlist {
	a := &Allowlist{elements: elements}
	h := sha256.New()
	for _, el := range a.Elements() {
		fmt.Fprintf(h, "%s:%s\n", el, strings.Join(a.Attributes(el), ","))
	}
	a.fingerprint = hex.EncodeToString(h.Sum(nil))
	return a
}

// HasElement reports whether name is a permitted element.
func (a *Allowlist) HasElement(name string) bool {
	_, ok := a.elements[name]
	return ok
}

// Permits reports whether attr is permitted on element.
func (a *Allowlist) Permits(element, attr string) bool {
	attrs, ok := a.elements[element]
	if !ok {
		return false
	}
	_, ok = attrs[attr]
	return ok
}

// Elements returns the permitted element names, sorted.
func (a *Allowlist) Elements() []string {
	out := make([]string, 0, len(a.elements))
	for name := range a.elements {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Attributes returns the attributes permitted on element, sorted.
func (a *Allowlist) Attributes(element string) []string {
	attrs := a.elements[element]
	out := make([]string, 0, len(attrs))
	for name := range attrs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the allowlist as element -> sorted attributes.
func (a *Allowlist) Map() map[string][]string {
	out := make(map[string][]string, len(a.elements))
	for name := range a.elements {
		out[name] = a.Attributes(name)
	}
	return out
}

// Fingerprint is a stable hash of the allowlist content.
func (a *Allowlist) Fingerprint() string {
	return a.fingerprint
}
