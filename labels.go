package labeler

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"gopkg.in/yaml.v3"
)

// Built-in component names usable in a label table.
const (
	ComponentPolygonItem      = "PolygonItem"
	ComponentPolylineInserter = "PolylineInserter"
	ComponentFreehandInserter = "FreehandInserter"
	ComponentFreehandEraser   = "FreehandEraser"
)

// LabelClass configures one annotation class: the item that displays it, the
// inserter that draws it and the attributes every new annotation gets.
type LabelClass struct {
	Class    string `yaml:"class"`
	Item     string `yaml:"item"`
	Inserter string `yaml:"inserter"`
	// Color is [r, g, b] or [r, g, b, a] in 0-255. Empty picks a colormap
	// entry by table position.
	Color      []int          `yaml:"color,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
	Hotkey     string         `yaml:"hotkey,omitempty"`
}

// LabelTable is the class → component configuration of an editor.
type LabelTable struct {
	Classes []LabelClass `yaml:"labels"`
}

// ParseLabelTable decodes a YAML label table. Every class needs a unique
// non-empty name.
func ParseLabelTable(data []byte) (*LabelTable, error) {
	var lt LabelTable
	if err := yaml.Unmarshal(data, &lt); err != nil {
		return nil, fmt.Errorf("labeler: parse label table: %w", err)
	}
	seen := make(map[string]bool, len(lt.Classes))
	for i, c := range lt.Classes {
		if c.Class == "" {
			return nil, fmt.Errorf("labeler: label %d: %w: class", i, ErrMissingKey)
		}
		if seen[c.Class] {
			return nil, fmt.Errorf("labeler: label %q: %w", c.Class, ErrDuplicateRegistration)
		}
		seen[c.Class] = true
		if n := len(c.Color); n != 0 && n != 3 && n != 4 {
			return nil, fmt.Errorf("labeler: label %q: color needs 3 or 4 components: %w", c.Class, ErrBadValue)
		}
		for _, v := range c.Color {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("labeler: label %q: color component %d outside 0-255: %w", c.Class, v, ErrBadValue)
			}
		}
		if _, err := c.defaults(); err != nil {
			return nil, err
		}
	}
	return &lt, nil
}

// LoadLabelTable reads a YAML label table from path.
func LoadLabelTable(path string) (*LabelTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labeler: read label table: %w", err)
	}
	return ParseLabelTable(data)
}

// DefaultLabelTable returns the stock table: an eraser followed by the
// lesion classes, each drawn freehand.
func DefaultLabelTable() *LabelTable {
	lt := &LabelTable{Classes: []LabelClass{{
		Class:    "Eraser",
		Inserter: ComponentFreehandEraser,
		Hotkey:   "E",
	}}}
	for i, class := range []string{"TZ", "SCJ", "CIS", "CIGN", "PUN", "MOS", "AE"} {
		lt.Classes = append(lt.Classes, LabelClass{
			Class:    class,
			Item:     ComponentPolygonItem,
			Inserter: ComponentFreehandInserter,
			Hotkey:   fmt.Sprintf("Digit%d", i+1),
		})
	}
	return lt
}

// Lookup returns the class named class.
func (lt *LabelTable) Lookup(class string) (LabelClass, bool) {
	i := slices.IndexFunc(lt.Classes, func(c LabelClass) bool { return c.Class == class })
	if i < 0 {
		return LabelClass{}, false
	}
	return lt.Classes[i], true
}

// Defaults returns the attributes merged into new annotations of class. The
// "class" key is always set.
func (lt *LabelTable) Defaults(class string) (Record, error) {
	c, ok := lt.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("labeler: label %q: %w", class, ErrNotFound)
	}
	return c.defaults()
}

func (c LabelClass) defaults() (Record, error) {
	rec := Record{}
	for k, v := range c.Attributes {
		switch x := v.(type) {
		case string:
			rec.SetString(k, x)
		case int:
			rec.SetInt(k, int64(x))
		case int64:
			rec.SetInt(k, x)
		case float64:
			rec.SetFloat(k, x)
		case bool:
			rec.SetString(k, fmt.Sprint(x))
		default:
			return nil, fmt.Errorf("labeler: label %q attribute %q: %T: %w", c.Class, k, v, ErrBadValue)
		}
	}
	rec.SetString("class", c.Class)
	return rec, nil
}

// Color returns the display color of class: the configured one, or the
// colormap entry for its table position. Components of tables built in code
// are clamped to 0-255.
func (lt *LabelTable) Color(class string) Color {
	i := slices.IndexFunc(lt.Classes, func(c LabelClass) bool { return c.Class == class })
	if i < 0 {
		return ColorWhite
	}
	if rgb := lt.Classes[i].Color; len(rgb) >= 3 {
		c := RGB(channel(rgb[0]), channel(rgb[1]), channel(rgb[2]))
		if len(rgb) == 4 {
			c.A = float64(channel(rgb[3])) / 255
		}
		return c
	}
	return ClassColor(i)
}

// channel clamps a configured color component to 0-255.
func channel(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}

// Populate registers every class of the table in the two factories, binding
// the named built-in components. A class without an item or inserter is
// registered as disabled in that factory.
func (lt *LabelTable) Populate(items *ItemFactory, inserters *InserterFactory, cfg Config) error {
	cfg.normalize()
	for _, c := range lt.Classes {
		ictor, err := itemConstructor(c.Item, lt.itemOptions(c.Class, cfg))
		if err != nil {
			return fmt.Errorf("labeler: label %q: %w", c.Class, err)
		}
		nctor, err := inserterConstructor(c.Inserter)
		if err != nil {
			return fmt.Errorf("labeler: label %q: %w", c.Class, err)
		}
		if err := items.Register(c.Class, ictor, true); err != nil {
			return err
		}
		if err := inserters.Register(c.Class, nctor, true); err != nil {
			return err
		}
	}
	return nil
}

func (lt *LabelTable) itemOptions(class string, cfg Config) ItemOptions {
	return ItemOptions{
		Prefix:       cfg.Prefix,
		Color:        lt.Color(class),
		Opacity:      cfg.Opacity,
		AutoTextKeys: cfg.AutoTextKeys,
		Logger:       cfg.logger(),
	}
}

func itemConstructor(name string, opts ItemOptions) (func(*Node) Item, error) {
	switch name {
	case "":
		return nil, nil
	case ComponentPolygonItem:
		return func(n *Node) Item { return NewPolygonItem(n, opts) }, nil
	}
	return nil, fmt.Errorf("item component %q: %w", name, ErrNotFound)
}

func inserterConstructor(name string) (func(InserterContext) Inserter, error) {
	switch name {
	case "":
		return nil, nil
	case ComponentPolylineInserter:
		return func(ctx InserterContext) Inserter { return NewPolylineInserter(ctx) }, nil
	case ComponentFreehandInserter:
		return func(ctx InserterContext) Inserter { return NewFreehandInserter(ctx) }, nil
	case ComponentFreehandEraser:
		return func(ctx InserterContext) Inserter { return NewFreehandEraser(ctx) }, nil
	}
	return nil, fmt.Errorf("inserter component %q: %w", name, ErrNotFound)
}

// Hotkeys maps each configured hotkey to its class. Names follow
// ebiten.Key.String, case-insensitively; a single digit means its Digit key.
func (lt *LabelTable) Hotkeys() (map[ebiten.Key]string, error) {
	out := make(map[ebiten.Key]string)
	for _, c := range lt.Classes {
		if c.Hotkey == "" {
			continue
		}
		k, ok := parseKey(c.Hotkey)
		if !ok {
			return nil, fmt.Errorf("labeler: label %q hotkey %q: %w", c.Class, c.Hotkey, ErrBadValue)
		}
		if prev, dup := out[k]; dup {
			return nil, fmt.Errorf("labeler: hotkey %q used by %q and %q: %w", c.Hotkey, prev, c.Class, ErrDuplicateRegistration)
		}
		out[k] = c.Class
	}
	return out, nil
}

func parseKey(name string) (ebiten.Key, bool) {
	name = strings.TrimSpace(name)
	if len(name) == 1 && name[0] >= '0' && name[0] <= '9' {
		name = "Digit" + name
	}
	for k := ebiten.Key(0); k <= ebiten.KeyMax; k++ {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return 0, false
}
