package screens

import "fmt"

// Item is a held item shown in a seat's item box.
type Item int

const (
	Banana Item = iota
	BananaDouble
	BananaTriple
	BlueShell
	Bomb
	Boomerang
	Bullet
	Coin
	CrazyEight
	FireFlower
	Ghost
	GoldenMushroom
	GreenShell
	GreenShellDouble
	GreenShellTriple
	Horn
	Lightning
	Mushroom
	MushroomDouble
	MushroomTriple
	PiranhaPlant
	RedShell
	RedShellDouble
	RedShellTriple
	Squid
	Star
)

// Wire names. Piranha plant keeps the spelling the ingestion service expects.
var itemNames = [...]string{
	Banana:           "banana",
	BananaDouble:     "banana-double",
	BananaTriple:     "banana-triple",
	BlueShell:        "blue-shell",
	Bomb:             "bomb",
	Boomerang:        "boomerang",
	Bullet:           "bullet",
	Coin:             "coin",
	CrazyEight:       "crazy-eight",
	FireFlower:       "fire-flower",
	Ghost:            "ghost",
	GoldenMushroom:   "golden-mushroom",
	GreenShell:       "green-shell",
	GreenShellDouble: "green-shell-double",
	GreenShellTriple: "green-shell-triple",
	Horn:             "horn",
	Lightning:        "lightning",
	Mushroom:         "mushroom",
	MushroomDouble:   "mushroom-double",
	MushroomTriple:   "mushroom-triple",
	PiranhaPlant:     "pirhana-plant",
	RedShell:         "red-shell",
	RedShellDouble:   "red-shell-double",
	RedShellTriple:   "red-shell-triple",
	Squid:            "squid",
	Star:             "star",
}

// Items lists every item kind in declaration order.
func Items() []Item {
	out := make([]Item, len(itemNames))
	for i := range itemNames {
		out[i] = Item(i)
	}
	return out
}

func (i Item) String() string {
	if i < 0 || int(i) >= len(itemNames) {
		return fmt.Sprintf("item(%d)", int(i))
	}
	return itemNames[i]
}

// ParseItem resolves a wire name. "piranha-plant" is accepted as an alias.
func ParseItem(s string) (Item, error) {
	if s == "piranha-plant" {
		return PiranhaPlant, nil
	}
	for i, name := range itemNames {
		if name == s {
			return Item(i), nil
		}
	}
	return 0, fmt.Errorf("unknown item %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (i Item) MarshalText() ([]byte, error) {
	if i < 0 || int(i) >= len(itemNames) {
		return nil, fmt.Errorf("invalid item %d", int(i))
	}
	return []byte(itemNames[i]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Item) UnmarshalText(b []byte) error {
	v, err := ParseItem(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
