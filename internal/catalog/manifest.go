// Package catalog builds the read-only reference catalog from a manifest and
// a directory of reference crops
package catalog

// Manifest is the on-disk description of every reference the detectors use.
type Manifest struct {
	Race            RaceManifest        `yaml:"race"`
	Intro           IntroManifest       `yaml:"intro"`
	MainMenu        RefSpec             `yaml:"main_menu"`
	Loading         RefSpec             `yaml:"loading"`
	SelectCharacter RefSpec             `yaml:"select_character"`
	MatchResult     MatchResultManifest `yaml:"match_result"`
}

// RefSpec names the images (or inline hashes) of a single reference.
// Files may be fs.Glob patterns.
type RefSpec struct {
	Files     []string `yaml:"files"`
	Hashes    []string `yaml:"hashes"`
	Threshold int      `yaml:"threshold"`
	Inclusive bool     `yaml:"inclusive"`
}

type RaceManifest struct {
	LapFlag   RefSpec       `yaml:"lap_flag"`
	Go        RefSpec       `yaml:"go"`
	Finished  RefSpec       `yaml:"finished"`
	Positions PositionsSpec `yaml:"positions"`
	Items     ItemsSpec     `yaml:"items"`
}

type PositionsSpec struct {
	Threshold int            `yaml:"threshold"`
	Inclusive bool           `yaml:"inclusive"`
	Entries   []PositionSpec `yaml:"entries"`
}

type PositionSpec struct {
	Position int      `yaml:"position"`
	Files    []string `yaml:"files"`
	Hashes   []string `yaml:"hashes"`
}

type ItemsSpec struct {
	Inclusive bool       `yaml:"inclusive"`
	Entries   []ItemSpec `yaml:"entries"`
}

type ItemSpec struct {
	Item      string   `yaml:"item"`
	Threshold int      `yaml:"threshold"`
	Files     []string `yaml:"files"`
	Hashes    []string `yaml:"hashes"`
}

// IntroManifest describes the title card and the variant groups. Group and
// track thresholds fall back to VariantThreshold and TrackThreshold.
type IntroManifest struct {
	Title            RefSpec       `yaml:"title"`
	VariantThreshold int           `yaml:"variant_threshold"`
	TrackThreshold   int           `yaml:"track_threshold"`
	Variants         []VariantSpec `yaml:"variants"`
}

type VariantSpec struct {
	Name      string      `yaml:"name"`
	Suffix    string      `yaml:"suffix"`
	Files     []string    `yaml:"files"`
	Hashes    []string    `yaml:"hashes"`
	Threshold int         `yaml:"threshold"`
	Tracks    []TrackSpec `yaml:"tracks"`
}

type TrackSpec struct {
	Name      string   `yaml:"name"`
	Files     []string `yaml:"files"`
	Hashes    []string `yaml:"hashes"`
	Threshold int      `yaml:"threshold"`
}

type MatchResultManifest struct {
	Speed200 RefSpec `yaml:"speed_200"`
	Speed150 RefSpec `yaml:"speed_150"`
}
