package catalog

import (
	"fmt"
	"image"
	_ "image/jpeg" // reference crops are jpeg or png
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"
	"gopkg.in/yaml.v3"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperr.Wrap(err, apperr.CATALOG_INVALID, "failed to parse reference manifest")
	}
	return &m, nil
}

// Load reads the manifest at the root of fsys and hashes every referenced
// image. The result is immutable.
func Load(fsys fs.FS) (*screens.References, error) {
	data, err := fs.ReadFile(fsys, ManifestName)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CATALOG_MISSING, "failed to read %s", ManifestName)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	return Build(fsys, m)
}

// LoadDir is Load over a directory on disk.
func LoadDir(dir string) (*screens.References, error) {
	refs, err := Load(os.DirFS(dir))
	if err != nil {
		if ae, ok := err.(*apperr.AppError); ok {
			ae.WithMetadata("dir", dir)
		}
		return nil, err
	}
	return refs, nil
}

var (
	defaultOnce sync.Once
	defaultRefs *screens.References
	defaultErr  error
)

// Default loads the catalog in dir once per process. Later calls return the
// first result whatever dir they pass.
func Default(dir string) (*screens.References, error) {
	defaultOnce.Do(func() {
		defaultRefs, defaultErr = LoadDir(dir)
		if defaultErr == nil {
			slog.Info("reference catalog loaded", "dir", dir,
				"positions", defaultRefs.Race.Positions.Len(),
				"items", defaultRefs.Race.Items.Len(),
				"courses", len(defaultRefs.Courses()))
		}
	})
	return defaultRefs, defaultErr
}

// Build resolves a parsed manifest against fsys.
func Build(fsys fs.FS, m *Manifest) (*screens.References, error) {
	b := &builder{fsys: fsys, cache: make(map[string]*goimagehash.ImageHash)}

	refs := &screens.References{}
	var err error

	single := []struct {
		name string
		spec RefSpec
		dst  *screens.Reference
	}{
		{"race.lap_flag", m.Race.LapFlag, &refs.Race.LapFlag},
		{"race.go", m.Race.Go, &refs.Race.Go},
		{"race.finished", m.Race.Finished, &refs.Race.Finished},
		{"intro.title", m.Intro.Title, &refs.Intro.Title},
		{"main_menu", m.MainMenu, &refs.MainMenu},
		{"loading", m.Loading, &refs.Loading},
		{"select_character", m.SelectCharacter, &refs.SelectCharacter},
		{"match_result.speed_200", m.MatchResult.Speed200, &refs.MatchResult.Speed200},
		{"match_result.speed_150", m.MatchResult.Speed150, &refs.MatchResult.Speed150},
	}
	for _, s := range single {
		if *s.dst, err = b.reference(s.name, s.spec); err != nil {
			return nil, err
		}
	}

	if refs.Race.Positions, err = b.positions(m.Race.Positions); err != nil {
		return nil, err
	}
	if refs.Race.Items, err = b.items(m.Race.Items); err != nil {
		return nil, err
	}
	for _, item := range missingItems(refs.Race.Items) {
		slog.Warn("item has no reference images and will never be detected", "item", item)
	}
	if refs.Intro.Variants, err = b.variants(m.Intro); err != nil {
		return nil, err
	}
	return refs, nil
}

// missingItems lists the item kinds tbl has no entry for.
func missingItems(tbl hasher.Table[screens.Item]) []screens.Item {
	have := make(map[screens.Item]bool, tbl.Len())
	for _, e := range tbl.Entries {
		have[e.Value] = true
	}
	var out []screens.Item
	for _, item := range screens.Items() {
		if !have[item] {
			out = append(out, item)
		}
	}
	return out
}

type builder struct {
	fsys  fs.FS
	cache map[string]*goimagehash.ImageHash
}

func (b *builder) reference(name string, spec RefSpec) (screens.Reference, error) {
	if err := checkThreshold(name, spec.Threshold); err != nil {
		return screens.Reference{}, err
	}
	hashes, err := b.hashes(name, spec.Files, spec.Hashes)
	if err != nil {
		return screens.Reference{}, err
	}
	return screens.Reference{Hashes: hashes, Threshold: spec.Threshold, Inclusive: spec.Inclusive}, nil
}

func (b *builder) positions(spec PositionsSpec) (hasher.Table[int], error) {
	tbl := hasher.Table[int]{Inclusive: spec.Inclusive}
	if err := checkThreshold("race.positions", spec.Threshold); err != nil {
		return tbl, err
	}

	seen := make(map[int]bool)
	for _, e := range spec.Entries {
		name := fmt.Sprintf("race.positions[%d]", e.Position)
		if e.Position < 1 || e.Position > MaxPosition {
			return tbl, apperr.Newf(apperr.CATALOG_INVALID, "%s: position must be in 1..%d", name, MaxPosition)
		}
		if seen[e.Position] {
			return tbl, apperr.Newf(apperr.CATALOG_INVALID, "%s: duplicate position", name)
		}
		seen[e.Position] = true

		hashes, err := b.hashes(name, e.Files, e.Hashes)
		if err != nil {
			return tbl, err
		}
		tbl.Entries = append(tbl.Entries, hasher.Entry[int]{Value: e.Position, Hashes: hashes, Threshold: spec.Threshold})
	}
	return tbl, nil
}

func (b *builder) items(spec ItemsSpec) (hasher.Table[screens.Item], error) {
	tbl := hasher.Table[screens.Item]{Inclusive: spec.Inclusive}
	for _, e := range spec.Entries {
		name := "race.items." + e.Item
		item, err := screens.ParseItem(e.Item)
		if err != nil {
			return tbl, apperr.Wrapf(err, apperr.CATALOG_INVALID, "%s: unknown item", name)
		}
		if err := checkThreshold(name, e.Threshold); err != nil {
			return tbl, err
		}
		hashes, err := b.hashes(name, e.Files, e.Hashes)
		if err != nil {
			return tbl, err
		}
		tbl.Entries = append(tbl.Entries, hasher.Entry[screens.Item]{Value: item, Hashes: hashes, Threshold: e.Threshold})
	}
	return tbl, nil
}

func (b *builder) variants(spec IntroManifest) ([]screens.VariantGroup, error) {
	groups := make([]screens.VariantGroup, 0, len(spec.Variants))
	for _, v := range spec.Variants {
		name := "intro.variants." + v.Name
		ref, err := b.reference(name, RefSpec{
			Files:     v.Files,
			Hashes:    v.Hashes,
			Threshold: orDefault(v.Threshold, spec.VariantThreshold),
		})
		if err != nil {
			return nil, err
		}

		group := screens.VariantGroup{Name: v.Name, Suffix: v.Suffix, Reference: ref}
		for _, t := range v.Tracks {
			tname := name + "." + t.Name
			threshold := orDefault(t.Threshold, spec.TrackThreshold)
			if err := checkThreshold(tname, threshold); err != nil {
				return nil, err
			}
			hashes, err := b.hashes(tname, t.Files, t.Hashes)
			if err != nil {
				return nil, err
			}
			group.Tracks.Entries = append(group.Tracks.Entries, hasher.Entry[string]{
				Value:     t.Name + v.Suffix,
				Hashes:    hashes,
				Threshold: threshold,
			})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// hashes resolves file patterns and inline hashes, in that order. Literal
// paths must exist; wildcard patterns may match nothing as long as the
// reference ends up with at least one hash.
func (b *builder) hashes(name string, patterns, inline []string) ([]*goimagehash.ImageHash, error) {
	var out []*goimagehash.ImageHash
	for _, p := range patterns {
		matches, err := fs.Glob(b.fsys, p)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.CATALOG_INVALID, "%s: bad pattern %q", name, p)
		}
		if len(matches) == 0 && !hasMeta(p) {
			return nil, apperr.Newf(apperr.CATALOG_MISSING, "%s: reference image %q not found", name, p)
		}
		for _, path := range matches {
			h, err := b.hashFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
	}
	for _, s := range inline {
		h, err := goimagehash.ImageHashFromString(s)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.CATALOG_INVALID, "%s: bad inline hash %q", name, s)
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		if len(patterns) > 0 {
			return nil, apperr.Newf(apperr.CATALOG_MISSING, "%s: no reference image matches %v", name, patterns)
		}
		return nil, apperr.Newf(apperr.CATALOG_INVALID, "%s: no files or hashes", name)
	}
	return out, nil
}

func (b *builder) hashFile(path string) (*goimagehash.ImageHash, error) {
	if h, ok := b.cache[path]; ok {
		return h, nil
	}
	f, err := b.fsys.Open(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CATALOG_MISSING, "failed to open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CATALOG_INVALID, "failed to decode %s", path)
	}
	h, err := hasher.Hash(img)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CATALOG_INVALID, "failed to hash %s", path)
	}
	b.cache[path] = h
	return h, nil
}

func checkThreshold(name string, threshold int) error {
	if threshold <= 0 {
		return apperr.Newf(apperr.CATALOG_INVALID, "%s: threshold must be positive, got %d", name, threshold)
	}
	return nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

func orDefault(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}
