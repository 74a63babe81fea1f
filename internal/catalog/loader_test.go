package catalog

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/corona10/goimagehash"

	apperr "github.com/GriffinCanCode/kartalytics/internal/errors"
	"github.com/GriffinCanCode/kartalytics/internal/hasher"
	"github.com/GriffinCanCode/kartalytics/internal/hasher/hashertest"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
)

func inline(bits uint64) string {
	return goimagehash.NewImageHash(bits, goimagehash.DHash).ToString()
}

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := shade + uint8(x*8)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const minimalManifest = `
race:
  lap_flag: {files: [race/lap_flag.png], threshold: 20}
  go: {hashes: ["d:0000000000000001"], threshold: 15}
  finished: {hashes: ["d:0000000000000002"], threshold: 15}
  positions:
    threshold: 16
    entries:
      - {position: 1, files: ["race/pos1*.png"]}
      - {position: 2, hashes: ["d:00000000000000ff"]}
  items:
    inclusive: true
    entries:
      - {item: banana, threshold: 14, hashes: ["d:0000000000000003"]}
      - {item: pirhana-plant, threshold: 14, files: ["items/pirhana-plant-[0-9].png"], hashes: ["d:0000000000000004"]}
intro:
  title: {hashes: ["d:0000000000000005"], threshold: 3, inclusive: true}
  variant_threshold: 10
  track_threshold: 10
  variants:
    - name: wii
      suffix: " (Wii)"
      hashes: ["d:0000000000000006"]
      tracks:
        - {name: Coconut Mall, hashes: ["d:0000000000000007"]}
        - {name: Koopa Cape, hashes: ["d:0000000000000008"], threshold: 6}
    - name: none
      hashes: ["d:0000000000000009"]
      threshold: 4
      tracks:
        - {name: Big Blue, hashes: ["d:000000000000000a"]}
main_menu: {hashes: ["d:000000000000000b"], threshold: 10, inclusive: true}
loading: {hashes: ["d:000000000000000c"], threshold: 5}
select_character: {hashes: ["d:000000000000000d"], threshold: 10, inclusive: true}
match_result:
  speed_200: {hashes: ["d:000000000000000e"], threshold: 10}
  speed_150: {hashes: ["d:000000000000000f"], threshold: 10}
`

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		ManifestName:        {Data: []byte(minimalManifest)},
		"race/lap_flag.png": {Data: pngBytes(t, 0)},
		"race/pos1.png":     {Data: pngBytes(t, 10)},
		"race/pos1-alt.png": {Data: pngBytes(t, 20)},
	}
}

func TestLoad(t *testing.T) {
	refs, err := Load(testFS(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if n := len(refs.Race.LapFlag.Hashes); n != 1 || refs.Race.LapFlag.Threshold != 20 {
		t.Errorf("LapFlag = %+v", refs.Race.LapFlag)
	}
	if got := refs.Race.Positions.Entries[0]; got.Value != 1 || len(got.Hashes) != 2 {
		t.Errorf("position 1 = %+v, want two globbed hashes", got)
	}
	if !refs.Race.Items.Inclusive || refs.Race.Items.Entries[1].Value != screens.PiranhaPlant {
		t.Errorf("Items = %+v", refs.Race.Items)
	}
	if !refs.Intro.Title.Inclusive || refs.Intro.Title.Threshold != 3 {
		t.Errorf("Title = %+v", refs.Intro.Title)
	}
	if refs.Loading.Inclusive {
		t.Error("Loading should default to strict")
	}

	wii := refs.Intro.Variants[0]
	if wii.Reference.Threshold != 10 || wii.Suffix != " (Wii)" {
		t.Errorf("wii group = %+v", wii)
	}
	if got := wii.Tracks.Entries[0]; got.Value != "Coconut Mall (Wii)" || got.Threshold != 10 {
		t.Errorf("track = %+v", got)
	}
	if got := wii.Tracks.Entries[1].Threshold; got != 6 {
		t.Errorf("track threshold override = %d, want 6", got)
	}
	if got := refs.Intro.Variants[1]; got.Reference.Threshold != 4 || got.Tracks.Entries[0].Value != "Big Blue" {
		t.Errorf("none group = %+v", got)
	}

	want := []string{"Coconut Mall (Wii)", "Koopa Cape (Wii)", "Big Blue"}
	if got := refs.Courses(); len(got) != len(want) {
		t.Errorf("Courses() = %v, want %v", got, want)
	}
}

func TestLoadHashesFilesLikeCandidates(t *testing.T) {
	fsys := testFS(t)
	refs, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(fsys["race/lap_flag.png"].Data))
	if err != nil {
		t.Fatal(err)
	}
	if !refs.Race.LapFlag.MatchesImage(img) {
		t.Errorf("lap flag reference does not match its own image: distance %d",
			refs.Race.LapFlag.Distance(hashertest.Hash(img)))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fstest.MapFS)
		code   apperr.ErrorCode
	}{
		{"missing manifest", func(m fstest.MapFS) { delete(m, ManifestName) }, apperr.CATALOG_MISSING},
		{"missing file", func(m fstest.MapFS) { delete(m, "race/lap_flag.png") }, apperr.CATALOG_MISSING},
		{"glob matches nothing", func(m fstest.MapFS) {
			delete(m, "race/pos1.png")
			delete(m, "race/pos1-alt.png")
		}, apperr.CATALOG_MISSING},
		{"undecodable image", func(m fstest.MapFS) {
			m["race/lap_flag.png"] = &fstest.MapFile{Data: []byte("not a png")}
		}, apperr.CATALOG_INVALID},
		{"bad yaml", func(m fstest.MapFS) {
			m[ManifestName] = &fstest.MapFile{Data: []byte("race: [")}
		}, apperr.CATALOG_INVALID},
		{"zero threshold", func(m fstest.MapFS) {
			m[ManifestName] = &fstest.MapFile{Data: bytes.Replace([]byte(minimalManifest), []byte("threshold: 5}"), []byte("threshold: 0}"), 1)}
		}, apperr.CATALOG_INVALID},
		{"unknown item", func(m fstest.MapFS) {
			m[ManifestName] = &fstest.MapFile{Data: bytes.Replace([]byte(minimalManifest), []byte("item: banana,"), []byte("item: blooper,"), 1)}
		}, apperr.CATALOG_INVALID},
		{"position out of range", func(m fstest.MapFS) {
			m[ManifestName] = &fstest.MapFile{Data: bytes.Replace([]byte(minimalManifest), []byte("position: 2,"), []byte("position: 13,"), 1)}
		}, apperr.CATALOG_INVALID},
		{"bad inline hash", func(m fstest.MapFS) {
			m[ManifestName] = &fstest.MapFile{Data: bytes.Replace([]byte(minimalManifest), []byte("d:000000000000000c"), []byte("d:zz"), 1)}
		}, apperr.CATALOG_INVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := testFS(t)
			tt.mutate(fsys)
			_, err := Load(fsys)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !apperr.IsCode(err, tt.code) {
				t.Errorf("Load() error = %v, want code %v", err, tt.code)
			}
		})
	}
}

func TestInlineHashRoundTrip(t *testing.T) {
	m, err := ParseManifest([]byte(`main_menu: {hashes: ["` + inline(0xdeadbeef) + `"], threshold: 10}`))
	if err != nil {
		t.Fatal(err)
	}
	b := &builder{fsys: fstest.MapFS{}, cache: map[string]*goimagehash.ImageHash{}}
	ref, err := b.reference("main_menu", m.MainMenu)
	if err != nil {
		t.Fatal(err)
	}
	if got := ref.Hashes[0].GetHash(); got != 0xdeadbeef {
		t.Errorf("hash = %x, want deadbeef", got)
	}
}

func TestShippedManifest(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", DefaultDir, ManifestName))
	if err != nil {
		t.Fatalf("read shipped manifest: %v", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatal(err)
	}

	if n := len(m.Race.Positions.Entries); n != MaxPosition {
		t.Errorf("positions = %d, want %d", n, MaxPosition)
	}
	if n := len(m.Race.Items.Entries); n != len(screens.Items()) {
		t.Errorf("items = %d, want %d", n, len(screens.Items()))
	}
	for _, e := range m.Race.Items.Entries {
		if _, err := screens.ParseItem(e.Item); err != nil {
			t.Errorf("item %q: %v", e.Item, err)
		}
	}
	if n := len(m.Intro.Variants); n != 9 {
		t.Errorf("variant groups = %d, want 9", n)
	}

	tracks := 0
	for _, v := range m.Intro.Variants {
		tracks += len(v.Tracks)
	}
	if tracks != 99 {
		t.Errorf("tracks = %d, want 99", tracks)
	}
	if !m.Intro.Title.Inclusive || !m.MainMenu.Inclusive || !m.SelectCharacter.Inclusive || !m.Race.Items.Inclusive {
		t.Error("title, main menu, select character and items should be inclusive")
	}
}

// referenceSet mirrors the shipped reference directory: every asset name the
// manifest is expected to resolve, each backed by a small decodable image.
func referenceSet(t *testing.T) fstest.MapFS {
	t.Helper()
	names, err := os.ReadFile(filepath.Join("testdata", "reference_assets.txt"))
	if err != nil {
		t.Fatal(err)
	}
	manifest, err := os.ReadFile(filepath.Join("..", "..", DefaultDir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	img := pngBytes(t, 0)
	fsys := fstest.MapFS{ManifestName: {Data: manifest}}
	for _, name := range strings.Fields(string(names)) {
		fsys[name] = &fstest.MapFile{Data: img}
	}
	return fsys
}

func TestShippedManifestLoadsReferenceSet(t *testing.T) {
	refs, err := Load(referenceSet(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	items := make(map[string]int)
	for _, e := range refs.Race.Items.Entries {
		items[e.Value.String()] = len(e.Hashes)
	}
	tests := map[string]int{
		"banana":             6,
		"banana-double":      4,
		"coin":               3,
		"crazy-eight":        1,
		"fire-flower":        5,
		"green-shell-triple": 6,
		"red-shell-double":   1,
		"squid":              1,
		"star":               5,
	}
	for item, want := range tests {
		if got := items[item]; got != want {
			t.Errorf("%s hashes = %d, want %d", item, got, want)
		}
	}
	if missing := missingItems(refs.Race.Items); len(missing) != 0 {
		t.Errorf("missingItems() = %v, want none", missing)
	}

	positions := make(map[int]int)
	for _, e := range refs.Race.Positions.Entries {
		positions[e.Value] = len(e.Hashes)
	}
	if positions[5] != 2 || positions[8] != 1 || positions[12] != 2 {
		t.Errorf("position hashes = %v, want 5:2 8:1 12:2", positions)
	}
	if n := len(refs.Courses()); n != 99 {
		t.Errorf("courses = %d, want 99", n)
	}
}

func TestShippedManifestUsesEveryAsset(t *testing.T) {
	fsys := referenceSet(t)
	m, err := ParseManifest(fsys[ManifestName].Data)
	if err != nil {
		t.Fatal(err)
	}

	var patterns []string
	add := func(files ...string) { patterns = append(patterns, files...) }
	for _, r := range []RefSpec{m.Race.LapFlag, m.Race.Go, m.Race.Finished, m.Intro.Title,
		m.MainMenu, m.Loading, m.SelectCharacter, m.MatchResult.Speed200, m.MatchResult.Speed150} {
		add(r.Files...)
	}
	for _, e := range m.Race.Positions.Entries {
		add(e.Files...)
	}
	for _, e := range m.Race.Items.Entries {
		add(e.Files...)
	}
	for _, v := range m.Intro.Variants {
		add(v.Files...)
		for _, tr := range v.Tracks {
			add(tr.Files...)
		}
	}

	used := make(map[string]bool)
	for _, p := range patterns {
		matches, err := fs.Glob(fsys, p)
		if err != nil {
			t.Fatalf("pattern %q: %v", p, err)
		}
		for _, name := range matches {
			used[name] = true
		}
	}
	for name := range fsys {
		if name != ManifestName && !used[name] {
			t.Errorf("%s is not referenced by the manifest", name)
		}
	}
}

func TestMissingItems(t *testing.T) {
	tbl := hasher.Table[screens.Item]{}
	for _, item := range screens.Items() {
		if item != screens.Squid && item != screens.Star {
			tbl.Entries = append(tbl.Entries, hasher.Entry[screens.Item]{Value: item})
		}
	}
	got := missingItems(tbl)
	if len(got) != 2 || got[0] != screens.Squid || got[1] != screens.Star {
		t.Errorf("missingItems() = %v, want [squid star]", got)
	}
}
