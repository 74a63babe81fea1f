package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/kartalytics/internal/analyzer"
	"github.com/GriffinCanCode/kartalytics/internal/screens"
	"github.com/GriffinCanCode/kartalytics/internal/stream"
)

var referenceKinds = map[string]func(image.Image) *image.RGBA{
	"track":   screens.TrackImage,
	"variant": screens.VariantImage,
}

var generate []string

var referencesCmd = &cobra.Command{
	Use:   "references <files>...",
	Short: "Cut intro track and variant references out of screenshots",
	Args:  cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		for _, kind := range generate {
			if _, ok := referenceKinds[kind]; !ok {
				return fmt.Errorf("unknown reference kind %q (want track or variant)", kind)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		classifier := analyzer.New(refs)
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			frame, err := stream.ReadFrame(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			img := analyzer.Normalize(frame.Image)
			if s, ok := classifier.ClassifyResized(img); ok {
				if intro, isIntro := s.(screens.Intro); isIntro && intro.Course != screens.UnknownCourse {
					fmt.Fprintf(out, "%s resolved to a known screen - '%s'\n", path, intro.Course)
				}
			}
			for _, kind := range dedupe(generate) {
				dst := referencePath(path, kind)
				if err := writePNG(dst, referenceKinds[kind](img)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", dst, err)
					failed++
					continue
				}
				fmt.Fprintln(out, dst)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d reference(s) could not be generated", failed)
		}
		return nil
	},
}

func init() {
	referencesCmd.Flags().StringSliceVar(&generate, "generate", []string{"track"}, "reference kinds to write: track, variant")
	rootCmd.AddCommand(referencesCmd)
}

// referencePath places the reference next to src as <stem>_<suffix>.png.
func referencePath(src, suffix string) string {
	return siblingPath(src, suffix, ".png")
}

func siblingPath(src, suffix, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(filepath.Dir(src), stem+"_"+suffix+ext)
}

func dedupe(kinds []string) []string {
	out := slices.Clone(kinds)
	slices.Sort(out)
	return slices.Compact(out)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
