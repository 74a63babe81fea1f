package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/kartalytics/internal/analyzer"
	"github.com/GriffinCanCode/kartalytics/internal/stream"
)

var downscaleCmd = &cobra.Command{
	Use:         "downscale <files>...",
	Short:       "Resize screenshots to 1280x720 as the analyzer sees them",
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{skipCatalog: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			dst := siblingPath(path, "resized", ".jpg")
			if err := downscale(path, dst); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
		}
		if failed > 0 {
			return fmt.Errorf("%d image(s) could not be resized", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downscaleCmd)
}

func downscale(src, dst string) error {
	frame, err := stream.ReadFrame(src)
	if err != nil {
		return err
	}
	return writeJPEG(dst, analyzer.Normalize(frame.Image))
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
