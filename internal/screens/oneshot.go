package screens

import (
	"image"

	"github.com/GriffinCanCode/kartalytics/internal/pixel"
)

var (
	mainMenuRegion        = pixel.Rect(220, 467, 122, 24)
	loadingRegion         = pixel.Rect(670, 20, 100, 100)
	selectCharacterRegion = pixel.Rect(735, 435, 40, 35)
)

func (d *Detector) CompareMainMenu(frame image.Image) bool {
	return regionMatches(d.refs.MainMenu, frame, mainMenuRegion)
}

func (d *Detector) ProcessMainMenu(image.Image) (Screen, bool) {
	return MainMenu{}, true
}

func (d *Detector) CompareLoading(frame image.Image) bool {
	return regionMatches(d.refs.Loading, frame, loadingRegion)
}

func (d *Detector) ProcessLoading(image.Image) (Screen, bool) {
	return Loading{}, true
}

func (d *Detector) CompareSelectCharacter(frame image.Image) bool {
	return regionMatches(d.refs.SelectCharacter, frame, selectCharacterRegion)
}

func (d *Detector) ProcessSelectCharacter(image.Image) (Screen, bool) {
	return SelectCharacter{}, true
}
