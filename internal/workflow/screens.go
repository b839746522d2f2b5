package workflow

import (
	"fmt"

	"github.com/degaulle/sorashorts/internal/model"
)

// Screens tracks the single active wizard screen.
type Screens struct {
	active model.Screen
}

func NewScreens() Screens {
	return Screens{active: model.ScreenUpload}
}

// Show activates name. Unknown names are rejected and the active screen is
// kept.
func (s *Screens) Show(name model.Screen) error {
	if !name.Valid() {
		return fmt.Errorf("unknown screen %q", name)
	}
	s.active = name
	return nil
}

func (s Screens) Active() model.Screen {
	return s.active
}

func (s Screens) IsActive(name model.Screen) bool {
	return s.active == name
}
