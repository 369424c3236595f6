// Package mapview derives the map center and zoom from the active location.
//
// A selected search result always wins over the device position. Every
// change of either input bumps Generation, which renderers use as the key of
// the map surface: a new generation means tear down and rebuild rather than
// pan the existing instance.
package mapview

import (
	"sync"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

const (
	CountryZoom = 5
	CityZoom    = 10
)

// DefaultCenter is the geographic centroid of India.
var DefaultCenter = models.LatLng{Lat: 20.5937, Lng: 78.9629}

type Source string

const (
	SourceDefault   Source = "default"
	SourceUser      Source = "user"
	SourceSelection Source = "selection"
)

type View struct {
	Center     models.LatLng `json:"center"`
	Zoom       int           `json:"zoom"`
	Generation uint64        `json:"generation"`
	Source     Source        `json:"source"`
}

func DefaultView() View {
	return View{Center: DefaultCenter, Zoom: CountryZoom, Source: SourceDefault}
}

// Derive computes the view after an input change. With neither input set
// the previous view is kept as is.
func Derive(prev View, user *models.UserPosition, selected *models.SelectedLocation) View {
	switch {
	case selected != nil:
		return View{
			Center:     selected.Coordinates(),
			Zoom:       CityZoom,
			Generation: prev.Generation + 1,
			Source:     SourceSelection,
		}
	case user != nil:
		return View{
			Center:     user.Coordinates(),
			Zoom:       CityZoom,
			Generation: prev.Generation + 1,
			Source:     SourceUser,
		}
	default:
		return prev
	}
}

// Controller holds the two inputs and the derived view.
type Controller struct {
	mu       sync.RWMutex
	user     *models.UserPosition
	selected *models.SelectedLocation
	view     View
}

func NewController() *Controller {
	return &Controller{view: DefaultView()}
}

func (c *Controller) SetUserPosition(p models.UserPosition) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = &p
	c.view = Derive(c.view, c.user, c.selected)
	return c.view
}

func (c *Controller) SetSelection(s models.SelectedLocation) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &s
	c.view = Derive(c.view, c.user, c.selected)
	return c.view
}

func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Selection returns the current selection, if any.
func (c *Controller) Selection() (models.SelectedLocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return models.SelectedLocation{}, false
	}
	return *c.selected, true
}

// UserPosition returns the device position, if known.
func (c *Controller) UserPosition() (models.UserPosition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return models.UserPosition{}, false
	}
	return *c.user, true
}
