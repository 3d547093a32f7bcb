package offices

import (
	"sync"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/navigation"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("office not found")

// Listed is an office as shown to the driver. DistanceMeters is set only when
// the driver position is known.
type Listed struct {
	models.Office
	Current        bool
	DistanceMeters *float64
}

// Directory keeps the configured offices and the one the driver currently works for.
type Directory struct {
	mu      sync.RWMutex
	offices []models.Office
	current string
}

// New takes offices in display order. currentID falls back to the first office when empty or unknown.
func New(offices []models.Office, currentID string) *Directory {
	d := &Directory{offices: append([]models.Office(nil), offices...)}
	if d.index(currentID) >= 0 {
		d.current = currentID
	} else if len(offices) > 0 {
		d.current = offices[0].ID
	}
	return d
}

func (d *Directory) List(from *models.Coordinates) []Listed {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Listed, 0, len(d.offices))
	for _, o := range d.offices {
		l := Listed{Office: o, Current: o.ID == d.current}
		if from != nil {
			m := navigation.DistanceMeters(*from, o.Coordinates)
			l.DistanceMeters = &m
		}
		out = append(out, l)
	}
	return out
}

func (d *Directory) Current() (models.Office, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.index(d.current)
	if i < 0 {
		return models.Office{}, false
	}
	return d.offices[i], true
}

func (d *Directory) Switch(id string) (models.Office, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(id)
	if i < 0 {
		return models.Office{}, errors.Wrapf(ErrNotFound, "office %q", id)
	}
	d.current = id
	return d.offices[i], nil
}

func (d *Directory) index(id string) int {
	if id == "" {
		return -1
	}
	for i, o := range d.offices {
		if o.ID == id {
			return i
		}
	}
	return -1
}
