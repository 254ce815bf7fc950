package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrUnknownTemplate is returned for ids missing from the catalogue
var ErrUnknownTemplate = errors.New("unknown template")

const templateIDPrefix = "sample-"

// TemplateInfo describes one reference plan of the library
type TemplateInfo struct {
	ID                string           `yaml:"id" json:"id"`
	AreaRange         [2]float64       `yaml:"areaRange" json:"areaRange"` // inclusive m² bounds
	ExpectedRoomTypes map[RoomType]int `yaml:"expectedRoomTypes" json:"expectedRoomTypes"`
	File              string           `yaml:"file" json:"file"`
}

// Accepts reports whether area falls inside the template's range
func (ti TemplateInfo) Accepts(area float64) bool {
	return area >= ti.AreaRange[0] && area <= ti.AreaRange[1]
}

// DefaultTemplates returns the built-in catalogue of verified apartment
// layouts.
func DefaultTemplates() []TemplateInfo {
	return []TemplateInfo{
		{
			ID:        "sample-59",
			AreaRange: [2]float64{55, 65},
			ExpectedRoomTypes: map[RoomType]int{
				RoomLiving: 1, RoomKitchen: 1, RoomMasterBed: 1, RoomBed: 1,
				RoomBathroom: 2, RoomEntrance: 1, RoomBalcony: 1,
				RoomDressRoom: 1, RoomUtility: 1,
			},
			File: "sample-59.json",
		},
		{
			ID:        "sample-84a",
			AreaRange: [2]float64{78, 90},
			ExpectedRoomTypes: map[RoomType]int{
				RoomLiving: 1, RoomKitchen: 1, RoomMasterBed: 1, RoomBed: 3,
				RoomBathroom: 2, RoomEntrance: 1, RoomBalcony: 1,
				RoomDressRoom: 1, RoomUtility: 1,
			},
			File: "sample-84a.json",
		},
		{
			ID:        "sample-84b",
			AreaRange: [2]float64{78, 90},
			ExpectedRoomTypes: map[RoomType]int{
				RoomLiving: 1, RoomKitchen: 1, RoomMasterBed: 1, RoomBed: 2,
				RoomBathroom: 2, RoomEntrance: 1, RoomBalcony: 1,
			},
			File: "sample-84b.json",
		},
	}
}

// Library is a read-through cache of template plans. Each plan is read
// from storage on first reference and kept for the life of the process.
// Concurrent first reads of one id share a single load.
type Library struct {
	fsys      fs.FS
	catalogue []TemplateInfo

	group singleflight.Group
	mu    sync.RWMutex
	plans map[string]*FloorPlan
}

// NewLibrary returns a library reading template files from fsys. A nil
// catalogue uses DefaultTemplates.
func NewLibrary(fsys fs.FS, catalogue []TemplateInfo) *Library {
	if catalogue == nil {
		catalogue = DefaultTemplates()
	}
	return &Library{
		fsys:      fsys,
		catalogue: catalogue,
		plans:     make(map[string]*FloorPlan),
	}
}

// NewDirLibrary returns a library backed by the directory dir
func NewDirLibrary(dir string, catalogue []TemplateInfo) *Library {
	return NewLibrary(os.DirFS(dir), catalogue)
}

// Templates returns the catalogue in match order
func (l *Library) Templates() []TemplateInfo {
	return l.catalogue
}

// AvailableTemplates returns every catalogued template id
func (l *Library) AvailableTemplates() []string {
	ids := make([]string, len(l.catalogue))
	for i, ti := range l.catalogue {
		ids[i] = ti.ID
	}
	return ids
}

// Info looks up a catalogue entry by exact id
func (l *Library) Info(id string) (TemplateInfo, bool) {
	for _, ti := range l.catalogue {
		if ti.ID == id {
			return ti, true
		}
	}
	return TemplateInfo{}, false
}

// Load returns the shared cached plan for id, reading it on first use.
// Callers must not modify the result; LoadTemplateByID returns a copy.
func (l *Library) Load(id string) (*FloorPlan, error) {
	l.mu.RLock()
	p, ok := l.plans[id]
	l.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := l.group.Do(id, func() (interface{}, error) {
		l.mu.RLock()
		cached, ok := l.plans[id]
		l.mu.RUnlock()
		if ok {
			return cached, nil
		}

		info, ok := l.Info(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
		}
		loaded, err := l.read(info)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.plans[id] = loaded
		l.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FloorPlan), nil
}

func (l *Library) read(info TemplateInfo) (*FloorPlan, error) {
	if l.fsys == nil {
		return nil, fmt.Errorf("template %s: no template storage configured", info.ID)
	}
	name := info.File
	if name == "" {
		name = info.ID + ".json"
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", info.ID, err)
	}
	var p FloorPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", info.ID, err)
	}
	return &p, nil
}

// LoadTemplateByID returns a private copy of a template plan. Both "84a"
// and "sample-84a" name the same template.
func (l *Library) LoadTemplateByID(id string) (*FloorPlan, error) {
	if !strings.HasPrefix(id, templateIDPrefix) {
		id = templateIDPrefix + id
	}
	p, err := l.Load(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}
