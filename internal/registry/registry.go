package registry

import (
	"github.com/google/uuid"

	"github.com/ivlev/stagekeys/internal/source"
	"github.com/ivlev/stagekeys/internal/transform"
)

// Object is an image placed on the stage. Its id never changes.
type Object struct {
	ID     string
	Name   string
	Source source.Source
}

// Placement controls the initial transform of new objects
type Placement struct {
	X, Y   float64
	FitBox float64 // New objects fit inside a FitBox x FitBox square
}

var DefaultPlacement = Placement{X: 300, Y: 300, FitBox: 200}

// FitBox scales a width x height image to fit inside a box x box square,
// preserving the aspect ratio. Unknown dimensions give a square.
func FitBox(width, height, box float64) (float64, float64) {
	if width <= 0 || height <= 0 {
		return box, box
	}
	aspect := width / height
	if aspect > 1 {
		return box, box / aspect
	}
	return box * aspect, box
}

// Registry owns the list of stage objects and the current selection.
// Like transform.Store it relies on the owning session for serialization.
type Registry struct {
	store     *transform.Store
	placement Placement
	objects   []Object
	selected  string
	newID     func() string
}

func New(store *transform.Store, placement Placement) *Registry {
	return &Registry{
		store:     store,
		placement: placement,
		newID:     uuid.NewString,
	}
}

// Create registers src as a new selected object with a default transform and
// returns its id. The zIndex stacks it above the objects already present.
func (r *Registry) Create(src source.Source) string {
	id := r.newID()

	var nativeW, nativeH float64
	if src != nil {
		// Unreadable dimensions fall back to a square
		nativeW, nativeH, _ = src.Dimensions()
	}
	w, h := FitBox(nativeW, nativeH, r.placement.FitBox)

	r.store.Insert(id, transform.State{
		X:      r.placement.X,
		Y:      r.placement.Y,
		Width:  w,
		Height: h,
		ScaleX: 1,
		ScaleY: 1,
		ZIndex: r.store.Len() + 1,
	})

	name := ""
	if src != nil {
		name = src.Name()
	}
	r.objects = append(r.objects, Object{ID: id, Name: name, Source: src})
	r.selected = id
	return id
}

// Remove drops the object and its transform state. The caller owns the
// returned object's Source and is expected to release it.
func (r *Registry) Remove(id string) (Object, bool) {
	for i, obj := range r.objects {
		if obj.ID != id {
			continue
		}
		r.objects = append(r.objects[:i], r.objects[i+1:]...)
		r.store.Delete(id)
		if r.selected == id {
			r.selected = ""
		}
		return obj, true
	}
	return Object{}, false
}

// Select sets the selection; "" clears it. Ids are not validated.
// Selection is frozen while the store is locked for playback.
func (r *Registry) Select(id string) bool {
	if r.store.Locked() {
		return false
	}
	r.selected = id
	return true
}

// ClearSelection clears the selection regardless of the edit-lock.
func (r *Registry) ClearSelection() {
	r.selected = ""
}

func (r *Registry) Selected() string {
	return r.selected
}

func (r *Registry) Lookup(id string) (Object, bool) {
	for _, obj := range r.objects {
		if obj.ID == id {
			return obj, true
		}
	}
	return Object{}, false
}

// Objects returns the objects in creation order.
func (r *Registry) Objects() []Object {
	out := make([]Object, len(r.objects))
	copy(out, r.objects)
	return out
}

func (r *Registry) Len() int {
	return len(r.objects)
}
