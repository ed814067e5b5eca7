package transform

// Crop is a percentage inset (0..100) from each edge of an object
type Crop struct {
	Top    float64 `yaml:"top" json:"top"`
	Right  float64 `yaml:"right" json:"right"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
	Left   float64 `yaml:"left" json:"left"`
}

// State holds the visual transform parameters of one stage object
type State struct {
	X        float64 `yaml:"x" json:"x"` // Top-left corner in stage space
	Y        float64 `yaml:"y" json:"y"`
	Width    float64 `yaml:"width" json:"width"`
	Height   float64 `yaml:"height" json:"height"`
	Rotation float64 `yaml:"rotation" json:"rotation"` // Degrees
	ScaleX   float64 `yaml:"scaleX" json:"scaleX"`     // -1 means flipped horizontally
	ScaleY   float64 `yaml:"scaleY" json:"scaleY"`     // -1 means flipped vertically
	ZIndex   int     `yaml:"zIndex" json:"zIndex"`
	Crop     *Crop   `yaml:"crop,omitempty" json:"crop,omitempty"`
}

// Clone returns a copy of s that shares no memory with it.
func (s State) Clone() State {
	if s.Crop != nil {
		c := *s.Crop
		s.Crop = &c
	}
	return s
}

// Snapshot maps object ids to their transform state
type Snapshot map[string]State

// Clone returns a deep copy of the snapshot. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, st := range s {
		out[id] = st.Clone()
	}
	return out
}

// Patch is a partial State. Nil fields are left untouched when applied.
// A non-nil Crop replaces the whole crop record.
type Patch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
	ScaleX   *float64
	ScaleY   *float64
	ZIndex   *int
	Crop     *Crop
}

// Apply merges the patch into s and returns the result.
func (p Patch) Apply(s State) State {
	s = s.Clone()
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.Width != nil {
		s.Width = *p.Width
	}
	if p.Height != nil {
		s.Height = *p.Height
	}
	if p.Rotation != nil {
		s.Rotation = *p.Rotation
	}
	if p.ScaleX != nil {
		s.ScaleX = *p.ScaleX
	}
	if p.ScaleY != nil {
		s.ScaleY = *p.ScaleY
	}
	if p.ZIndex != nil {
		s.ZIndex = *p.ZIndex
	}
	if p.Crop != nil {
		c := *p.Crop
		s.Crop = &c
	}
	return s
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.ScaleX == nil && p.ScaleY == nil &&
		p.ZIndex == nil && p.Crop == nil
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}
